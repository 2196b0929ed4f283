// Package doctor runs advisory checks over a loaded runnerpool configuration.
//
// Schema violations are reported by config.Load; the doctor looks for
// settings that are valid but probably not what the operator meant.
package doctor

import (
	"fmt"
	"strings"

	"github.com/mattjoyce/runnerpool/internal/config"
	"github.com/mattjoyce/runnerpool/internal/validate"
)

// Result holds the outcome of a check run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor checks a configuration together with the process environment it
// will run in.
type Doctor struct {
	cfg    *config.AppConfig
	secret string
}

// New creates a Doctor. secret is the webhook secret the server would use.
func New(cfg *config.AppConfig, secret string) *Doctor {
	return &Doctor{cfg: cfg, secret: secret}
}

// Validate runs all checks and returns a result. Errors are schema
// violations; everything else is a warning.
func (d *Doctor) Validate() *Result {
	r := &Result{}
	if d.cfg == nil {
		d.addError(r, "schema", "", "configuration is empty")
		return r
	}

	for _, v := range d.cfg.Validate() {
		d.addError(r, "schema", v.Path, v.Message)
	}

	d.checkServer(r)
	d.checkLabels(r)
	d.checkPoolParameters(r)
	d.checkCapacity(r)
	d.checkSecret(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) checkServer(r *Result) {
	s := d.cfg.Server
	if s == nil || s.Port == nil {
		return
	}
	if p := *s.Port; p < 1 || p > 65535 {
		d.addWarning(r, "server", "server.port", fmt.Sprintf("port %d is outside 1..65535", p))
	}
}

func (d *Doctor) checkLabels(r *Result) {
	first := make(map[string]int)
	for i, m := range d.cfg.LabelVMMappings {
		key := strings.TrimSpace(m.Label)
		if key == "" {
			continue
		}
		if j, dup := first[key]; dup {
			d.addWarning(r, "labels", validate.Index("labelVmMappings", i)+".label",
				fmt.Sprintf("label %q already mapped by labelVmMappings[%d]; only the first mapping is used", key, j))
			continue
		}
		first[key] = i
	}
}

func (d *Doctor) checkPoolParameters(r *Result) {
	for i, m := range d.cfg.LabelVMMappings {
		p := m.PoolParameters
		if p == nil {
			continue
		}
		field := validate.Index("labelVmMappings", i) + ".poolParameters"
		if p.MaximumPoolSize < p.MinimumWarmVMs {
			d.addWarning(r, "pool", field+".maximumPoolSize",
				fmt.Sprintf("maximumPoolSize %d is below minimumWarmVms %d", p.MaximumPoolSize, p.MinimumWarmVMs))
		}
		if p.ScaleUpTriggerThreshold > p.MaximumPoolSize {
			d.addWarning(r, "pool", field+".scaleUpTriggerThreshold",
				fmt.Sprintf("scaleUpTriggerThreshold %d exceeds maximumPoolSize %d; scale up can never trigger", p.ScaleUpTriggerThreshold, p.MaximumPoolSize))
		}
	}
}

func (d *Doctor) checkCapacity(r *Result) {
	if d.cfg.VMPool == nil || d.cfg.VMPool.MaxSize == nil {
		return
	}
	total := 0
	for _, m := range d.cfg.LabelVMMappings {
		if m.PoolParameters != nil {
			total += m.PoolParameters.MaximumPoolSize
		}
	}
	if limit := *d.cfg.VMPool.MaxSize; total > limit {
		d.addWarning(r, "pool", "vmPool.maxSize",
			fmt.Sprintf("label pools allow %d VMs in total but vmPool.maxSize is %d", total, limit))
	}
}

func (d *Doctor) checkSecret(r *Result) {
	if d.secret == "" {
		d.addWarning(r, "webhook", "GITHUB_WEBHOOK_SECRET",
			"webhook secret not configured; signatures will not be verified")
	}
}
