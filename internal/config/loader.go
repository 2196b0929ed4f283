package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/runnerpool/internal/log"
	"github.com/mattjoyce/runnerpool/internal/resources"
)

// Loader reads, decodes and validates configuration documents. It holds no
// mutable state and is safe for concurrent use.
type Loader struct {
	bundled fs.FS
	logger  *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithBundled sets the file system used for classpath: and unprefixed
// locators. Defaults to the embedded resources.
func WithBundled(fsys fs.FS) Option {
	return func(l *Loader) { l.bundled = fsys }
}

// WithLogger sets the logger used for load summaries and diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{bundled: resources.FS}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.WithComponent("config")
	}
	return l
}

// Snapshot is a validated configuration together with the source it was
// read from.
type Snapshot struct {
	Config  *AppConfig
	Locator string
	// Digest is the BLAKE3 hex digest of the raw document bytes.
	Digest string
}

// Load reads the document at locator and returns the validated tree.
// Every Load returns a fresh, independently owned tree.
func (l *Loader) Load(locator string) (*AppConfig, error) {
	snap, err := l.LoadSnapshot(locator)
	if err != nil {
		return nil, err
	}
	return snap.Config, nil
}

// LoadSnapshot is Load that also reports the document digest.
func (l *Loader) LoadSnapshot(locator string) (*Snapshot, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, &LoadError{Kind: ErrPathMissing}
	}

	l.logger.Debug("loading configuration", "locator", locator)

	data, err := l.read(locator)
	if err != nil {
		l.logger.Debug("configuration source unavailable", "locator", locator, "error", err)
		return nil, &LoadError{Kind: ErrResourceNotFound, Locator: locator, Err: err}
	}

	cfg, err := decode(data)
	if err != nil {
		l.logger.Debug("configuration parse failed", "locator", locator, "error", err)
		return nil, &LoadError{Kind: ErrParse, Locator: locator, Err: err}
	}

	if violations := cfg.Validate(); len(violations) > 0 {
		l.logger.Debug("configuration validation failed", "locator", locator, "violations", violations.Error())
		return nil, &LoadError{Kind: ErrValidation, Locator: locator, Err: violations, Violations: violations}
	}

	snap := &Snapshot{Config: cfg, Locator: locator, Digest: Digest(data)}
	l.logger.Info("configuration loaded",
		"app_name", cfg.AppName,
		"version", cfg.Version,
		"locator", locator,
		"label_mappings", len(cfg.LabelVMMappings),
		"config_digest", snap.Digest,
	)
	return snap, nil
}

// Load reads locator with a default Loader.
func Load(locator string) (*AppConfig, error) {
	return NewLoader().Load(locator)
}

// read returns the full contents of the source; the stream is closed on
// every path.
func (l *Loader) read(locator string) ([]byte, error) {
	rc, err := l.open(locator)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return data, nil
}

// decode shapes the raw document into an AppConfig. Unknown keys and type
// mismatches are errors; only the first YAML document is read.
func decode(data []byte) (*AppConfig, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 || root.Content[0].ShortTag() == "!!null" {
		return nil, errors.New("document is empty")
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: document root must be a mapping", root.Content[0].Line)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg AppConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
