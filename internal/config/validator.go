package config

import "github.com/mattjoyce/runnerpool/internal/validate"

const msgNegative = "cannot be negative"

// Validate checks every rule over the whole tree and returns all
// violations in field declaration order, then sequence index order.
func (c *AppConfig) Validate() validate.List {
	var l validate.List

	l.NotBlank("appName", c.AppName)
	l.NotBlank("version", c.Version)

	l.Present("server", c.Server != nil)
	if c.Server != nil {
		l.Merge("server", c.Server.Validate())
	}

	l.Present("featureFlags", c.FeatureFlags != nil)

	l.Present("vmPool", c.VMPool != nil)
	if c.VMPool != nil {
		l.Merge("vmPool", c.VMPool.Validate())
	}

	l.NotEmpty("labelVmMappings", len(c.LabelVMMappings))
	for i := range c.LabelVMMappings {
		l.Merge(validate.Index("labelVmMappings", i), c.LabelVMMappings[i].Validate())
	}

	return l
}

// Validate checks the server section.
func (s *ServerConfig) Validate() validate.List {
	var l validate.List
	l.NotBlank("host", s.Host)
	l.Present("port", s.Port != nil)
	return l
}

// Validate checks the pool-wide section.
func (p *VMPoolConfig) Validate() validate.List {
	var l validate.List
	l.Present("maxSize", p.MaxSize != nil)
	l.Present("idleTimeout", p.IdleTimeout != nil)
	l.NotBlank("defaultOs", p.DefaultOS)
	return l
}

// Validate checks a single label mapping, including its pool parameters.
func (m *LabelVMMapping) Validate() validate.List {
	var l validate.List
	l.NotBlank("label", m.Label)
	l.NotBlank("vmSeriesSize", m.VMSeriesSize)
	l.NotBlank("osImage", m.OSImage)
	l.NotBlank("region", m.Region)
	l.NotBlank("vNet", m.VNet)
	l.NotBlank("subnet", m.Subnet)
	l.NotBlank("networkSecurityGroup", m.NetworkSecurityGroup)
	l.NotBlank("diskTypeSize", m.DiskTypeSize)
	l.Min("runnersPerVm", m.RunnersPerVM, 1, "must be at least 1")

	l.Present("poolParameters", m.PoolParameters != nil, "must be specified")
	if m.PoolParameters != nil {
		l.Merge("poolParameters", m.PoolParameters.Validate())
	}
	return l
}

// Validate checks per-label pool parameters.
func (p *VMPoolParameters) Validate() validate.List {
	var l validate.List
	l.Min("minimumWarmVms", p.MinimumWarmVMs, 0, msgNegative)
	l.Min("maximumPoolSize", p.MaximumPoolSize, 0, msgNegative)
	l.Min("scaleUpTriggerThreshold", p.ScaleUpTriggerThreshold, 0, msgNegative)
	l.Present("idleTimeout", p.IdleTimeout != nil, "must be specified")
	return l
}
