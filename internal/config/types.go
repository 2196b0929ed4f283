package config

import (
	"net"
	"strconv"
)

// AppConfig is the validated configuration tree. Treat it as read-only once
// returned by the loader.
//
// Pointer fields distinguish "absent" from a zero value so the validator can
// report missing required values.
type AppConfig struct {
	AppName         string           `yaml:"appName"`
	Version         string           `yaml:"version"`
	Server          *ServerConfig    `yaml:"server"`
	FeatureFlags    map[string]bool  `yaml:"featureFlags"`
	VMPool          *VMPoolConfig    `yaml:"vmPool"`
	LabelVMMappings []LabelVMMapping `yaml:"labelVmMappings"`
}

// ServerConfig defines where the webhook listener binds.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port *int   `yaml:"port"`
}

// VMPoolConfig holds pool-wide defaults.
type VMPoolConfig struct {
	MaxSize     *int      `yaml:"maxSize"`
	IdleTimeout *Duration `yaml:"idleTimeout"`
	DefaultOS   string    `yaml:"defaultOs"`
}

// LabelVMMapping maps a runner label to the VM shape that serves it.
type LabelVMMapping struct {
	Label                string            `yaml:"label"`
	VMSeriesSize         string            `yaml:"vmSeriesSize"`
	OSImage              string            `yaml:"osImage"`
	Region               string            `yaml:"region"`
	VNet                 string            `yaml:"vNet"`
	Subnet               string            `yaml:"subnet"`
	NetworkSecurityGroup string            `yaml:"networkSecurityGroup"`
	DiskTypeSize         string            `yaml:"diskTypeSize"`
	RunnersPerVM         int               `yaml:"runnersPerVm"`
	PoolParameters       *VMPoolParameters `yaml:"poolParameters"`
}

// VMPoolParameters controls warm capacity for a single label.
type VMPoolParameters struct {
	MinimumWarmVMs          int       `yaml:"minimumWarmVms"`
	MaximumPoolSize         int       `yaml:"maximumPoolSize"`
	ScaleUpTriggerThreshold int       `yaml:"scaleUpTriggerThreshold"`
	IdleTimeout             *Duration `yaml:"idleTimeout"`
}

// Listen returns the host:port address for the server section.
func (s *ServerConfig) Listen() string {
	if s == nil || s.Port == nil {
		return ""
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(*s.Port))
}

// Labels returns the configured runner labels in document order.
func (c *AppConfig) Labels() []string {
	labels := make([]string, len(c.LabelVMMappings))
	for i, m := range c.LabelVMMappings {
		labels[i] = m.Label
	}
	return labels
}

// MappingFor returns the mapping for label, if any.
func (c *AppConfig) MappingFor(label string) (LabelVMMapping, bool) {
	for _, m := range c.LabelVMMappings {
		if m.Label == label {
			return m, true
		}
	}
	return LabelVMMapping{}, false
}
