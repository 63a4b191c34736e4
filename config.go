package ual

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the project configuration loaded from ual.yaml. CLI flags
// override any value set here.
type Config struct {
	Target    string `yaml:"target"`
	Output    string `yaml:"output"`
	TypeCheck *bool  `yaml:"type_check"`
	Optimize  *bool  `yaml:"optimize"`
	Warnings  *bool  `yaml:"warnings"`
	Cache     *bool  `yaml:"cache"`
	CachePath string `yaml:"cache_path"`
}

// LoadConfig reads a ual.yaml project file. A missing file is not an
// error; it returns an empty config so defaults apply.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Apply overlays the config onto options, leaving options untouched
// for any unset config field.
func (c *Config) Apply(opts *Options) {
	if c.Target != "" {
		opts.Target = c.Target
	}
	if c.TypeCheck != nil {
		opts.TypeCheck = *c.TypeCheck
	}
	if c.Optimize != nil {
		opts.Optimize = *c.Optimize
	}
	if c.Warnings != nil {
		opts.Warnings = *c.Warnings
	}
}
