package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Debug  bool `yaml:"debug"`
	Server struct {
		Host string `yaml:"host" default:"127.0.0.1" validate:"required"`
		Port int    `yaml:"port" default:"8080"      validate:"gt=0,lte=65535"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"database"`
	Analysis struct {
		HighSpeedThreshold float64 `yaml:"high_speed_threshold" default:"350" validate:"gt=0"`
	} `yaml:"analysis"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path"    default:"/metrics" validate:"startswith=/"`
	} `yaml:"metrics"`
}

var validate = validator.New()

// Default returns a configuration with every default applied. Database.Path
// still has to be set.
func Default() *Config {
	var c Config
	// Set only fails for non-pointer arguments.
	_ = defaults.Set(&c)
	return &c
}

// Parse reads a YAML document on top of the defaults.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
