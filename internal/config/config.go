// Application configuration: YAML file with sensible defaults
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	LogLevel string       `yaml:"log_level"`
	Pool     PoolConfig   `yaml:"pool"`
	Source   SourceConfig `yaml:"source"`
	Server   ServerConfig `yaml:"server"`
	Nodes    []NodeConfig `yaml:"nodes"`
}

// PoolConfig bounds the per-node output buffer pools.
type PoolConfig struct {
	Slots int `yaml:"slots"`
}

// SourceConfig shapes the synthetic frame producer.
type SourceConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FPS    float64 `yaml:"fps"`
}

// ServerConfig controls the websocket preview endpoint.
type ServerConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// NodeConfig describes one processing node in the chain.
type NodeConfig struct {
	Name      string         `yaml:"name"`
	Transform string         `yaml:"transform"`
	Sharing   string         `yaml:"sharing"` // "pooled" (default) or "owned"
	Params    map[string]any `yaml:"params"`
}

// Load reads the YAML file at path and fills in defaults. A missing
// file is not an error: the defaults alone describe a runnable
// single-node setup.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Pool.Slots == 0 {
		c.Pool.Slots = 4
	}
	if c.Source.Width == 0 {
		c.Source.Width = 640
	}
	if c.Source.Height == 0 {
		c.Source.Height = 480
	}
	if c.Source.FPS == 0 {
		c.Source.FPS = 15
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8090
	}
	if len(c.Nodes) == 0 {
		c.Nodes = []NodeConfig{{Transform: "gaussian"}}
	}
	for i := range c.Nodes {
		if c.Nodes[i].Sharing == "" {
			c.Nodes[i].Sharing = "pooled"
		}
		if c.Nodes[i].Name == "" {
			c.Nodes[i].Name = fmt.Sprintf("%s-%d", c.Nodes[i].Transform, i)
		}
	}
}

func (c *Config) validate() error {
	if c.Pool.Slots < 1 {
		return fmt.Errorf("pool.slots must be at least 1, got %d", c.Pool.Slots)
	}
	if c.Source.Width < 1 || c.Source.Height < 1 {
		return fmt.Errorf("source geometry must be positive, got %dx%d", c.Source.Width, c.Source.Height)
	}
	if c.Source.FPS <= 0 {
		return fmt.Errorf("source.fps must be positive, got %v", c.Source.FPS)
	}
	for _, n := range c.Nodes {
		if n.Transform == "" {
			return fmt.Errorf("node %q: transform is required", n.Name)
		}
		if n.Sharing != "pooled" && n.Sharing != "owned" {
			return fmt.Errorf("node %q: sharing must be pooled or owned, got %q", n.Name, n.Sharing)
		}
	}
	return nil
}
