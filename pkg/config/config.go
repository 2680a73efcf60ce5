// Package config loads the fragment manager daemon's configuration from a
// YAML file, applying defaults for anything the file leaves unset.
package config

import (
	"fmt"
	"os"

	"github.com/cuemby/fragmentmgr/pkg/cluster"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config is the fragment manager daemon's full configuration.
type Config struct {
	DataDir    string               `yaml:"dataDir"`
	VNodeCount uint32               `yaml:"vnodeCount"`
	Workers    []cluster.WorkerSpec `yaml:"workers"`
	Log        LogConfig            `yaml:"log"`
	Metrics    MetricsConfig        `yaml:"metrics"`
	Broker     BrokerConfig         `yaml:"broker"`
}

// LogConfig holds log settings read from the config file. The daemon does
// not apply them: pkg/log is initialized from the --log-level and
// --log-json flags only.
type LogConfig struct {
	Level      string `yaml:"level"`
	JSONOutput bool   `yaml:"jsonOutput"`
}

// MetricsConfig controls the Prometheus/health HTTP listener.
type MetricsConfig struct {
	Addr        string `yaml:"addr"`
	EnablePprof bool   `yaml:"enablePprof"`
}

// BrokerConfig holds notification broker buffer sizes. They are validated
// but not passed to events.NewBroker, whose buffers are fixed at 256 queued
// notifications and 64 per subscriber.
type BrokerConfig struct {
	EventBufferSize      int `yaml:"eventBufferSize"`
	SubscriberBufferSize int `yaml:"subscriberBufferSize"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		DataDir:    "./fragmentmgr-data",
		VNodeCount: 256,
		Workers: []cluster.WorkerSpec{
			{WorkerID: 1, ParallelUnitCount: 8},
		},
		Log: LogConfig{
			Level:      "info",
			JSONOutput: false,
		},
		Metrics: MetricsConfig{
			Addr:        "127.0.0.1:9090",
			EnablePprof: false,
		},
		Broker: BrokerConfig{
			EventBufferSize:      256,
			SubscriberBufferSize: 64,
		},
	}
}

// Load reads and parses a YAML config file at path, filling in defaults for
// any field the file leaves unset. An empty path returns Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot start
// with.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.DataDir == "" {
		result = multierror.Append(result, fmt.Errorf("config: dataDir must not be empty"))
	}
	if c.VNodeCount == 0 {
		result = multierror.Append(result, fmt.Errorf("config: vnodeCount must be greater than zero"))
	}
	if c.Broker.EventBufferSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("config: broker.eventBufferSize must be greater than zero"))
	}
	if c.Broker.SubscriberBufferSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("config: broker.subscriberBufferSize must be greater than zero"))
	}
	return result.ErrorOrNil()
}
