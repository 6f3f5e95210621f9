package main

import (
	"os"

	"gopkg.in/yaml.v2"
)

// config is the on-disk shape for the demo's optional config file. Flags
// override whatever a config file sets.
type config struct {
	Address     string `yaml:"address"`
	Heartbeat   bool   `yaml:"heartbeat"`
	FlushOnExit bool   `yaml:"flush_on_exit"`
	MetricsAddr string `yaml:"metrics_addr"`
}

func loadConfig(file string) (*config, error) {
	cfg := &config{}
	if file == "" {
		applyDefaults(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *config) {
	if cfg.Address == "" {
		cfg.Address = "tcp://127.0.0.1:5555"
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9090"
	}
}
