// config.go
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"
)

const (
	defaultRemote      = "https://data.ling101.com/welsh-csc/data/"
	defaultDataDir     = "./data"
	defaultConcurrency = 8

	// CPU-bound pools are capped to bound memory and process-table
	// pressure regardless of core count.
	maxChopWorkers = 12
	maxMonoWorkers = 4
)

// Config describes runtime defaults for all commands. Command-line flags
// override whatever the file provides.
type Config struct {
	Remote              string `yaml:"remote"`
	DataDir             string `yaml:"data_dir"`
	DownloadConcurrency int    `yaml:"download_concurrency"`
	ChopWorkers         int    `yaml:"chop_workers"`
	MonoWorkers         int    `yaml:"mono_workers"`
	BandwidthLimit      int64  `yaml:"bandwidth_limit"` // bytes/sec, 0 = unlimited
	Debug               bool   `yaml:"debug"`
}

// DefaultConfig sizes the CPU-bound pools from the physical core count.
func DefaultConfig() Config {
	cores := physicalCores()
	return Config{
		Remote:              defaultRemote,
		DataDir:             defaultDataDir,
		DownloadConcurrency: defaultConcurrency,
		ChopWorkers:         minInt(maxChopWorkers, cores),
		MonoWorkers:         minInt(maxMonoWorkers, cores),
	}
}

// LoadConfig reads YAML config from path. A missing or empty file yields the
// defaults with no error; a present but invalid file is a configuration
// error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DownloadConcurrency < 1 {
		return cfg, fmt.Errorf("invalid download_concurrency: %d (must be >= 1)", cfg.DownloadConcurrency)
	}
	if cfg.ChopWorkers < 1 || cfg.ChopWorkers > maxChopWorkers {
		return cfg, fmt.Errorf("invalid chop_workers: %d (must be 1..%d)", cfg.ChopWorkers, maxChopWorkers)
	}
	if cfg.MonoWorkers < 1 || cfg.MonoWorkers > maxMonoWorkers {
		return cfg, fmt.Errorf("invalid mono_workers: %d (must be 1..%d)", cfg.MonoWorkers, maxMonoWorkers)
	}
	if _, err := validateRemote(cfg.Remote); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// physicalCores prefers the physical count over logical so hyperthreads do
// not double the CPU-bound pools.
func physicalCores() int {
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
