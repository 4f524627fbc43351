package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig(missing) error = %v, want nil", err)
	}
	if cfg.Remote != defaultRemote || cfg.DataDir != defaultDataDir {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.DownloadConcurrency != defaultConcurrency {
		t.Errorf("DownloadConcurrency = %d, want %d", cfg.DownloadConcurrency, defaultConcurrency)
	}
	if cfg.ChopWorkers < 1 || cfg.ChopWorkers > maxChopWorkers {
		t.Errorf("ChopWorkers = %d, want 1..%d", cfg.ChopWorkers, maxChopWorkers)
	}
	if cfg.MonoWorkers < 1 || cfg.MonoWorkers > maxMonoWorkers {
		t.Errorf("MonoWorkers = %d, want 1..%d", cfg.MonoWorkers, maxMonoWorkers)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := "remote: https://mirror.example.org/csc\ndata_dir: /srv/csc\ndownload_concurrency: 2\nbandwidth_limit: 1048576\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Remote != "https://mirror.example.org/csc" {
		t.Errorf("Remote = %q", cfg.Remote)
	}
	if cfg.DataDir != "/srv/csc" || cfg.DownloadConcurrency != 2 || cfg.BandwidthLimit != 1048576 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"conc.yaml":   "download_concurrency: 0\n",
		"chop.yaml":   "chop_workers: 99\n",
		"mono.yaml":   "mono_workers: -1\n",
		"scheme.yaml": "remote: ftp://data.example.com/\n",
		"syntax.yaml": "remote: [unclosed\n",
	}
	for name, content := range tests {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("LoadConfig(%s) error = nil, want error", name)
		}
	}
}

func TestPhysicalCores(t *testing.T) {
	if physicalCores() < 1 {
		t.Error("physicalCores() < 1")
	}
}
