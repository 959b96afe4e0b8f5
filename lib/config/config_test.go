// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.AuthorityPort != 8081 {
		t.Errorf("AuthorityPort = %d, want 8081", cfg.AuthorityPort)
	}
	if cfg.Role != "slurmclient" {
		t.Errorf("Role = %q, want slurmclient", cfg.Role)
	}
	if cfg.CheckInterval.Std() != 60*time.Second {
		t.Errorf("CheckInterval = %v, want 60s", cfg.CheckInterval.Std())
	}
	if cfg.RetryInterval.Std() != 600*time.Second {
		t.Errorf("RetryInterval = %v, want 600s", cfg.RetryInterval.Std())
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if len(cfg.Exporters) != 1 || cfg.Exporters[0].Service != "dcgm-exporter" || cfg.Exporters[0].Port != 9400 {
		t.Errorf("Exporters = %+v, want single dcgm-exporter on 9400", cfg.Exporters)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := writeConfig(t, "rolewatch.yaml", `
authority_endpoints: [head1, head2]
cluster_name: prod
check_interval: 30s
exporters:
  - service: dcgm-exporter
    job: dcgm-exporter
    port: 9400
  - service: node_exporter
    job: node_exporter
    port: 9100
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	if len(cfg.AuthorityEndpoints) != 2 || cfg.AuthorityEndpoints[0] != "head1" {
		t.Errorf("AuthorityEndpoints = %v", cfg.AuthorityEndpoints)
	}
	if cfg.ClusterName != "prod" {
		t.Errorf("ClusterName = %q, want prod", cfg.ClusterName)
	}
	if cfg.CheckInterval.Std() != 30*time.Second {
		t.Errorf("CheckInterval = %v, want 30s", cfg.CheckInterval.Std())
	}
	// Unnamed fields keep their defaults.
	if cfg.RetryInterval.Std() != 600*time.Second {
		t.Errorf("RetryInterval = %v, want default 600s", cfg.RetryInterval.Std())
	}
	if len(cfg.Exporters) != 2 {
		t.Errorf("Exporters = %+v, want 2 entries", cfg.Exporters)
	}
	// Journal path defaults under the state dir.
	if want := filepath.Join(cfg.StateDir, "journal.db"); cfg.JournalPath != want {
		t.Errorf("JournalPath = %q, want %q", cfg.JournalPath, want)
	}
}

func TestLoadFileJSONWithComments(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  // head nodes, tried in order
  "authority_endpoints": ["head1"],
  "check_interval": 120,
  "max_retries": 5,
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if cfg.CheckInterval.Std() != 120*time.Second {
		t.Errorf("CheckInterval = %v, want 120s (bare seconds)", cfg.CheckInterval.Std())
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
}

func TestLoadFileUnknownFieldsIgnored(t *testing.T) {
	path := writeConfig(t, "rolewatch.yaml", `
authority_endpoints: [head1]
some_future_option: true
`)

	if _, err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no endpoints", func(c *Config) { c.AuthorityEndpoints = nil }, "authority_endpoints"},
		{"bad port", func(c *Config) { c.AuthorityPort = 0 }, "authority_port"},
		{"no role", func(c *Config) { c.Role = "" }, "role is required"},
		{"zero interval", func(c *Config) { c.CheckInterval = 0 }, "check_interval"},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, "max_retries"},
		{"no exporters", func(c *Config) { c.Exporters = nil }, "at least one exporter"},
		{"exporter missing job", func(c *Config) { c.Exporters[0].Job = "" }, "exporters[0].job"},
		{"exporter bad port", func(c *Config) { c.Exporters[0].Port = 70000 }, "exporters[0].port"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			cfg.AuthorityEndpoints = []string{"head1"}
			test.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %v, want mention of %q", err, test.want)
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.AuthorityEndpoints = nil
	cfg.Role = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"authority_endpoints", "role is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %v, missing %q", err, want)
		}
	}
}

func TestDurationForms(t *testing.T) {
	path := writeConfig(t, "rolewatch.yaml", `
authority_endpoints: [head1]
check_interval: 1m30s
retry_interval: 45.5
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if cfg.CheckInterval.Std() != 90*time.Second {
		t.Errorf("CheckInterval = %v, want 1m30s", cfg.CheckInterval.Std())
	}
	if cfg.RetryInterval.Std() != 45500*time.Millisecond {
		t.Errorf("RetryInterval = %v, want 45.5s", cfg.RetryInterval.Std())
	}
}
