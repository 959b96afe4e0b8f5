// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from either a duration
// string ("60s", "10m") or a bare number of seconds. The bare-number
// form keeps config files written for earlier agent generations valid
// without translation.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds float64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds * float64(time.Second)))
		return nil
	}

	var text string
	if err := value.Decode(&text); err != nil {
		return fmt.Errorf("duration must be a number of seconds or a duration string: %w", err)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Exporter describes one managed telemetry exporter: the systemd unit
// to start/stop and the scrape endpoint to advertise.
type Exporter struct {
	// Service is the systemd unit name (e.g., "dcgm-exporter").
	Service string `yaml:"service"`

	// Job is the Prometheus job label for this exporter's targets.
	Job string `yaml:"job"`

	// Port is the TCP port the exporter listens on.
	Port int `yaml:"port"`
}

// Config is the agent configuration. All fields have defaults from
// Default(); a config file overrides only the fields it names.
// Unrecognized fields are ignored.
type Config struct {
	// AuthorityEndpoints are the hostnames of the role-assignment
	// authority's head nodes, tried in order. An entry may carry an
	// explicit ":port" suffix, which overrides AuthorityPort.
	AuthorityEndpoints []string `yaml:"authority_endpoints"`

	// AuthorityPort is the HTTPS port of the authority's REST API.
	AuthorityPort int `yaml:"authority_port"`

	// CertPath and KeyPath locate the client certificate and private
	// key used to authenticate to the authority.
	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`

	// Role is the authority role name that gates the exporters.
	// Membership is tested case-insensitively.
	Role string `yaml:"role"`

	// CheckInterval is how often the agent queries the authority and
	// reconciles local state.
	CheckInterval Duration `yaml:"check_interval"`

	// RetryInterval is the backoff between start attempts for a unit
	// that failed to start.
	RetryInterval Duration `yaml:"retry_interval"`

	// QueryTimeout bounds each HTTP request to a single authority
	// endpoint.
	QueryTimeout Duration `yaml:"query_timeout"`

	// MaxRetries is the number of failed start attempts after which a
	// unit is marked permanently failed and left alone until it is
	// observed running again.
	MaxRetries int `yaml:"max_retries"`

	// TargetsDir is the shared directory where per-node Prometheus
	// file-sd target descriptors are published. Typically on shared
	// storage; may be temporarily unavailable.
	TargetsDir string `yaml:"targets_dir"`

	// StateDir holds the agent's durable state file and, by default,
	// the transition journal.
	StateDir string `yaml:"state_dir"`

	// JournalPath is the SQLite transition journal. Defaults to
	// <state_dir>/journal.db. Empty after loading means journaling
	// could not be defaulted and is disabled.
	JournalPath string `yaml:"journal_path"`

	// ClusterName is the "cluster" label stamped on published targets.
	ClusterName string `yaml:"cluster_name"`

	// Exporters are the managed units and their scrape endpoints.
	Exporters []Exporter `yaml:"exporters"`

	// EnableOnStart additionally runs "systemctl enable" when starting
	// a unit, so the unit survives a reboot without the agent.
	EnableOnStart bool `yaml:"enable_on_start"`
}

// Default returns the agent defaults. They match a single-exporter
// DCGM deployment on a Slurm cluster; multi-exporter deployments list
// additional exporters in the config file.
func Default() *Config {
	return &Config{
		AuthorityPort: 8081,
		CertPath:      "/etc/rolewatch/client.pem",
		KeyPath:       "/etc/rolewatch/client.key",
		Role:          "slurmclient",
		CheckInterval: Duration(60 * time.Second),
		RetryInterval: Duration(600 * time.Second),
		QueryTimeout:  Duration(15 * time.Second),
		MaxRetries:    3,
		TargetsDir:    "/cm/shared/apps/dcgm-exporter/prometheus-targets",
		StateDir:      "/var/lib/rolewatch",
		ClusterName:   "slurm",
		Exporters: []Exporter{
			{Service: "dcgm-exporter", Job: "dcgm-exporter", Port: 9400},
		},
	}
}

// LoadFile loads configuration from path, merging over Default() and
// validating the result. YAML is the native format; files ending in
// .json are accepted as JSON with comments and trailing commas (the
// format of earlier agent generations).
//
// The config file is the single source of truth: environment variables
// do not override config values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.JournalPath == "" && cfg.StateDir != "" {
		cfg.JournalPath = filepath.Join(cfg.StateDir, "journal.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors. All problems are
// reported at once rather than one per load attempt.
func (c *Config) Validate() error {
	var errs []error

	if len(c.AuthorityEndpoints) == 0 {
		errs = append(errs, fmt.Errorf("authority_endpoints is required"))
	}
	if c.AuthorityPort <= 0 || c.AuthorityPort > 65535 {
		errs = append(errs, fmt.Errorf("authority_port %d out of range", c.AuthorityPort))
	}
	if c.CertPath == "" {
		errs = append(errs, fmt.Errorf("cert_path is required"))
	}
	if c.KeyPath == "" {
		errs = append(errs, fmt.Errorf("key_path is required"))
	}
	if c.Role == "" {
		errs = append(errs, fmt.Errorf("role is required"))
	}
	if c.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("check_interval must be positive"))
	}
	if c.RetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("retry_interval must be positive"))
	}
	if c.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("query_timeout must be positive"))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max_retries must be at least 1"))
	}
	if c.TargetsDir == "" {
		errs = append(errs, fmt.Errorf("targets_dir is required"))
	}
	if c.StateDir == "" {
		errs = append(errs, fmt.Errorf("state_dir is required"))
	}
	if c.ClusterName == "" {
		errs = append(errs, fmt.Errorf("cluster_name is required"))
	}
	if len(c.Exporters) == 0 {
		errs = append(errs, fmt.Errorf("at least one exporter is required"))
	}
	for i, exporter := range c.Exporters {
		if exporter.Service == "" {
			errs = append(errs, fmt.Errorf("exporters[%d].service is required", i))
		}
		if exporter.Job == "" {
			errs = append(errs, fmt.Errorf("exporters[%d].job is required", i))
		}
		if exporter.Port <= 0 || exporter.Port > 65535 {
			errs = append(errs, fmt.Errorf("exporters[%d].port %d out of range", i, exporter.Port))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
