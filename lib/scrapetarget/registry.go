// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package scrapetarget

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rolewatch-foundation/rolewatch/lib/atomicfile"
)

// ErrUnavailable reports that the targets directory does not exist,
// typically because its shared filesystem is not mounted. The
// condition is transient; callers retry on the next cycle.
var ErrUnavailable = errors.New("targets directory unavailable")

// Target is one file-sd target group: the scrape addresses and the
// labels stamped onto every series they produce.
type Target struct {
	Targets []string          `json:"targets"`
	Labels  map[string]string `json:"labels"`
}

// Registry publishes per-node descriptor files into a shared
// directory.
type Registry struct {
	dir    string
	logger *slog.Logger
}

// NewRegistry returns a Registry writing into dir. The directory is
// not required to exist yet; Publish reports ErrUnavailable until it
// does.
func NewRegistry(dir string, logger *slog.Logger) *Registry {
	return &Registry{dir: dir, logger: logger}
}

// Path returns the descriptor path for hostname.
func (r *Registry) Path(hostname string) string {
	return filepath.Join(r.dir, hostname+".json")
}

// Publish writes the node's descriptor file. The write is atomic: any
// concurrent reader sees either the previous content or the new
// content, never a torn file. If the current content already matches,
// no write happens, keeping the file's mtime stable for unchanged
// state.
func (r *Registry) Publish(hostname string, targets []Target) error {
	info, err := os.Stat(r.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnavailable, r.dir)
	}

	content, err := json.MarshalIndent(targets, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding targets: %w", err)
	}
	content = append(content, '\n')

	path := r.Path(hostname)
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, content) {
		return nil
	}

	if err := atomicfile.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("publishing %s: %w", path, err)
	}
	r.logger.Info("published scrape targets",
		"path", path, "groups", len(targets))
	return nil
}

// Retract removes the node's descriptor file. Removing an absent file
// is not an error; retraction is idempotent.
func (r *Registry) Retract(hostname string) error {
	path := r.Path(hostname)
	err := os.Remove(path)
	if err == nil {
		r.logger.Info("retracted scrape targets", "path", path)
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		// A missing descriptor is fine, a missing directory means the
		// shared filesystem is unmounted and nothing can be concluded.
		if _, statErr := os.Stat(r.dir); statErr != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, statErr)
		}
		return nil
	}
	return fmt.Errorf("retracting %s: %w", path, err)
}
