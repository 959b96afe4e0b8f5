// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package statefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rolewatch-foundation/rolewatch/lib/atomicfile"
)

// RetryState is the start-attempt bookkeeping for one systemd unit.
type RetryState struct {
	// Attempts is the number of consecutive failed start attempts.
	Attempts int `json:"attempts"`

	// LastAttempt is when the most recent start attempt was made.
	LastAttempt *time.Time `json:"last_attempt,omitempty"`

	// NextEligible is the earliest time another start attempt may be
	// made.
	NextEligible *time.Time `json:"next_eligible,omitempty"`

	// PermanentlyFailed is set once Attempts reaches the configured
	// maximum. The unit is left alone until it is observed running
	// again.
	PermanentlyFailed bool `json:"permanently_failed"`
}

// AgentState is everything the agent persists between runs.
type AgentState struct {
	// HasRole is the last definite role answer from the authority.
	HasRole bool `json:"has_role"`

	// LastCheck is when that answer was obtained.
	LastCheck time.Time `json:"last_check"`

	// RetryState maps unit name to its retry bookkeeping.
	RetryState map[string]RetryState `json:"retry_state"`
}

// Store reads and writes the per-node state file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore returns a Store for the given node in stateDir. The file
// name carries the hostname so that state directories shared between
// nodes (or copied around for debugging) stay unambiguous.
func NewStore(stateDir, hostname string, logger *slog.Logger) *Store {
	return &Store{
		path:   filepath.Join(stateDir, hostname+"_state.json"),
		logger: logger,
	}
}

// Path returns the state file path.
func (s *Store) Path() string { return s.path }

// Load reads the persisted state. The second return is false when no
// usable state exists: a missing file is normal first-run behavior,
// and a corrupt file is logged and discarded rather than treated as
// fatal.
func (s *Store) Load() (AgentState, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("state file unreadable, starting fresh",
				"path", s.path, "error", err)
		}
		return AgentState{}, false
	}

	var state AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("state file corrupt, starting fresh",
			"path", s.path, "error", err)
		return AgentState{}, false
	}
	if state.RetryState == nil {
		state.RetryState = make(map[string]RetryState)
	}
	return state, true
}

// Save writes the state atomically. The state directory is created if
// needed.
func (s *Store) Save(state AgentState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	content, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	content = append(content, '\n')

	if err := atomicfile.WriteFile(s.path, content, 0600); err != nil {
		return fmt.Errorf("writing state %s: %w", s.path, err)
	}
	return nil
}
