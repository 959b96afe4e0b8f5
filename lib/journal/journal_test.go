// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openJournal(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []struct {
		kind, detail string
	}{
		{KindAgentStart, "agent started"},
		{KindRoleAdded, "role slurmclient assigned"},
		{KindPermanentFailure, "dcgm-exporter failed 3 times"},
	}
	for i, e := range events {
		if err := j.Record(base.Add(time.Duration(i)*time.Minute), e.kind, e.detail); err != nil {
			t.Fatalf("Record(%s) error: %v", e.kind, err)
		}
	}

	got, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent() returned %d events, want 3", len(got))
	}
	// Newest first.
	if got[0].Kind != KindPermanentFailure {
		t.Errorf("newest event kind = %q, want %q", got[0].Kind, KindPermanentFailure)
	}
	if got[2].Kind != KindAgentStart {
		t.Errorf("oldest event kind = %q, want %q", got[2].Kind, KindAgentStart)
	}
	if !got[0].At.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("newest event at = %v, want %v", got[0].At, base.Add(2*time.Minute))
	}
}

func TestRecentLimit(t *testing.T) {
	j := openJournal(t)

	now := time.Now()
	for i := 0; i < 5; i++ {
		if err := j.Record(now, KindRoleAdded, "x"); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	got, err := j.Recent(2)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Recent(2) returned %d events", len(got))
	}
}

func TestReopenKeepsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := j.Record(time.Now(), KindRoleRemoved, "role withdrawn"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer j.Close()

	got, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 1 || got[0].Kind != KindRoleRemoved {
		t.Errorf("events after reopen = %+v", got)
	}
}
