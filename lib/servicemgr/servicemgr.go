// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package servicemgr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/rolewatch-foundation/rolewatch/lib/clock"
)

// settleDelay is how long a unit gets to reach a stable state after
// "systemctl start" returns before the controller verifies it is
// actually active. Exporters that crash on startup typically do so
// within this window.
const settleDelay = 2 * time.Second

// Runner executes an external command and returns its output streams.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Controller manages systemd units.
type Controller struct {
	runner Runner
	clock  clock.Clock
	logger *slog.Logger

	// enable additionally enables units on start so they survive a
	// reboot without the agent.
	enable bool
}

// NewController builds a Controller. A nil runner means commands run
// through os/exec.
func NewController(runner Runner, clk clock.Clock, enable bool, logger *slog.Logger) *Controller {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Controller{
		runner: runner,
		clock:  clk,
		logger: logger,
		enable: enable,
	}
}

// Active reports whether the unit is currently active. A unit that
// systemd knows but that is stopped, failed, or not loaded reports
// false with a nil error; an error means systemctl itself could not
// answer.
func (c *Controller) Active(ctx context.Context, unit string) (bool, error) {
	stdout, _, err := c.runner.Run(ctx, "systemctl", "is-active", unit)
	state := strings.TrimSpace(stdout)
	if err != nil {
		// is-active exits nonzero for any inactive state and still
		// prints the state; only a missing state is a real failure.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && state != "" {
			return false, nil
		}
		return false, fmt.Errorf("querying %s: %w", unit, err)
	}
	return state == "active", nil
}

// Start starts the unit and verifies it stays active. The unit gets a
// short settle window after systemctl returns; a unit that is not
// active afterwards counts as a failed start.
func (c *Controller) Start(ctx context.Context, unit string) error {
	if _, stderr, err := c.runner.Run(ctx, "systemctl", "start", unit); err != nil {
		return fmt.Errorf("starting %s: %w (%s)", unit, err, strings.TrimSpace(stderr))
	}

	if c.enable {
		if _, stderr, err := c.runner.Run(ctx, "systemctl", "enable", unit); err != nil {
			// Enablement failing does not affect the running unit.
			c.logger.Warn("enabling unit failed",
				"unit", unit, "error", err, "stderr", strings.TrimSpace(stderr))
		}
	}

	c.clock.Sleep(settleDelay)

	active, err := c.Active(ctx, unit)
	if err != nil {
		return fmt.Errorf("verifying %s after start: %w", unit, err)
	}
	if !active {
		return fmt.Errorf("%s did not stay active after start", unit)
	}
	return nil
}

// Stop stops the unit.
func (c *Controller) Stop(ctx context.Context, unit string) error {
	if _, stderr, err := c.runner.Run(ctx, "systemctl", "stop", unit); err != nil {
		return fmt.Errorf("stopping %s: %w (%s)", unit, err, strings.TrimSpace(stderr))
	}
	return nil
}
