// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package servicemgr starts, stops, and inspects systemd units via
// systemctl. Command execution sits behind a small Runner interface so
// tests can exercise the controller without a live systemd.
package servicemgr
