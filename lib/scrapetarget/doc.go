// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package scrapetarget publishes Prometheus file-sd target descriptors
// to a shared directory. Each node owns exactly one descriptor file,
// written atomically so a Prometheus reload never observes a partial
// file.
package scrapetarget
