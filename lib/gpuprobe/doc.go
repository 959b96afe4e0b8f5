// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package gpuprobe counts NVIDIA GPUs on the local node from sysfs,
// without depending on the NVIDIA management libraries. The count is
// advisory; it is stamped onto published scrape targets so dashboards
// can distinguish GPU nodes from CPU-only nodes.
package gpuprobe
