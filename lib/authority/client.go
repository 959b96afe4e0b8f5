// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RoleStatus is the outcome of a role query.
type RoleStatus int

const (
	// RoleUnknown means the query could not be answered: no endpoint
	// produced a usable device listing. Callers must treat this as
	// "no information" and leave local state untouched.
	RoleUnknown RoleStatus = iota

	// RoleHeld means the node appears in the device listing with the
	// configured role.
	RoleHeld

	// RoleAbsent means the node appears in the device listing without
	// the configured role.
	RoleAbsent
)

func (s RoleStatus) String() string {
	switch s {
	case RoleHeld:
		return "held"
	case RoleAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Endpoints are authority head nodes, tried in order. An entry may
	// carry an explicit ":port" suffix; otherwise Port applies.
	Endpoints []string

	// Port is the default HTTPS port for endpoints without one.
	Port int

	// Role is the role name to test for. Matching is
	// case-insensitive.
	Role string

	// CertPath and KeyPath locate the client certificate and key.
	CertPath string
	KeyPath  string

	// Timeout bounds each request to a single endpoint.
	Timeout time.Duration

	// Logger receives per-endpoint failure details. Required.
	Logger *slog.Logger
}

// Client queries role assignments from the authority.
type Client struct {
	endpoints  []string
	port       int
	role       string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a Client, loading the client certificate from
// disk. The authority's server certificate is self-signed per cluster
// and not anchored in any system trust store, so server verification
// is skipped; authentication rests on the client certificate, which
// the authority verifies.
func NewClient(cfg ClientConfig) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("no authority endpoints configured")
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading client certificate: %w", err)
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates:       []tls.Certificate{cert},
			InsecureSkipVerify: true,
		},
	}

	return &Client{
		endpoints: cfg.Endpoints,
		port:      cfg.Port,
		role:      cfg.Role,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: cfg.Logger,
	}, nil
}

// device is the subset of the authority's device record the client
// needs: the device hostname and its assigned roles.
type device struct {
	Hostname string   `json:"hostname"`
	Roles    []string `json:"roles"`
}

// deviceEnvelope is the wrapped response form some authority versions
// return; others return the device array bare.
type deviceEnvelope struct {
	Data []device `json:"data"`
}

// QueryRole reports whether hostname holds the configured role. It
// tries each endpoint in order and returns the first usable answer.
// If every endpoint fails, or the node appears in no endpoint's
// listing, the result is RoleUnknown.
func (c *Client) QueryRole(ctx context.Context, hostname string) RoleStatus {
	short := shortName(hostname)
	for _, endpoint := range c.endpoints {
		devices, err := c.fetchDevices(ctx, endpoint)
		if err != nil {
			c.logger.Warn("authority query failed",
				"endpoint", endpoint, "error", err)
			continue
		}

		found := false
		for _, dev := range devices {
			if shortName(dev.Hostname) != short {
				continue
			}
			found = true
			for _, role := range dev.Roles {
				if strings.EqualFold(role, c.role) {
					return RoleHeld
				}
			}
		}
		if found {
			return RoleAbsent
		}
		c.logger.Warn("node not in authority device listing",
			"endpoint", endpoint, "hostname", short)
	}
	return RoleUnknown
}

// Ping probes the endpoints and returns nil if any responds to a
// device listing request. Used at startup to surface configuration
// problems early; a failure is not fatal since the authority may
// simply be down.
func (c *Client) Ping(ctx context.Context) error {
	var lastErr error
	for _, endpoint := range c.endpoints {
		if _, err := c.fetchDevices(ctx, endpoint); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("no authority endpoint reachable: %w", lastErr)
}

func (c *Client) fetchDevices(ctx context.Context, endpoint string) ([]device, error) {
	url := "https://" + c.hostPort(endpoint) + "/rest/v1/device"
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		return nil, fmt.Errorf("authority returned %s", response.Status)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("reading authority response: %w", err)
	}
	return parseDevices(body)
}

// hostPort appends the default port unless the endpoint already
// carries one.
func (c *Client) hostPort(endpoint string) string {
	if _, _, err := net.SplitHostPort(endpoint); err == nil {
		return endpoint
	}
	return net.JoinHostPort(endpoint, strconv.Itoa(c.port))
}

// parseDevices accepts both response forms the authority is known to
// produce: a bare device array and a {"data": [...]} envelope.
func parseDevices(body []byte) ([]device, error) {
	var bare []device
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	var envelope deviceEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parsing device listing: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("device listing has no data field")
	}
	return envelope.Data, nil
}

// shortName strips any domain suffix so that "node1.cluster.local"
// and "node1" compare equal.
func shortName(hostname string) string {
	if i := strings.IndexByte(hostname, '.'); i >= 0 {
		return strings.ToLower(hostname[:i])
	}
	return strings.ToLower(hostname)
}
