// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeClientCert generates a self-signed certificate and key in a
// temp directory and returns their paths.
func writeClientCert(t *testing.T) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "node1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshaling key: %v", err)
	}

	dir := t.TempDir()
	certPath = filepath.Join(dir, "client.pem")
	keyPath = filepath.Join(dir, "client.key")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(certPath, certPEM, 0600); err != nil {
		t.Fatalf("writing cert: %v", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		t.Fatalf("writing key: %v", err)
	}
	return certPath, keyPath
}

// startAuthority serves the given device-listing body over TLS,
// demanding a client certificate like the real authority does.
func startAuthority(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewUnstartedServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/rest/v1/device" {
				http.NotFound(w, r)
				return
			}
			w.WriteHeader(status)
			w.Write([]byte(body))
		}))
	server.TLS = &tls.Config{ClientAuth: tls.RequireAnyClientCert}
	server.StartTLS()
	t.Cleanup(server.Close)
	return server
}

func endpointOf(server *httptest.Server) string {
	return strings.TrimPrefix(server.URL, "https://")
}

func newTestClient(t *testing.T, endpoints ...string) *Client {
	t.Helper()
	certPath, keyPath := writeClientCert(t)
	client, err := NewClient(ClientConfig{
		Endpoints: endpoints,
		Port:      8081,
		Role:      "slurmclient",
		CertPath:  certPath,
		KeyPath:   keyPath,
		Timeout:   5 * time.Second,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return client
}

func TestQueryRoleHeld(t *testing.T) {
	server := startAuthority(t, http.StatusOK,
		`[{"hostname": "node1", "roles": ["bootrole", "SlurmClient"]}]`)
	client := newTestClient(t, endpointOf(server))

	if got := client.QueryRole(context.Background(), "node1"); got != RoleHeld {
		t.Errorf("QueryRole() = %v, want RoleHeld", got)
	}
}

func TestQueryRoleAbsent(t *testing.T) {
	server := startAuthority(t, http.StatusOK,
		`[{"hostname": "node1", "roles": ["bootrole"]}]`)
	client := newTestClient(t, endpointOf(server))

	if got := client.QueryRole(context.Background(), "node1"); got != RoleAbsent {
		t.Errorf("QueryRole() = %v, want RoleAbsent", got)
	}
}

func TestQueryRoleShortNameMatch(t *testing.T) {
	server := startAuthority(t, http.StatusOK,
		`[{"hostname": "node1.cluster.local", "roles": ["slurmclient"]}]`)
	client := newTestClient(t, endpointOf(server))

	if got := client.QueryRole(context.Background(), "node1.internal"); got != RoleHeld {
		t.Errorf("QueryRole() = %v, want RoleHeld", got)
	}
}

func TestQueryRoleEnvelopeForm(t *testing.T) {
	server := startAuthority(t, http.StatusOK,
		`{"data": [{"hostname": "node1", "roles": ["slurmclient"]}]}`)
	client := newTestClient(t, endpointOf(server))

	if got := client.QueryRole(context.Background(), "node1"); got != RoleHeld {
		t.Errorf("QueryRole() = %v, want RoleHeld", got)
	}
}

func TestQueryRoleNodeMissing(t *testing.T) {
	server := startAuthority(t, http.StatusOK,
		`[{"hostname": "other", "roles": ["slurmclient"]}]`)
	client := newTestClient(t, endpointOf(server))

	if got := client.QueryRole(context.Background(), "node1"); got != RoleUnknown {
		t.Errorf("QueryRole() = %v, want RoleUnknown", got)
	}
}

func TestQueryRoleAllEndpointsDown(t *testing.T) {
	client := newTestClient(t, "127.0.0.1:1", "127.0.0.2:1")

	if got := client.QueryRole(context.Background(), "node1"); got != RoleUnknown {
		t.Errorf("QueryRole() = %v, want RoleUnknown", got)
	}
}

func TestQueryRoleFailover(t *testing.T) {
	server := startAuthority(t, http.StatusOK,
		`[{"hostname": "node1", "roles": ["slurmclient"]}]`)
	client := newTestClient(t, "127.0.0.1:1", endpointOf(server))

	if got := client.QueryRole(context.Background(), "node1"); got != RoleHeld {
		t.Errorf("QueryRole() = %v, want RoleHeld after failover", got)
	}
}

func TestQueryRoleServerError(t *testing.T) {
	server := startAuthority(t, http.StatusInternalServerError, "boom")
	client := newTestClient(t, endpointOf(server))

	if got := client.QueryRole(context.Background(), "node1"); got != RoleUnknown {
		t.Errorf("QueryRole() = %v, want RoleUnknown", got)
	}
}

func TestQueryRoleMalformedBody(t *testing.T) {
	server := startAuthority(t, http.StatusOK, `{"unexpected": true}`)
	client := newTestClient(t, endpointOf(server))

	if got := client.QueryRole(context.Background(), "node1"); got != RoleUnknown {
		t.Errorf("QueryRole() = %v, want RoleUnknown", got)
	}
}

func TestPing(t *testing.T) {
	server := startAuthority(t, http.StatusOK, `[]`)
	client := newTestClient(t, endpointOf(server))

	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestPingAllDown(t *testing.T) {
	client := newTestClient(t, "127.0.0.1:1")

	if err := client.Ping(context.Background()); err == nil {
		t.Error("Ping() = nil, want error")
	}
}

func TestNewClientMissingCert(t *testing.T) {
	_, err := NewClient(ClientConfig{
		Endpoints: []string{"head1"},
		CertPath:  "/nonexistent/client.pem",
		KeyPath:   "/nonexistent/client.key",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err == nil {
		t.Fatal("NewClient() = nil error, want certificate load failure")
	}
}

func TestRoleStatusString(t *testing.T) {
	if RoleHeld.String() != "held" || RoleAbsent.String() != "absent" || RoleUnknown.String() != "unknown" {
		t.Errorf("unexpected RoleStatus strings: %v %v %v", RoleHeld, RoleAbsent, RoleUnknown)
	}
}
