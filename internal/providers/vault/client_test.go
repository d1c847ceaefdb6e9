package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/vaultboot/internal/config"
	dserrors "github.com/systmms/vaultboot/internal/errors"
	"github.com/systmms/vaultboot/internal/logging"
	"github.com/systmms/vaultboot/pkg/provider"
)

const goodToken = "hvs.good"

// fakeVault serves the handful of endpoints the client touches
type fakeVault struct {
	reads      atomic.Int32
	lookups    atomic.Int32
	namespaced atomic.Int32
}

func (v *fakeVault) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Header.Get("X-Vault-Namespace") != "" {
		v.namespaced.Add(1)
	}

	if r.Header.Get("X-Vault-Token") != goodToken {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
		return
	}

	metadata := map[string]interface{}{
		"created_time":    "2024-03-01T10:00:00.000000000Z",
		"custom_metadata": nil,
		"deletion_time":   "",
		"destroyed":       false,
		"version":         3,
	}

	switch r.URL.Path {
	case "/v1/auth/token/lookup-self":
		v.lookups.Add(1)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"id": goodToken, "policies": []string{"default"}},
		})
	case "/v1/kv/data/store":
		v.reads.Add(1)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"data":     map[string]interface{}{"password": "s3cr3t", "port": 5432},
				"metadata": metadata,
			},
		})
	case "/v1/kv/data/deleted":
		v.reads.Add(1)
		deleted := map[string]interface{}{}
		for k, val := range metadata {
			deleted[k] = val
		}
		deleted["deletion_time"] = "2024-03-02T10:00:00.000000000Z"
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"data": map[string]interface{}{"data": nil, "metadata": deleted},
		})
	case "/v1/kv/data/broken":
		v.reads.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"errors": []string{"internal error"}})
	default:
		v.reads.Add(1)
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"errors": []string{}})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, addr, token string, trust config.TrustMode) *APIClient {
	t.Helper()

	client, err := NewAPIClient(config.Settings{
		Address: addr,
		Token:   token,
		Trust:   trust,
		Timeout: 5 * time.Second,
	}, logging.NewWithWriter(&bytes.Buffer{}, false, true))
	require.NoError(t, err)
	return client
}

func TestAPIClient_CheckAuth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&fakeVault{})
	t.Cleanup(srv.Close)

	ok, err := newTestClient(t, srv.URL, goodToken, config.TrustMode{}).CheckAuth(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = newTestClient(t, srv.URL, "hvs.revoked", config.TrustMode{}).CheckAuth(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAPIClient_CheckAuth_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&fakeVault{})
	addr := srv.URL
	srv.Close()

	ok, err := newTestClient(t, addr, goodToken, config.TrustMode{}).CheckAuth(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestAPIClient_ReadLatest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&fakeVault{})
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL, goodToken, config.TrustMode{})

	data, err := client.ReadLatest(context.Background(), "kv", "store")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", data["password"])

	_, err = client.ReadLatest(context.Background(), "kv", "missing")
	assert.ErrorIs(t, err, dserrors.ErrNotFound)

	_, err = client.ReadLatest(context.Background(), "kv", "deleted")
	assert.ErrorIs(t, err, dserrors.ErrNotFound)
}

func TestAPIClient_ReadLatest_NoRetry(t *testing.T) {
	t.Parallel()

	fake := &fakeVault{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL, goodToken, config.TrustMode{})

	_, err := client.ReadLatest(context.Background(), "kv", "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, dserrors.ErrNotFound)
	assert.Equal(t, int32(1), fake.reads.Load(), "a 500 must not be retried")
}

func TestFetcher_AgainstFakeVault(t *testing.T) {
	t.Parallel()

	fake := &fakeVault{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	settings := config.Settings{Address: srv.URL, Token: goodToken, Timeout: 5 * time.Second}
	f, err := New(settings, logging.NewWithWriter(&bytes.Buffer{}, false, true))
	require.NoError(t, err)

	value, err := f.Fetch(context.Background(), provider.DefaultReference)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", value)

	port, err := f.Fetch(context.Background(), provider.Reference{Mount: "kv", Path: "store", Field: "port"})
	require.NoError(t, err)
	assert.Equal(t, "5432", port)

	settings.Token = "hvs.revoked"
	rejected, err := New(settings, logging.NewWithWriter(&bytes.Buffer{}, false, true))
	require.NoError(t, err)

	readsBefore := fake.reads.Load()
	_, err = rejected.Fetch(context.Background(), provider.DefaultReference)
	assert.ErrorIs(t, err, dserrors.ErrAuthenticationFailed)
	assert.Equal(t, readsBefore, fake.reads.Load())
}

// TestAPIClient_IgnoresAgentAndNamespaceEnv touches the process environment
// and must not run in parallel.
func TestAPIClient_IgnoresAgentAndNamespaceEnv(t *testing.T) {
	fake := &fakeVault{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	var agentHits atomic.Int32
	var agentToken atomic.Value
	agent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agentHits.Add(1)
		agentToken.Store(r.Header.Get("X-Vault-Token"))
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(agent.Close)

	t.Setenv("VAULT_AGENT_ADDR", agent.URL)
	t.Setenv("VAULT_NAMESPACE", "team-a")

	client := newTestClient(t, srv.URL, goodToken, config.TrustMode{})

	ok, err := client.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := client.ReadLatest(context.Background(), "kv", "store")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", data["password"])

	assert.Equal(t, int32(1), fake.lookups.Load())
	assert.Equal(t, int32(0), fake.namespaced.Load(), "no namespace header may be sent")
	assert.Equal(t, int32(0), agentHits.Load(), "the token must only go to the resolved address")
	assert.Nil(t, agentToken.Load())
}

func writeServerCA(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(path, block, 0o600))
	return path
}

// TestAPIClient_TrustModes sets VAULT_* variables per case, so it runs serially.
func TestAPIClient_TrustModes(t *testing.T) {
	srv := httptest.NewTLSServer(&fakeVault{})
	t.Cleanup(srv.Close)
	caPath := writeServerCA(t, srv)

	tests := []struct {
		name    string
		trust   config.TrustMode
		env     map[string]string
		wantErr bool
	}{
		{"insecure skips verification", config.TrustMode{Kind: config.Insecure}, nil, false},
		{"system trust rejects self-signed", config.TrustMode{Kind: config.VerifySystemTrust}, nil, true},
		{"ca bundle accepts server", config.TrustMode{Kind: config.VerifyWithCABundle, CABundle: caPath}, nil, false},
		{
			"system trust ignores VAULT_SKIP_VERIFY",
			config.TrustMode{Kind: config.VerifySystemTrust},
			map[string]string{"VAULT_SKIP_VERIFY": "true"},
			true,
		},
		{
			"system trust ignores VAULT_CAPATH",
			config.TrustMode{Kind: config.VerifySystemTrust},
			map[string]string{"VAULT_CAPATH": filepath.Dir(caPath)},
			true,
		},
		{
			"ca bundle ignores VAULT_SKIP_VERIFY",
			config.TrustMode{Kind: config.VerifyWithCABundle, CABundle: caPath},
			map[string]string{"VAULT_SKIP_VERIFY": "true"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			ok, err := newTestClient(t, srv.URL, goodToken, tt.trust).CheckAuth(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestNewAPIClient_MissingCABundle(t *testing.T) {
	t.Parallel()

	_, err := NewAPIClient(config.Settings{
		Address: "https://vault.example.com:8200",
		Token:   goodToken,
		Trust:   config.TrustMode{Kind: config.VerifyWithCABundle, CABundle: filepath.Join(t.TempDir(), "nope.pem")},
		Timeout: time.Second,
	}, logging.NewWithWriter(&bytes.Buffer{}, false, true))

	require.Error(t, err)
	assert.True(t, dserrors.IsConfigError(err))
}
