package vault

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/systmms/vaultboot/internal/config"
	dserrors "github.com/systmms/vaultboot/internal/errors"
	"github.com/systmms/vaultboot/internal/logging"
)

// APIClient implements Store on top of the official Vault API client
type APIClient struct {
	client *api.Client
}

// NewAPIClient builds a Vault client bound to the settings' address, trust
// mode and timeout. It performs no network I/O.
func NewAPIClient(settings config.Settings, logger *logging.Logger) (*APIClient, error) {
	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		// DefaultConfig also reads VAULT_CACERT, VAULT_CAPATH and friends
		return nil, dserrors.ConfigError{
			Field:      "environment",
			Message:    fmt.Sprintf("failed to read vault environment: %v", cfg.Error),
			Suggestion: "Check VAULT_CACERT and the other VAULT_* variables",
		}
	}

	cfg.Address = settings.Address
	// VAULT_AGENT_ADDR would reroute every request, token included
	cfg.AgentAddress = ""
	cfg.SRVLookup = false
	// One attempt per call; vault/api retries 5xx twice by default
	cfg.MaxRetries = 0
	if settings.Timeout > 0 {
		cfg.Timeout = settings.Timeout
		cfg.HttpClient.Timeout = settings.Timeout
	}

	if err := applyTrust(cfg, settings.Trust); err != nil {
		return nil, err
	}
	if settings.Trust.Kind == config.Insecure && strings.HasPrefix(settings.Address, "https://") {
		logger.WarnInsecure("TLS certificate verification is disabled for %s", settings.Address)
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(settings.Token)
	// NewClient picks up VAULT_NAMESPACE; the resolved settings carry none
	client.ClearNamespace()

	return &APIClient{client: client}, nil
}

// CheckAuth looks up the client's own token. A 401 or 403 means the token was
// rejected; any other failure is returned as an error.
func (c *APIClient) CheckAuth(ctx context.Context) (bool, error) {
	_, err := c.client.Auth().Token().LookupSelfWithContext(ctx)
	if err == nil {
		return true, nil
	}

	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return false, nil
		}
	}
	return false, err
}

// ReadLatest reads the latest version of a KV v2 secret and returns its data map
func (c *APIClient) ReadLatest(ctx context.Context, mount, path string) (map[string]interface{}, error) {
	secret, err := c.client.KVv2(mount).Get(ctx, path)
	if err != nil {
		if errors.Is(err, api.ErrSecretNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", mount, path, dserrors.ErrNotFound)
		}
		return nil, err
	}

	// The latest version was deleted or destroyed: only metadata remains
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%s/%s (latest version deleted): %w", mount, path, dserrors.ErrNotFound)
	}

	return secret.Data, nil
}

// applyTrust rewrites the client's TLS settings so that exactly the resolved
// trust mode applies, whatever VAULT_SKIP_VERIFY or VAULT_CAPATH said.
func applyTrust(cfg *api.Config, trust config.TrustMode) error {
	transport, ok := cfg.HttpClient.Transport.(*http.Transport)
	if !ok {
		return fmt.Errorf("unexpected vault transport type %T", cfg.HttpClient.Transport)
	}
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	tlsConfig := transport.TLSClientConfig
	// Set from VAULT_TLS_SERVER_NAME by DefaultConfig
	tlsConfig.ServerName = ""

	switch trust.Kind {
	case config.Insecure:
		tlsConfig.InsecureSkipVerify = true
	case config.VerifySystemTrust:
		tlsConfig.InsecureSkipVerify = false
		tlsConfig.RootCAs = nil
	case config.VerifyWithCABundle:
		tlsConfig.InsecureSkipVerify = false
		tlsConfig.RootCAs = nil
		if err := cfg.ConfigureTLS(&api.TLSConfig{CACert: trust.CABundle}); err != nil {
			return dserrors.ConfigError{
				Field:      config.EnvCACert,
				Value:      trust.CABundle,
				Message:    fmt.Sprintf("failed to load CA bundle: %v", err),
				Suggestion: "Point VAULT_CACERT at a readable PEM file",
			}
		}
	default:
		return fmt.Errorf("unknown trust mode %v", trust.Kind)
	}

	return nil
}
