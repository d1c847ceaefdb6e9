package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/systmms/vaultboot/internal/config"
	dserrors "github.com/systmms/vaultboot/internal/errors"
	"github.com/systmms/vaultboot/internal/logging"
	"github.com/systmms/vaultboot/internal/metrics"
	"github.com/systmms/vaultboot/pkg/provider"
)

// Store is the slice of Vault the fetcher needs; tests substitute a stub
type Store interface {
	// CheckAuth reports whether the store accepts the configured token
	CheckAuth(ctx context.Context) (bool, error)
	// ReadLatest returns the data map of the latest secret version, or an
	// error wrapping errors.ErrNotFound when the path does not exist
	ReadLatest(ctx context.Context, mount, path string) (map[string]interface{}, error)
}

// Fetcher reads one field of a KV v2 secret with a single attempt
type Fetcher struct {
	store   Store
	address string
	logger  *logging.Logger
	metrics *metrics.FetchMetrics
}

var _ provider.Fetcher = (*Fetcher)(nil)

// NewFetcher wraps an existing Store
func NewFetcher(store Store, address string, logger *logging.Logger) *Fetcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Fetcher{
		store:   store,
		address: address,
		logger:  logger,
		metrics: metrics.NewFetchMetrics(),
	}
}

// New opens a Vault API client from settings and returns a Fetcher over it
func New(settings config.Settings, logger *logging.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	client, err := NewAPIClient(settings, logger)
	if err != nil {
		return nil, err
	}
	return NewFetcher(client, settings.Address, logger), nil
}

// Fetch checks authentication, reads the latest version at ref and returns
// the value of ref.Field. The read is skipped when the token is rejected.
func (f *Fetcher) Fetch(ctx context.Context, ref provider.Reference) (string, error) {
	start := time.Now()
	value, err := f.fetch(ctx, ref)
	f.metrics.RecordFetch(string(dserrors.Classify(err)), time.Since(start))
	return value, err
}

func (f *Fetcher) fetch(ctx context.Context, ref provider.Reference) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", dserrors.ConfigError{
			Field:   "reference",
			Value:   ref.String(),
			Message: err.Error(),
		}
	}

	ok, err := f.store.CheckAuth(ctx)
	if err != nil {
		return "", dserrors.UserError{
			Message:    "Failed to verify Vault token",
			Details:    err.Error(),
			Suggestion: dserrors.VaultSuggestion(f.address, err),
			Err:        err,
		}
	}
	if !ok {
		return "", dserrors.UserError{
			Message:    "Vault rejected the token",
			Suggestion: "Your Vault token may be expired or revoked. Issue a new one and update VAULT_TOKEN",
			Err:        dserrors.ErrAuthenticationFailed,
		}
	}

	f.logger.Debug("Reading %s from Vault at %s", ref, f.address)

	data, err := f.store.ReadLatest(ctx, ref.Mount, ref.Path)
	if err != nil {
		if errors.Is(err, dserrors.ErrNotFound) {
			return "", dserrors.UserError{
				Message:    fmt.Sprintf("Secret not found at path: %s/%s", ref.Mount, ref.Path),
				Suggestion: "Check that the secret exists and you have read permissions",
				Err:        err,
			}
		}
		return "", dserrors.UserError{
			Message:    "Failed to read secret from Vault",
			Details:    err.Error(),
			Suggestion: dserrors.VaultSuggestion(f.address, err),
			Err:        err,
		}
	}

	raw, exists := data[ref.Field]
	if !exists || raw == nil {
		available := make([]string, 0, len(data))
		for k := range data {
			available = append(available, k)
		}
		sort.Strings(available)

		return "", dserrors.UserError{
			Message:    fmt.Sprintf("Field '%s' not found in secret %s/%s", ref.Field, ref.Mount, ref.Path),
			Suggestion: fmt.Sprintf("Available fields: %s", strings.Join(available, ", ")),
			Err:        dserrors.ErrFieldMissing,
		}
	}

	value, err := stringify(raw)
	if err != nil {
		return "", fmt.Errorf("failed to convert field value to string: %w", err)
	}

	f.logger.Debug("Fetched %s: %s", ref, logging.Secret(value))
	return value, nil
}

// stringify renders a decoded JSON value the way a shell user expects
func stringify(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.Number:
		return v.String(), nil
	case int, int32, int64:
		return fmt.Sprintf("%d", v), nil
	case float32, float64:
		return fmt.Sprintf("%g", v), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
