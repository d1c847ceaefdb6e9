package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	dserrors "github.com/systmms/vaultboot/internal/errors"
	"github.com/systmms/vaultboot/internal/logging"
)

// Environment variables read by the resolver
const (
	EnvAddress     = "VAULT_ADDR"
	EnvToken       = "VAULT_TOKEN"
	EnvVerifyTLS   = "VAULT_VERIFY_TLS"
	EnvCACert      = "VAULT_CACERT"
	EnvTimeout     = "VAULT_TIMEOUT"
	EnvMetricsAddr = "VAULTBOOT_METRICS_ADDR"
)

// DefaultTimeout bounds every HTTP request to Vault
const DefaultTimeout = 10 * time.Second

// TrustKind selects how the Vault server certificate is validated
type TrustKind int

const (
	// Insecure skips certificate verification (dev / CI default)
	Insecure TrustKind = iota
	// VerifySystemTrust verifies against the host's root CAs
	VerifySystemTrust
	// VerifyWithCABundle verifies against a PEM bundle on disk
	VerifyWithCABundle
)

func (k TrustKind) String() string {
	switch k {
	case Insecure:
		return "insecure"
	case VerifySystemTrust:
		return "verify-system-trust"
	case VerifyWithCABundle:
		return "verify-ca-bundle"
	default:
		return fmt.Sprintf("TrustKind(%d)", int(k))
	}
}

// TrustMode is the effective TLS trust policy. CABundle is only set for
// VerifyWithCABundle.
type TrustMode struct {
	Kind     TrustKind
	CABundle string
}

func (t TrustMode) String() string {
	if t.Kind == VerifyWithCABundle {
		return fmt.Sprintf("%s(%s)", t.Kind, t.CABundle)
	}
	return t.Kind.String()
}

// Settings holds everything needed to open a Vault client
type Settings struct {
	Address string
	Token   string
	Trust   TrustMode
	Timeout time.Duration

	// MetricsAddr is the listen address for the metrics server; empty disables it
	MetricsAddr string
}

// ResolveTrust derives the trust mode. A CA bundle always wins over the
// verify flag; the flag only counts when it equals "true" ignoring case.
func ResolveTrust(verifyFlag, caBundle string) TrustMode {
	trust := TrustMode{Kind: Insecure}

	if strings.ToLower(verifyFlag) == "true" {
		trust = TrustMode{Kind: VerifySystemTrust}
	}

	if caBundle != "" {
		trust = TrustMode{Kind: VerifyWithCABundle, CABundle: caBundle}
	}

	return trust
}

// Resolve reads the connection settings through getenv. Missing address or
// token is a ConfigError; nothing here touches the network.
func Resolve(getenv func(string) string) (Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	settings := Settings{
		Address:     getenv(EnvAddress),
		Token:       getenv(EnvToken),
		Trust:       ResolveTrust(getenv(EnvVerifyTLS), getenv(EnvCACert)),
		MetricsAddr: getenv(EnvMetricsAddr),
	}

	if settings.Address == "" {
		return Settings{}, dserrors.ConfigError{
			Field:      EnvAddress,
			Message:    "Vault address is required",
			Suggestion: "Set VAULT_ADDR, e.g. https://vault.example.com:8200",
		}
	}
	if settings.Token == "" {
		return Settings{}, dserrors.ConfigError{
			Field:      EnvToken,
			Message:    "Vault token is required",
			Suggestion: "Set VAULT_TOKEN or mount it from a Kubernetes secret",
		}
	}

	timeout, err := parseTimeout(getenv(EnvTimeout))
	if err != nil {
		return Settings{}, err
	}
	settings.Timeout = timeout

	return settings, nil
}

// ResolveFromEnv resolves settings from the process environment and, when the
// result is insecure, silences insecure-transport warnings process-wide.
func ResolveFromEnv(logger *logging.Logger) (Settings, error) {
	return ResolveWith(os.Getenv, logger)
}

// ResolveWith is ResolveFromEnv with an explicit environment lookup.
func ResolveWith(getenv func(string) string, logger *logging.Logger) (Settings, error) {
	settings, err := Resolve(getenv)
	if err != nil {
		return Settings{}, err
	}
	if settings.Trust.Kind == Insecure {
		logging.SuppressInsecureWarnings(logger)
	}
	return settings, nil
}

// parseTimeout accepts a Go duration ("15s") or whole seconds ("15")
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return DefaultTimeout, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return 0, dserrors.ConfigError{
				Field:      EnvTimeout,
				Value:      raw,
				Message:    "invalid timeout",
				Suggestion: "Use a duration such as 10s or a number of seconds",
			}
		}
		d = time.Duration(secs) * time.Second
	}

	if d <= 0 {
		return 0, dserrors.ConfigError{
			Field:      EnvTimeout,
			Value:      raw,
			Message:    "timeout must be positive",
			Suggestion: "Use a duration such as 10s",
		}
	}

	return d, nil
}
