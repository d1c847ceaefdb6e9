package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Classified fetch failures. Wrap them with %w or carry them in UserError.Err.
var (
	ErrNotFound             = errors.New("secret not found")
	ErrFieldMissing         = errors.New("field missing from secret")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Outcome labels a fetch result for logs and metrics
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeFieldMissing Outcome = "field_missing"
	OutcomeAuthFailed   Outcome = "auth_failed"
	OutcomeConfigError  Outcome = "config_error"
	OutcomeError        Outcome = "error"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// IsConfigError reports whether err is or wraps a ConfigError
func IsConfigError(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}

// Classify maps a fetch error onto its outcome label
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrFieldMissing):
		return OutcomeFieldMissing
	case errors.Is(err, ErrAuthenticationFailed):
		return OutcomeAuthFailed
	case IsConfigError(err):
		return OutcomeConfigError
	default:
		return OutcomeError
	}
}

// IsRecoverable reports whether the process may keep running without the secret.
// Only an absent path or an absent field qualifies.
func IsRecoverable(err error) bool {
	switch Classify(err) {
	case OutcomeNotFound, OutcomeFieldMissing:
		return true
	default:
		return false
	}
}

// VaultSuggestion returns a hint for common Vault failures
func VaultSuggestion(address string, err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "no such host"):
		return "Check that Vault is running and reachable at " + address
	case strings.Contains(errStr, "permission denied"):
		return "Check that the token's policy allows reading this path"
	case strings.Contains(errStr, "certificate"), strings.Contains(errStr, "x509"), strings.Contains(errStr, "tls"):
		return "Check VAULT_CACERT, or set VAULT_VERIFY_TLS=false for development servers"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "The request timed out. Check the network or raise VAULT_TIMEOUT"
	default:
		return ""
	}
}
