package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/secretcache/internal/classify"
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

// ProviderError wraps a store failure with a suggestion derived from its
// failure category
func ProviderError(store string, operation string, err error) error {
	category := classify.Classify(err)
	return UserError{
		Message:    fmt.Sprintf("%s store error during %s (%s)", store, operation, category),
		Details:    err.Error(),
		Suggestion: getStoreSuggestion(store, category),
		Err:        err,
	}
}

// getStoreSuggestion returns a hint for the given store type and category
func getStoreSuggestion(store string, category classify.Category) string {
	switch category {
	case classify.Timeout:
		return "The store did not answer in time. Check connectivity or raise timeout_ms for this store"
	case classify.Network:
		return "Unable to reach the store. Check DNS, proxy settings and the configured endpoint"
	case classify.SSL:
		return "TLS handshake failed. Check the endpoint certificate and any intercepting proxy"
	case classify.RateLimited:
		return "The store is throttling requests. Increase cacheTtlSeconds to reduce request volume"
	case classify.ServerError:
		return "The store reported an internal error. It is usually temporary; try again shortly"
	case classify.Unauthorized, classify.Authentication:
		return authSuggestion(store)
	case classify.Forbidden:
		return permissionSuggestion(store)
	case classify.NotFound:
		return "Verify the secret name. Names are normalized to lower-case letters, digits and hyphens"
	case classify.BadRequest, classify.ClientError:
		return "The store rejected the request. Check the secret name and store configuration"
	}
	return ""
}

func authSuggestion(store string) string {
	switch {
	case strings.HasPrefix(store, "azure"):
		return "Check authentication: verify managed identity, service principal, or Azure CLI login"
	case strings.HasPrefix(store, "aws"):
		return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
	case strings.HasPrefix(store, "gcp"):
		return "Run 'gcloud auth application-default login' or set GOOGLE_APPLICATION_CREDENTIALS"
	}
	return "Check the credentials available to this process"
}

func permissionSuggestion(store string) string {
	switch {
	case strings.HasPrefix(store, "azure"):
		return "Check Key Vault access policies: the 'Get' permission is required for secrets"
	case strings.HasPrefix(store, "aws"):
		return "Check IAM permissions for secretsmanager:GetSecretValue or ssm:GetParameter"
	case strings.HasPrefix(store, "gcp"):
		return "Grant roles/secretmanager.secretAccessor on the secret"
	}
	return "The credentials are valid but lack permission to read this secret"
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var ue UserError
	if errors.As(err, &ue) {
		return err
	}
	var ce ConfigError
	if errors.As(err, &ce) {
		return err
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
