package resolve

import (
	"context"
	"strings"
	"time"
)

// withStoreTimeout bounds ctx by d; d <= 0 leaves ctx unbounded.
func withStoreTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// TimeoutSuggestion provides helpful suggestions for timeout errors
func TimeoutSuggestion(storeType string, timeout time.Duration) string {
	short := timeout < 5*time.Second

	switch {
	case strings.HasPrefix(storeType, "aws"):
		if short {
			return "AWS API can be slow. Try increasing timeout_ms to 10000"
		}
		return "Check AWS connectivity and credentials. Verify region is correct"

	case strings.HasPrefix(storeType, "gcp"):
		if short {
			return "Google Cloud API can be slow. Try increasing timeout_ms to 10000"
		}
		return "Check Google Cloud connectivity and authentication"

	case strings.HasPrefix(storeType, "azure"):
		if short {
			return "Azure API can be slow. Try increasing timeout_ms to 10000"
		}
		return "Check Azure connectivity and authentication"

	case storeType == "keyring":
		return "The OS keyring did not answer. Check that the keyring service is unlocked"
	}

	// Generic suggestions
	if timeout < 10*time.Second {
		return "Store operation timed out. Try increasing timeout_ms in your store configuration"
	}
	return "Check network connectivity and store authentication. Consider increasing timeout_ms if the store is consistently slow"
}
