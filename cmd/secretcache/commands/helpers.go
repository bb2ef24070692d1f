package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/secretcache/internal/classify"
	"github.com/systmms/secretcache/internal/config"
	scerrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/logging"
	"github.com/systmms/secretcache/internal/metrics"
	"github.com/systmms/secretcache/internal/providers"
	"github.com/systmms/secretcache/internal/resolve"
	"github.com/systmms/secretcache/internal/secure"
)

// Exit codes beyond the generic failure code 1.
const (
	ExitFailure  = 1
	ExitNotFound = 2
)

// ExitError carries a specific process exit code. Err may be nil when the
// command already reported the problem.
type ExitError struct {
	Code int
	Err  error
}

func (e ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e ExitError) Unwrap() error {
	return e.Err
}

// registry is swapped by tests to inject fake stores.
var registry = providers.NewRegistry()

// storeResolver pairs a resolver with the configuration it was built from.
type storeResolver struct {
	name     string
	store    config.StoreConfig
	settings config.Resilience
	resolver *resolve.Resolver
}

// selectStore returns the store named by --store, or the only configured
// store when the flag is empty.
func selectStore(def *config.Definition, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	names := def.StoreNames()
	switch len(names) {
	case 0:
		return "", scerrors.ConfigError{
			Field:      "stores",
			Message:    "no stores configured",
			Suggestion: "Add a store under 'stores:' in " + config.DefaultPath,
		}
	case 1:
		return names[0], nil
	}
	return "", scerrors.UserError{
		Message:    "Store name is required when more than one store is configured",
		Suggestion: "Use --store with one of: " + strings.Join(names, ", "),
	}
}

// newStoreResolver builds the provider and resolver for one configured store.
func newStoreResolver(cfg *config.Config, name string, observer metrics.Observer) (*storeResolver, error) {
	store, err := cfg.Definition.Store(name)
	if err != nil {
		return nil, err
	}
	settings, err := cfg.Definition.Resilience(name)
	if err != nil {
		return nil, err
	}

	p, err := registry.New(name, store)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	res, err := resolve.New(p,
		resolve.WithConfig(settings),
		resolve.WithObserver(observer),
		resolve.WithLogger(logger),
		resolve.WithTimeout(store.Timeout()),
	)
	if err != nil {
		return nil, err
	}

	return &storeResolver{name: name, store: store, settings: settings, resolver: res}, nil
}

// close wipes sealed cache payloads once the command is done with them.
func (s *storeResolver) close() {
	if s.settings.SealCachedValues {
		secure.Purge()
	}
}

// userError turns a resolve failure into a message with a suggestion.
func (s *storeResolver) userError(name string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if classify.Is(err, classify.Timeout) {
		return scerrors.UserError{
			Message:    fmt.Sprintf("Timed out resolving %q from store %q", name, s.name),
			Details:    err.Error(),
			Suggestion: resolve.TimeoutSuggestion(s.store.Type, s.store.Timeout()),
			Err:        err,
		}
	}
	return scerrors.ProviderError(s.store.Type, fmt.Sprintf("resolve of %q", name), err)
}
