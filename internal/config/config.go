package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	scerrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/logging"
)

// DefaultPath is used when --config is not given.
const DefaultPath = "secretcache.yaml"

// DefaultStoreTimeout bounds a single resolve when timeout_ms is unset.
const DefaultStoreTimeout = 10 * time.Second

//go:embed schema.json
var schema []byte

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the secretcache.yaml structure
type Definition struct {
	Version  int                    `yaml:"version"`
	Defaults ResilienceSettings     `yaml:"defaults,omitempty"`
	Stores   map[string]StoreConfig `yaml:"stores,omitempty"`
}

// StoreConfig holds secret store-specific configuration
type StoreConfig struct {
	Type       string                 `yaml:"type"`
	TimeoutMs  int                    `yaml:"timeout_ms,omitempty"`
	Resilience ResilienceSettings     `yaml:"resilience,omitempty"`
	Config     map[string]interface{} `yaml:",inline"`
}

// Timeout is the wall-clock budget of one resolve against this store.
func (s StoreConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return DefaultStoreTimeout
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// Load reads, validates and parses the configuration file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return scerrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create " + DefaultPath + " or pass --config",
			}
		}
		return scerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}

	defaults, err := ApplyEnv(def.Defaults)
	if err != nil {
		return err
	}
	def.Defaults = defaults

	if err := def.Validate(); err != nil {
		return err
	}

	c.Definition = def
	if c.Logger != nil {
		c.Logger.Debug("Loaded configuration from %s with %d store(s)", c.Path, len(def.Stores))
	}
	return nil
}

// Parse decodes and schema-checks a configuration document. It does not
// apply environment overrides or range checks.
func Parse(data []byte) (*Definition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, scerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, scerrors.ConfigError{
			Message:    "configuration does not match the expected structure",
			Suggestion: "Check field types against the documented example",
		}
	}
	return &def, nil
}

func validateSchema(doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return scerrors.ConfigError{
			Message:    "schema validation failed:\n  - " + strings.Join(errorMessages, "\n  - "),
			Suggestion: "Set 'version: 1' and check field names under defaults and stores",
		}
	}
	return nil
}

// Validate checks the effective settings of every store.
func (d *Definition) Validate() error {
	if d.Version != 1 {
		return scerrors.ConfigError{
			Field:      "version",
			Value:      d.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 1' at the top of your configuration file",
		}
	}

	var errs []error
	if err := d.Defaults.Apply(DefaultResilience()).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("defaults: %w", err))
	}
	for _, name := range d.StoreNames() {
		store := d.Stores[name]
		if strings.TrimSpace(store.Type) == "" {
			errs = append(errs, scerrors.ConfigError{
				Field:   "stores." + name + ".type",
				Message: "store type is required",
			})
		}
		if err := d.resilienceFor(store).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("stores.%s: %w", name, err))
		}
		if store.Type == "azure.keyvault" {
			if vaultName, ok := store.Config["vault_name"].(string); ok {
				if err := ValidateVaultName(vaultName); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return errors.Join(errs...)
}

// StoreNames returns the configured store names in sorted order.
func (d *Definition) StoreNames() []string {
	names := make([]string, 0, len(d.Stores))
	for name := range d.Stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store returns the named store configuration.
func (d *Definition) Store(name string) (StoreConfig, error) {
	store, ok := d.Stores[name]
	if !ok {
		suggestion := "Add the store under 'stores' in your configuration file"
		if names := d.StoreNames(); len(names) > 0 {
			suggestion = "Configured stores: " + strings.Join(names, ", ")
		}
		return StoreConfig{}, scerrors.ConfigError{
			Field:      "store",
			Value:      name,
			Message:    "store not found in configuration",
			Suggestion: suggestion,
		}
	}
	return store, nil
}

// Resilience returns the effective settings of the named store: built-in
// defaults, then the defaults section, then the store's own overrides.
func (d *Definition) Resilience(name string) (Resilience, error) {
	store, err := d.Store(name)
	if err != nil {
		return Resilience{}, err
	}
	return d.resilienceFor(store), nil
}

func (d *Definition) resilienceFor(store StoreConfig) Resilience {
	return store.Resilience.Apply(d.Defaults.Apply(DefaultResilience()))
}

var vaultNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]{1,22}[a-zA-Z0-9]$`)

// ValidateVaultName checks an Azure Key Vault name: 3 to 24 characters,
// starting with a letter, letters, digits and single hyphens only, not
// ending with a hyphen.
func ValidateVaultName(name string) error {
	if !vaultNamePattern.MatchString(name) || strings.Contains(name, "--") {
		return scerrors.ConfigError{
			Field:      "vault_name",
			Value:      name,
			Message:    "invalid Azure Key Vault name",
			Suggestion: "Use 3-24 letters, digits and hyphens, starting with a letter, without consecutive or trailing hyphens",
		}
	}
	return nil
}
