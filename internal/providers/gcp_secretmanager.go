package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	scerrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/logging"
	"github.com/systmms/secretcache/pkg/provider"
)

// GCPSecretManagerClientAPI is the subset of *secretmanager.Client used by the provider.
type GCPSecretManagerClientAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
}

// GCPSecretManagerProvider implements the Provider interface for Google Cloud Secret Manager
type GCPSecretManagerProvider struct {
	name      string
	client    GCPSecretManagerClientAPI
	logger    *logging.Logger
	config    GCPSecretManagerConfig
	projectID string
}

// GCPSecretManagerConfig holds GCP Secret Manager-specific configuration
type GCPSecretManagerConfig struct {
	ProjectID             string
	ServiceAccountKeyPath string
	ImpersonateAccount    string
}

// GCPProviderOption is a functional option for configuring GCP providers
type GCPProviderOption func(*GCPSecretManagerProvider)

// WithGCPSecretManagerClient sets a custom client (for testing)
func WithGCPSecretManagerClient(client GCPSecretManagerClientAPI) GCPProviderOption {
	return func(p *GCPSecretManagerProvider) {
		p.client = client
	}
}

// WithGCPLogger sets the logger used for debug output.
func WithGCPLogger(logger *logging.Logger) GCPProviderOption {
	return func(p *GCPSecretManagerProvider) {
		p.logger = logger
	}
}

// NewGCPSecretManagerProvider creates a new GCP Secret Manager provider
func NewGCPSecretManagerProvider(name string, configMap map[string]interface{}, opts ...GCPProviderOption) (*GCPSecretManagerProvider, error) {
	config := GCPSecretManagerConfig{
		ProjectID:             stringOption(configMap, "project_id"),
		ServiceAccountKeyPath: stringOption(configMap, "service_account_key_path"),
		ImpersonateAccount:    stringOption(configMap, "impersonate_service_account"),
	}

	if config.ProjectID == "" {
		config.ProjectID = getGCPProjectID()
	}
	if config.ProjectID == "" {
		return nil, scerrors.ConfigError{
			Field:      "project_id",
			Message:    "project_id is required for GCP Secret Manager",
			Suggestion: "Set project_id in config or GOOGLE_CLOUD_PROJECT environment variable",
		}
	}

	p := &GCPSecretManagerProvider{
		name:      name,
		logger:    logging.Discard(),
		config:    config,
		projectID: config.ProjectID,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := createGCPSecretManagerClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
		}
		p.client = client
	}

	return p, nil
}

// createGCPSecretManagerClient creates a GCP Secret Manager client
func createGCPSecretManagerClient(config GCPSecretManagerConfig) (*secretmanager.Client, error) {
	ctx := context.Background()

	var clientOptions []option.ClientOption

	if config.ServiceAccountKeyPath != "" {
		keyPath := config.ServiceAccountKeyPath
		if strings.HasPrefix(keyPath, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			keyPath = filepath.Join(home, keyPath[2:])
		}
		clientOptions = append(clientOptions, option.WithCredentialsFile(keyPath))
	}

	if config.ImpersonateAccount != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: config.ImpersonateAccount,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create impersonated credentials: %w", err)
		}
		clientOptions = append(clientOptions, option.WithTokenSource(ts))
	}

	return secretmanager.NewClient(ctx, clientOptions...)
}

// getGCPProjectID attempts to get the GCP project ID from the environment
func getGCPProjectID() string {
	for _, env := range []string{"GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT", "GCP_PROJECT"} {
		if projectID := os.Getenv(env); projectID != "" {
			return projectID
		}
	}
	return ""
}

// Name returns the provider name
func (p *GCPSecretManagerProvider) Name() string {
	return p.name
}

// ProjectID returns the project secrets are read from.
func (p *GCPSecretManagerProvider) ProjectID() string {
	return p.projectID
}

// Fetch accesses the latest version of a secret, then reads the secret's
// expiration. The expiration lookup is best effort: accessor-only service
// accounts cannot call GetSecret, and a failure there leaves the validity
// window unknown instead of failing the fetch.
func (p *GCPSecretManagerProvider) Fetch(ctx context.Context, key string) (provider.SecretValue, error) {
	secretName := fmt.Sprintf("projects/%s/secrets/%s", p.projectID, key)

	p.logger.Debug("Accessing GCP secret: %s", logging.Secret(secretName))

	result, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName + "/versions/latest",
	}, gcpNoRetry)
	if err != nil {
		return provider.SecretValue{}, translateGCPError(p.name, "AccessSecretVersion", key, err)
	}

	sv := provider.SecretValue{}
	if result.GetPayload() != nil {
		sv.Value = append([]byte(nil), result.GetPayload().GetData()...)
	}
	if result.GetName() != "" {
		sv.Attributes.Version = path.Base(result.GetName())
	}

	secret, err := p.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{Name: secretName}, gcpNoRetry)
	if err != nil {
		p.logger.Debug("Secret metadata unavailable for %s: %v", logging.Secret(secretName), err)
		return sv, nil
	}
	if ts := secret.GetExpireTime(); ts != nil {
		expires := ts.AsTime()
		sv.Attributes.ExpiresAt = &expires
	}
	if ts := secret.GetCreateTime(); ts != nil {
		sv.Attributes.UpdatedAt = ts.AsTime()
	}
	return sv, nil
}

// gcpCodeStatus maps gRPC codes onto the HTTP status the REST surface of the
// same API returns.
// gcpNoRetry drops the client's default retry settings for a call. A nil
// Retryer makes gax return the first error.
var gcpNoRetry = gax.WithRetry(func() gax.Retryer { return nil })

var gcpCodeStatus = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.FailedPrecondition: http.StatusBadRequest,
	codes.OutOfRange:         http.StatusBadRequest,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.AlreadyExists:      http.StatusConflict,
	codes.Aborted:            http.StatusConflict,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.Internal:           http.StatusInternalServerError,
	codes.DataLoss:           http.StatusInternalServerError,
	codes.Unimplemented:      http.StatusNotImplemented,
	codes.Unavailable:        http.StatusServiceUnavailable,
}

func translateGCPError(store, op, key string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return transportError(store, op, err)
	}

	switch st.Code() {
	case codes.NotFound:
		return notFound(store, key)
	case codes.Unauthenticated:
		return provider.HTTPError(store, op, http.StatusUnauthorized, err)
	case codes.DeadlineExceeded:
		return &provider.StoreError{Provider: store, Op: op, Kind: provider.KindTimeout, Err: err}
	case codes.Canceled:
		return &provider.StoreError{Provider: store, Op: op, Err: errors.Join(context.Canceled, err)}
	}
	if code, ok := gcpCodeStatus[st.Code()]; ok {
		return provider.HTTPError(store, op, code, err)
	}
	return transportError(store, op, err)
}

// NewGCPSecretManagerProviderFactory creates a GCP Secret Manager provider factory
func NewGCPSecretManagerProviderFactory(name string, cfg map[string]interface{}) (provider.Provider, error) {
	return NewGCPSecretManagerProvider(name, cfg)
}
