package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"

	"github.com/systmms/secretcache/pkg/provider"
)

// SecretsManagerClientAPI defines the interface for AWS Secrets Manager operations
// This allows for mocking in tests
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManagerProvider implements the provider interface for AWS Secrets Manager
type AWSSecretsManagerProvider struct {
	name     string
	client   SecretsManagerClientAPI
	region   string
	endpoint string // Optional custom endpoint for LocalStack or testing
}

// ProviderOption is a functional option for configuring providers
type ProviderOption func(*AWSSecretsManagerProvider)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) ProviderOption {
	return func(p *AWSSecretsManagerProvider) {
		p.client = client
	}
}

// NewAWSSecretsManagerProvider creates a new AWS Secrets Manager provider
func NewAWSSecretsManagerProvider(name string, providerConfig map[string]interface{}, opts ...ProviderOption) (*AWSSecretsManagerProvider, error) {
	region := stringOption(providerConfig, "region")
	if region == "" {
		region = "us-east-1"
	}

	p := &AWSSecretsManagerProvider{
		name:     name,
		region:   region,
		endpoint: stringOption(providerConfig, "endpoint"),
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		configOpts := []func(*config.LoadOptions) error{config.WithRegion(region), awsNoRetry()}

		// Static credentials are meant for LocalStack
		accessKeyID := stringOption(providerConfig, "access_key_id")
		secretAccessKey := stringOption(providerConfig, "secret_access_key")
		if accessKeyID != "" && secretAccessKey != "" {
			configOpts = append(configOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
			))
		}
		if profile := stringOption(providerConfig, "profile"); profile != "" {
			configOpts = append(configOpts, config.WithSharedConfigProfile(profile))
		}

		cfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		var clientOpts []func(*secretsmanager.Options)
		if p.endpoint != "" {
			endpoint := p.endpoint
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		p.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}

	return p, nil
}

// awsNoRetry replaces the SDK's standard retryer, which would otherwise
// repeat throttled calls underneath the resolver's retry policy.
func awsNoRetry() func(*config.LoadOptions) error {
	return config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} })
}

// Name returns the provider name
func (p *AWSSecretsManagerProvider) Name() string {
	return p.name
}

// Region returns the configured AWS region.
func (p *AWSSecretsManagerProvider) Region() string {
	return p.region
}

// Fetch reads the AWSCURRENT version of a secret. Secrets Manager exposes no
// validity window on this call, so only the version and creation date are set.
func (p *AWSSecretsManagerProvider) Fetch(ctx context.Context, key string) (provider.SecretValue, error) {
	result, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(key),
	})
	if err != nil {
		return provider.SecretValue{}, translateAWSError(p.name, "GetSecretValue", key, err)
	}

	var value []byte
	switch {
	case result.SecretString != nil:
		value = []byte(*result.SecretString)
	case result.SecretBinary != nil:
		value = append([]byte(nil), result.SecretBinary...)
	}

	sv := provider.SecretValue{Value: value}
	sv.Attributes.Version = aws.ToString(result.VersionId)
	if result.CreatedDate != nil {
		sv.Attributes.UpdatedAt = *result.CreatedDate
	}
	return sv, nil
}

// awsErrorStatus maps service error codes that do not always arrive with a
// usable HTTP status.
var awsErrorStatus = map[string]int{
	"ThrottlingException":           http.StatusTooManyRequests,
	"TooManyRequestsException":      http.StatusTooManyRequests,
	"LimitExceededException":        http.StatusTooManyRequests,
	"AccessDeniedException":         http.StatusForbidden,
	"DecryptionFailure":             http.StatusForbidden,
	"InvalidKeyId":                  http.StatusForbidden,
	"InvalidParameterException":     http.StatusBadRequest,
	"InvalidRequestException":       http.StatusBadRequest,
	"ValidationException":           http.StatusBadRequest,
	"InternalServiceError":          http.StatusInternalServerError,
	"InternalServiceErrorException": http.StatusInternalServerError,
	"InternalServerError":           http.StatusInternalServerError,
	"ServiceUnavailable":            http.StatusServiceUnavailable,
}

// awsAuthCodes are credential failures rather than authorization denials.
var awsAuthCodes = map[string]bool{
	"UnrecognizedClientException": true,
	"InvalidClientTokenId":        true,
	"InvalidSignatureException":   true,
	"ExpiredTokenException":       true,
	"IncompleteSignature":         true,
}

// translateAWSError is shared by the Secrets Manager and Parameter Store
// providers.
func translateAWSError(store, op, key string, err error) error {
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return notFound(store, key)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "ParameterNotFound" || code == "ResourceNotFoundException" {
			return notFound(store, key)
		}
		if awsAuthCodes[code] {
			return provider.AuthError{Provider: store, Message: apiErr.ErrorMessage(), Err: err}
		}
		if status, ok := awsErrorStatus[code]; ok {
			return provider.HTTPError(store, op, status, err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 400 {
		if respErr.HTTPStatusCode() == http.StatusNotFound {
			return notFound(store, key)
		}
		return provider.HTTPError(store, op, respErr.HTTPStatusCode(), err)
	}

	return transportError(store, op, err)
}

// NewAWSSecretsManagerProviderFactory creates an AWS Secrets Manager provider factory
func NewAWSSecretsManagerProviderFactory(name string, cfg map[string]interface{}) (provider.Provider, error) {
	return NewAWSSecretsManagerProvider(name, cfg)
}
