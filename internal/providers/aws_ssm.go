package providers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/systmms/secretcache/internal/logging"
	"github.com/systmms/secretcache/pkg/provider"
)

// SSMClientAPI defines the interface for AWS SSM Parameter Store operations
// This allows for mocking in tests
type SSMClientAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// AWSSSMProvider implements the Provider interface for AWS Systems Manager Parameter Store
type AWSSSMProvider struct {
	name   string
	client SSMClientAPI
	logger *logging.Logger
	config SSMConfig
}

// SSMConfig holds AWS SSM-specific configuration
type SSMConfig struct {
	Region          string
	Profile         string
	WithDecryption  bool
	ParameterPrefix string
}

// SSMProviderOption is a functional option for configuring SSM providers
type SSMProviderOption func(*AWSSSMProvider)

// WithSSMClient sets a custom SSM client (for testing)
func WithSSMClient(client SSMClientAPI) SSMProviderOption {
	return func(p *AWSSSMProvider) {
		p.client = client
	}
}

// WithSSMLogger sets the logger used for debug output.
func WithSSMLogger(logger *logging.Logger) SSMProviderOption {
	return func(p *AWSSSMProvider) {
		p.logger = logger
	}
}

// NewAWSSSMProvider creates a new AWS SSM Parameter Store provider
func NewAWSSSMProvider(name string, configMap map[string]interface{}, opts ...SSMProviderOption) (*AWSSSMProvider, error) {
	config := SSMConfig{
		Region:          stringOption(configMap, "region"),
		Profile:         stringOption(configMap, "profile"),
		ParameterPrefix: stringOption(configMap, "parameter_prefix"),
		WithDecryption:  true, // Default to decrypting SecureString parameters
	}
	if decrypt, ok := configMap["with_decryption"].(bool); ok {
		config.WithDecryption = decrypt
	}

	p := &AWSSSMProvider{
		name:   name,
		logger: logging.Discard(),
		config: config,
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(p)
	}

	// If no client was provided via options, create real client
	if p.client == nil {
		client, err := createSSMClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSM client: %w", err)
		}
		p.client = client
	}

	return p, nil
}

// createSSMClient creates an AWS SSM client with the given configuration
func createSSMClient(config SSMConfig) (*ssm.Client, error) {
	configOpts := []func(*awsconfig.LoadOptions) error{awsNoRetry()}

	if config.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(config.Region))
	}

	if config.Profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(config.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return ssm.NewFromConfig(cfg), nil
}

// Name returns the provider name
func (p *AWSSSMProvider) Name() string {
	return p.name
}

// Fetch reads a parameter, decrypting SecureString values unless disabled.
func (p *AWSSSMProvider) Fetch(ctx context.Context, key string) (provider.SecretValue, error) {
	parameterName := p.config.ParameterPrefix + key

	p.logger.Debug("Fetching parameter from SSM: %s", logging.Secret(parameterName))

	result, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(parameterName),
		WithDecryption: aws.Bool(p.config.WithDecryption),
	})
	if err != nil {
		var pnf *types.ParameterNotFound
		if errors.As(err, &pnf) {
			return provider.SecretValue{}, notFound(p.name, key)
		}
		return provider.SecretValue{}, translateAWSError(p.name, "GetParameter", key, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return provider.SecretValue{}, notFound(p.name, key)
	}

	sv := provider.SecretValue{Value: []byte(*result.Parameter.Value)}
	if result.Parameter.Version != 0 {
		sv.Attributes.Version = strconv.FormatInt(result.Parameter.Version, 10)
	}
	if result.Parameter.LastModifiedDate != nil {
		sv.Attributes.UpdatedAt = *result.Parameter.LastModifiedDate
	}
	return sv, nil
}

// NewAWSSSMProviderFactory creates an AWS SSM provider factory
func NewAWSSSMProviderFactory(name string, cfg map[string]interface{}) (provider.Provider, error) {
	return NewAWSSSMProvider(name, cfg)
}
