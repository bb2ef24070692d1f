package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// FakeGCPSecretManagerClient is a fake of the Secret Manager client subset
// used by the GCP provider.
type FakeGCPSecretManagerClient struct {
	// Secrets maps full secret names (projects/X/secrets/Y) to their metadata
	Secrets map[string]*secretmanagerpb.Secret
	// Payloads maps full secret names to the latest version payload
	Payloads map[string][]byte
	// Errors maps full secret names to errors returned by AccessSecretVersion
	Errors map[string]error
	// GetSecretErr, when set, is returned by every GetSecret call
	GetSecretErr error

	mu          sync.Mutex
	accessCalls int
	accessOpts  []gax.CallOption
}

// NewFakeGCPSecretManagerClient creates a new fake GCP Secret Manager client
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		Secrets:  make(map[string]*secretmanagerpb.Secret),
		Payloads: make(map[string][]byte),
		Errors:   make(map[string]error),
	}
}

// AddSecretString adds a secret with one version and no expiration
func (f *FakeGCPSecretManagerClient) AddSecretString(projectID, secretName, value string) {
	fullName := fmt.Sprintf("projects/%s/secrets/%s", projectID, secretName)
	f.Secrets[fullName] = &secretmanagerpb.Secret{
		Name:       fullName,
		CreateTime: timestamppb.New(time.Now()),
	}
	f.Payloads[fullName] = []byte(value)
}

// SetExpireTime sets the expiration of an existing secret
func (f *FakeGCPSecretManagerClient) SetExpireTime(projectID, secretName string, t time.Time) {
	fullName := fmt.Sprintf("projects/%s/secrets/%s", projectID, secretName)
	if s, ok := f.Secrets[fullName]; ok {
		s.Expiration = &secretmanagerpb.Secret_ExpireTime{ExpireTime: timestamppb.New(t)}
	}
}

// AddError makes AccessSecretVersion fail for a secret
func (f *FakeGCPSecretManagerClient) AddError(projectID, secretName string, err error) {
	f.Errors[fmt.Sprintf("projects/%s/secrets/%s", projectID, secretName)] = err
}

// AccessCalls returns the number of AccessSecretVersion calls
func (f *FakeGCPSecretManagerClient) AccessCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accessCalls
}

// AccessOptions returns the call options of the last AccessSecretVersion call
func (f *FakeGCPSecretManagerClient) AccessOptions() []gax.CallOption {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accessOpts
}

// AccessSecretVersion implements the Secret Manager client method. Only the
// "latest" alias is supported.
func (f *FakeGCPSecretManagerClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	f.accessCalls++
	f.accessOpts = opts
	f.mu.Unlock()

	secretName, ok := trimVersion(req.GetName())
	if !ok {
		return nil, GCPInvalidArgumentError("malformed version name " + req.GetName())
	}
	if err, ok := f.Errors[secretName]; ok {
		return nil, err
	}
	data, ok := f.Payloads[secretName]
	if !ok {
		return nil, GCPNotFoundError(req.GetName())
	}

	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    secretName + "/versions/1",
		Payload: &secretmanagerpb.SecretPayload{Data: data},
	}, nil
}

// GetSecret implements the Secret Manager client method
func (f *FakeGCPSecretManagerClient) GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	if f.GetSecretErr != nil {
		return nil, f.GetSecretErr
	}
	s, ok := f.Secrets[req.GetName()]
	if !ok {
		return nil, GCPNotFoundError(req.GetName())
	}
	return s, nil
}

func trimVersion(name string) (string, bool) {
	const suffix = "/versions/latest"
	if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
		return "", false
	}
	return name[:len(name)-len(suffix)], true
}

// GCP error helpers

// GCPNotFoundError creates a GCP not found error
func GCPNotFoundError(resourceName string) error {
	return status.Errorf(codes.NotFound, "Resource %s not found", resourceName)
}

// GCPPermissionDeniedError creates a GCP permission denied error
func GCPPermissionDeniedError(message string) error {
	return status.Error(codes.PermissionDenied, message)
}

// GCPUnauthenticatedError creates a GCP unauthenticated error
func GCPUnauthenticatedError(message string) error {
	return status.Error(codes.Unauthenticated, message)
}

// GCPInvalidArgumentError creates a GCP invalid argument error
func GCPInvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

// GCPResourceExhaustedError creates a GCP resource exhausted (throttled) error
func GCPResourceExhaustedError() error {
	return status.Errorf(codes.ResourceExhausted, "Quota exceeded")
}

// GCPUnavailableError creates a GCP unavailable error
func GCPUnavailableError() error {
	return status.Error(codes.Unavailable, "connection reset")
}
