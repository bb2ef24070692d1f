package providers

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"os"

	"github.com/systmms/secretcache/pkg/provider"
)

// transportError tags an SDK failure that carried no store response with the
// Kind the client observed. Context cancellation keeps its identity so callers
// can still match it with errors.Is.
func transportError(store, op string, err error) error {
	if err == nil {
		return nil
	}
	return &provider.StoreError{
		Provider: store,
		Op:       op,
		Kind:     transportKind(err),
		Err:      err,
	}
}

func transportKind(err error) provider.Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return provider.KindTimeout
	}

	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var authorityErr x509.UnknownAuthorityError
	var invalidErr x509.CertificateInvalidError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &recordErr) || errors.As(err, &authorityErr) ||
		errors.As(err, &invalidErr) || errors.As(err, &hostnameErr) {
		return provider.KindTLS
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return provider.KindTimeout
		}
		return provider.KindNetwork
	}
	return provider.KindUnknown
}

// notFound builds the NotFoundError every provider returns for a missing key.
func notFound(store, key string) error {
	return provider.NotFoundError{Provider: store, Key: key}
}

func stringOption(config map[string]interface{}, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}
