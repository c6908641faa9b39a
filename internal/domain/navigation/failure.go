package navigation

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"syscall"
)

// FailureKind classifies why a load failed.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureOffline   FailureKind = "offline"
	FailureDNS       FailureKind = "dns"
	FailureTimeout   FailureKind = "timeout"
	FailureTLS       FailureKind = "tls"
	FailureRefused   FailureKind = "refused"
	FailureCancelled FailureKind = "cancelled"
	FailureHTTP      FailureKind = "http"
	FailureContent   FailureKind = "content"
	FailureUnknown   FailureKind = "unknown"
)

// ParseFailureKind maps a shell-reported kind to a FailureKind. Unknown
// strings map to FailureUnknown.
func ParseFailureKind(s string) FailureKind {
	switch k := FailureKind(s); k {
	case FailureOffline, FailureDNS, FailureTimeout, FailureTLS, FailureRefused,
		FailureCancelled, FailureHTTP, FailureContent:
		return k
	default:
		return FailureUnknown
	}
}

// ClassifyError maps a transport error to a FailureKind.
func ClassifyError(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, context.Canceled) {
		return FailureCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return FailureTimeout
		}
		return FailureDNS
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) || errors.As(err, &recordErr) {
		return FailureTLS
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return FailureRefused
	}
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETDOWN) {
		return FailureOffline
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return FailureOffline
	}
	return FailureUnknown
}
