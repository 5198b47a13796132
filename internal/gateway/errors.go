package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend call.
type Kind int

const (
	KindUnknown Kind = iota
	// KindCredential is a 401 from an authentication endpoint.
	KindCredential
	// KindStaleSession is a 401 from any other endpoint.
	KindStaleSession
	// KindConnectivity means no response was received (transport error or timeout).
	KindConnectivity
	// KindServer is any 5xx response.
	KindServer
	// KindClient is any other non-2xx response.
	KindClient
	// KindCanceled means the caller's context ended before a response.
	KindCanceled
	// KindDecode means a 2xx body could not be decoded.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindStaleSession:
		return "stale_session"
	case KindConnectivity:
		return "connectivity"
	case KindServer:
		return "server"
	case KindClient:
		return "client"
	case KindCanceled:
		return "canceled"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// APIError is returned for every failed request. The response payload is
// kept verbatim in Message, up to the first 64 KiB.
type APIError struct {
	Kind       Kind
	StatusCode int // 0 when no response was received
	Method     string
	Endpoint   string
	Message    string
	RequestID  string
	// AlreadyRetried is set by the gateway on every 401: the logical call has
	// used its single attempt and must not be re-issued.
	AlreadyRetried bool
	Err            error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("backend %s error: %s %s: %v", e.Kind, e.Method, e.Endpoint, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("backend %s error: %s %s (status: %d): %v", e.Kind, e.Method, e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("backend %s error: %s %s (status: %d): %s", e.Kind, e.Method, e.Endpoint, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// KindOf returns the classification of err, or KindUnknown when err does
// not come from the gateway.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsUnauthorized reports whether err is a 401 of either kind.
func IsUnauthorized(err error) bool {
	k := KindOf(err)
	return k == KindCredential || k == KindStaleSession
}
