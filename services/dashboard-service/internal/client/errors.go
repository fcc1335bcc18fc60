package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a failed call at the client boundary
type Kind int

const (
	// KindNetwork means no HTTP response was received
	KindNetwork Kind = iota + 1
	// KindTimeout means the request deadline passed before a response
	KindTimeout
	// KindNotFound is an HTTP 404
	KindNotFound
	// KindClient is any other 4xx response
	KindClient
	// KindServer is a 5xx or otherwise unexpected status
	KindServer
	// KindDecode means the response body could not be decoded
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	case KindClient:
		return "client_error"
	case KindServer:
		return "server_error"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned by every DashboardClient operation that fails
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

// Unwrap returns the underlying transport or decode error
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or 0 if err did not come from the client
func KindOf(err error) Kind {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr.Kind
	}
	return 0
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether the backend answered 404
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsServerError reports whether the backend answered with a server error
func IsServerError(err error) bool { return KindOf(err) == KindServer }

// IsNetworkError reports whether no response was received at all
func IsNetworkError(err error) bool {
	kind := KindOf(err)
	return kind == KindNetwork || kind == KindTimeout
}

// IsTimeout reports whether the request ran out of time
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }

func statusError(op string, statusCode int, message string) *Error {
	kind := KindServer
	switch {
	case statusCode == http.StatusNotFound:
		kind = KindNotFound
	case statusCode >= 400 && statusCode < 500:
		kind = KindClient
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &Error{Op: op, Kind: kind, StatusCode: statusCode, Message: message}
}

func transportError(op string, err error) *Error {
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

func decodeError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindDecode, Err: err}
}
