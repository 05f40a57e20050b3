// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies expected failures so the transport layer can map them.
type ErrorKind int

const (
	// KindInternal is any failure the caller cannot act on.
	KindInternal ErrorKind = iota
	KindValidation
	KindAuthentication
	// KindAuthorization means the resource belongs to someone else. It is
	// reported exactly like KindNotFound so existence is never revealed.
	KindAuthorization
	KindNotFound
	KindUpstreamUnavailable
)

// Upstream names for KindUpstreamUnavailable.
const (
	UpstreamOAuth = "oauth"
	UpstreamAgent = "agent"
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	default:
		return "internal"
	}
}

// Error is returned by every service method. Message is safe to show to
// clients; Err carries the internal cause for logs only.
type Error struct {
	Kind     ErrorKind
	Upstream string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a *Error from err. Errors of any other type are wrapped as KindInternal.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf reports the kind of err, KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	return AsError(err).Kind
}

func validationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func authenticationError(msg string, cause error) error {
	return &Error{Kind: KindAuthentication, Message: msg, Err: cause}
}

func chatNotFound(kind ErrorKind) error {
	return &Error{Kind: kind, Message: "Chat not found"}
}

func upstreamError(upstream, msg string, cause error) error {
	return &Error{Kind: KindUpstreamUnavailable, Upstream: upstream, Message: msg, Err: cause}
}

func internalError(msg string, cause error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}
