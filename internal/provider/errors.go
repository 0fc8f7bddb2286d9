package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrProviderUnavailable matches every per-provider failure.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrAllProvidersExhausted is returned when no provider in a chain answered.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
	// ErrInvalidRequest matches caller mistakes that no fallback may mask.
	ErrInvalidRequest = errors.New("invalid request")
)

// Kind classifies why a provider could not answer.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindStatus      Kind = "status"
	KindMalformed   Kind = "malformed"
	KindEmpty       Kind = "empty"
	KindTimeout     Kind = "timeout"
	KindUnmapped    Kind = "unmapped"
	KindRateLimited Kind = "rate-limited"
)

// UnavailableError reports that one provider could not answer right now.
type UnavailableError struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrProviderUnavailable }

// Unavailable builds an UnavailableError.
func Unavailable(name string, kind Kind, err error) error {
	return &UnavailableError{Provider: name, Kind: kind, Err: err}
}

// Unavailablef builds an UnavailableError with a formatted cause.
func Unavailablef(name string, kind Kind, format string, args ...any) error {
	return &UnavailableError{Provider: name, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Classify wraps a transport error. Errors that are already classified pass
// through; deadline errors become timeouts, everything else is a network error.
func Classify(name string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return Unavailable(name, KindTimeout, err)
	}
	return Unavailable(name, KindNetwork, err)
}

// KindOf extracts the failure kind, or "" for errors that are not
// provider failures.
func KindOf(err error) Kind {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return ""
}

// InvalidRequestError names the offending field.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidRequestError) Is(target error) bool { return target == ErrInvalidRequest }

// Invalid builds an InvalidRequestError.
func Invalid(field, format string, args ...any) error {
	return &InvalidRequestError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
