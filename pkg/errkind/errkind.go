// Package errkind defines the conceptual error taxonomy shared by every
// component of the cryptographic substrate: malformed wire data, unsupported
// algorithms, uninitialized global state, and the TPM's own three-state
// result kinds all surface as a CoreError carrying one of these Kinds.
package errkind

import (
	"errors"
	"fmt"
)

// Kind names a class of failure. Kinds are conceptual, not exhaustive types:
// callers switch on Kind, never on the underlying Go type of CoreError.
type Kind string

const (
	// KindCborContent marks malformed CBOR: bad header, duplicate key under
	// canonical mode, indefinite length when disallowed, unexpected item,
	// length mismatch.
	KindCborContent Kind = "cbor_content"

	// KindFormatInvalid marks wrong magic bytes, wrong array arity, or a
	// missing multibase prefix.
	KindFormatInvalid Kind = "format_invalid"

	// KindUnsupported marks an unregistered algorithm, an unsupported CBOR
	// state, or an unsupported Go type on write.
	KindUnsupported Kind = "unsupported"

	// KindNotInitialized marks use of the registry before Initialize.
	KindNotInitialized Kind = "not_initialized"

	// KindTpmError marks a TPM response code that is not TPM_RC_SUCCESS.
	KindTpmError Kind = "tpm_error"

	// KindTransportError marks a platform I/O failure reaching the TPM.
	KindTransportError Kind = "transport_error"

	// KindCancelled marks a result truncated by cancellation. Never raised
	// as an error from an assessor; surfaced only through result fields.
	KindCancelled Kind = "cancelled"

	// KindFault marks a rule-level panic or error converted into a
	// synthetic FailedClaim.
	KindFault Kind = "fault"
)

// CoreError is the concrete error type every component returns. It never
// carries cryptographic verification failures: a bad signature returns
// false, not a CoreError.
type CoreError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, errkind.KindCborContent) read naturally by
// comparing Kind rather than requiring a sentinel value per kind.
func (e *CoreError) Is(target error) bool {
	var other *CoreError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func newf(kind Kind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Cbor builds a KindCborContent error.
func Cbor(format string, args ...any) *CoreError { return newf(KindCborContent, format, args...) }

// CborWrap builds a KindCborContent error wrapping cause.
func CborWrap(cause error, format string, args ...any) *CoreError {
	e := newf(KindCborContent, format, args...)
	e.Cause = cause
	return e
}

// FormatInvalid builds a KindFormatInvalid error.
func FormatInvalid(format string, args ...any) *CoreError {
	return newf(KindFormatInvalid, format, args...)
}

// Unsupported builds a KindUnsupported error.
func Unsupported(format string, args ...any) *CoreError {
	return newf(KindUnsupported, format, args...)
}

// NotInitialized builds the single KindNotInitialized error.
func NotInitialized(what string) *CoreError {
	return newf(KindNotInitialized, "%s used before Initialize", what)
}

// Tpm builds a KindTpmError error carrying the raw TPM response code.
func Tpm(code uint32, format string, args ...any) *CoreError {
	e := newf(KindTpmError, format, args...)
	e.Cause = fmt.Errorf("response code 0x%08x", code)
	return e
}

// Transport builds a KindTransportError error.
func Transport(format string, args ...any) *CoreError {
	return newf(KindTransportError, format, args...)
}

// Fault builds a KindFault error from a recovered panic or rule error.
func Fault(format string, args ...any) *CoreError { return newf(KindFault, format, args...) }

// Of reports whether err (or anything it wraps) is a CoreError of kind k.
func Of(err error, k Kind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind == k
	}
	return false
}
