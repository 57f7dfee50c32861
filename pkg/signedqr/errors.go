package signedqr

import (
	"errors"
	"fmt"
)

// Kind groups error codes into the failure categories callers branch on.
type Kind int

const (
	// KindUnknown is returned for errors that are not *Error.
	KindUnknown Kind = iota
	// KindValidation covers rejected construction input.
	KindValidation
	// KindEncoding covers signature or public key fields that fail to decode.
	KindEncoding
	// KindParse covers wire text that is not a signed record.
	KindParse
	// KindCapacity covers records too large for the chosen symbol level.
	KindCapacity
	// KindTransport covers symbols that cannot be located or read.
	KindTransport
	// KindVerification covers well-formed records that are not trusted.
	// It appears only as a VerifyResult reason, never as a returned error.
	KindVerification
	// KindInternal covers collaborator faults such as provider failures.
	KindInternal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindEncoding:
		return "encoding"
	case KindParse:
		return "parse"
	case KindCapacity:
		return "capacity"
	case KindTransport:
		return "transport"
	case KindVerification:
		return "verification"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error codes.
const (
	// ErrCodeDataEmpty indicates create was called with empty data.
	ErrCodeDataEmpty = "DATA_EMPTY"

	// ErrCodeDataNotUTF8 indicates data is not valid UTF-8 and cannot be carried as text.
	ErrCodeDataNotUTF8 = "DATA_NOT_UTF8"

	// ErrCodeDataTooLong indicates data exceeds the usable budget of the symbol level.
	ErrCodeDataTooLong = "DATA_TOO_LONG"

	// ErrCodeKeyMissing indicates the key pair or one of its halves is absent.
	ErrCodeKeyMissing = "KEY_MISSING"

	// ErrCodeKeyInvalid indicates key material was rejected by the signer.
	ErrCodeKeyInvalid = "KEY_INVALID"

	// ErrCodeKeyMismatch indicates the public half does not belong to the private half.
	ErrCodeKeyMismatch = "KEY_MISMATCH"

	// ErrCodeFieldEncoding indicates a signature or public key field is not valid transport text.
	ErrCodeFieldEncoding = "FIELD_ENCODING_INVALID"

	// ErrCodeMalformed indicates the wire text is not a well-formed record object.
	ErrCodeMalformed = "RECORD_MALFORMED"

	// ErrCodeMissingField indicates one of data, signature or publicKey is absent.
	ErrCodeMissingField = "RECORD_FIELD_MISSING"

	// ErrCodeEmptyData indicates the parsed data field is empty.
	ErrCodeEmptyData = "RECORD_DATA_EMPTY"

	// ErrCodePayloadTooLarge indicates the serialized record exceeds symbol capacity.
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"

	// ErrCodeSymbolNotFound indicates no symbol was located in the image.
	ErrCodeSymbolNotFound = "SYMBOL_NOT_FOUND"

	// ErrCodeSymbolUnreadable indicates a symbol was located but could not be read.
	ErrCodeSymbolUnreadable = "SYMBOL_UNREADABLE"

	// ErrCodeSignatureInvalid indicates the signature does not verify.
	ErrCodeSignatureInvalid = "SIGNATURE_INVALID"

	// ErrCodeKeyNotPinned indicates the record carries a key other than the expected one.
	ErrCodeKeyNotPinned = "KEY_NOT_PINNED"

	// ErrCodeInternal indicates a collaborator failed unexpectedly.
	ErrCodeInternal = "INTERNAL"
)

var codeKinds = map[string]Kind{
	ErrCodeDataEmpty:        KindValidation,
	ErrCodeDataNotUTF8:      KindValidation,
	ErrCodeDataTooLong:      KindValidation,
	ErrCodeKeyMissing:       KindValidation,
	ErrCodeKeyInvalid:       KindValidation,
	ErrCodeKeyMismatch:      KindValidation,
	ErrCodeFieldEncoding:    KindEncoding,
	ErrCodeMalformed:        KindParse,
	ErrCodeMissingField:     KindParse,
	ErrCodeEmptyData:        KindParse,
	ErrCodePayloadTooLarge:  KindCapacity,
	ErrCodeSymbolNotFound:   KindTransport,
	ErrCodeSymbolUnreadable: KindTransport,
	ErrCodeSignatureInvalid: KindVerification,
	ErrCodeKeyNotPinned:     KindVerification,
	ErrCodeInternal:         KindInternal,
}

// Error is a signed record failure carrying a code from the list above.
type Error struct {
	// Code is one of the ErrCode* constants.
	Code string

	// Field names the record field involved, if any.
	Field string

	// Message is a human-readable description.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code
	if e.Field != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", msg, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", msg, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Kind returns the failure category of the code.
func (e *Error) Kind() Kind {
	if k, ok := codeKinds[e.Code]; ok {
		return k
	}
	return KindUnknown
}

// NewError creates an Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates an Error that wraps an underlying error.
func WrapError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func fieldError(code, field, message string, cause error) *Error {
	return &Error{Code: code, Field: field, Message: message, Cause: cause}
}

// Sentinel errors for use with errors.Is.
var (
	ErrDataEmpty        = NewError(ErrCodeDataEmpty, "data cannot be empty")
	ErrDataNotUTF8      = NewError(ErrCodeDataNotUTF8, "data is not valid UTF-8")
	ErrDataTooLong      = NewError(ErrCodeDataTooLong, "data is too long for the symbol")
	ErrKeyMissing       = NewError(ErrCodeKeyMissing, "key pair is incomplete")
	ErrKeyInvalid       = NewError(ErrCodeKeyInvalid, "key material is invalid")
	ErrKeyMismatch      = NewError(ErrCodeKeyMismatch, "public key does not match private key")
	ErrFieldEncoding    = NewError(ErrCodeFieldEncoding, "field is not valid transport text")
	ErrMalformed        = NewError(ErrCodeMalformed, "text is not a signed record object")
	ErrMissingField     = NewError(ErrCodeMissingField, "required field is missing")
	ErrEmptyData        = NewError(ErrCodeEmptyData, "data field is empty")
	ErrPayloadTooLarge  = NewError(ErrCodePayloadTooLarge, "serialized record exceeds symbol capacity")
	ErrSymbolNotFound   = NewError(ErrCodeSymbolNotFound, "no symbol found")
	ErrSymbolUnreadable = NewError(ErrCodeSymbolUnreadable, "symbol is unreadable")
	ErrSignatureInvalid = NewError(ErrCodeSignatureInvalid, "signature verification failed")
	ErrKeyNotPinned     = NewError(ErrCodeKeyNotPinned, "record key is not the expected key")
	ErrInternal         = NewError(ErrCodeInternal, "internal failure")
)

// AsError checks if err is an Error and returns it if so.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an Error, or returns empty string.
func GetErrorCode(err error) string {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// GetErrorKind returns the Kind of err, or KindUnknown.
func GetErrorKind(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind()
	}
	return KindUnknown
}
