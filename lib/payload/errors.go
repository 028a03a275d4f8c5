package payload

import "fmt"

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code (of type RetCode), a message and optionally the
// error that caused it (e.g. the I/O error of an unreadable source).
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The underlying cause (may be nil)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("PayloadError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("PayloadError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same return code.
// This lets callers match with errors.Is(err, payload.ErrAlreadyInitialized)
// no matter which message or cause the concrete error carries.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new Error with the given code and message that wraps err.
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess            RetCode = iota // 0: Operation executed successfully.
	RetCAlreadyInitialized                // 1: A store is already installed.
	RetCSourceUnavailable                 // 2: The payload source could not be read.
	RetCEmptyStore                        // 3: A store must hold at least one payload.
	RetCNotInstalled                      // 4: No store has been installed yet.
	RetCUnknownPayload                    // 5: The payload id does not exist in the store.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCAlreadyInitialized:
		return "AlreadyInitialized"
	case RetCSourceUnavailable:
		return "SourceUnavailable"
	case RetCEmptyStore:
		return "EmptyStore"
	case RetCNotInstalled:
		return "NotInstalled"
	case RetCUnknownPayload:
		return "UnknownPayload"
	default:
		return "Unknown"
	}
}

// Sentinel errors for use with errors.Is
var (
	ErrAlreadyInitialized = NewError(RetCAlreadyInitialized, "payload store already initialized")
	ErrSourceUnavailable  = NewError(RetCSourceUnavailable, "payload source unavailable")
	ErrEmptyStore         = NewError(RetCEmptyStore, "payload store must contain at least one payload")
	ErrNotInstalled       = NewError(RetCNotInstalled, "no payload store installed")
	ErrUnknownPayload     = NewError(RetCUnknownPayload, "unknown payload id")
)
