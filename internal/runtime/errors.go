package runtime

import "errors"

// Error is a failure with a stable code that survives the wire. Two Errors
// match under errors.Is when their codes are equal.
type Error struct {
	Code    string
	Message string
}

func NewError(code, message string) *Error { return &Error{Code: code, Message: message} }

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func (e *Error) ErrorCode() string { return e.Code }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrMissingSignature = NewError("MissingSignature", "a required signer did not sign the transaction")
	ErrBadSignature     = NewError("BadSignature", "signature does not verify")
	ErrUnknownProgram   = NewError("UnknownProgram", "no program is registered under that id")
	ErrConflict         = NewError("Conflict", "a touched account changed concurrently; nothing was written")
	ErrMalformed        = NewError("InvalidArgument", "malformed transaction")
)

// CodeOf returns the code carried by err, or "Internal".
func CodeOf(err error) string {
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return "Internal"
}
