package errors

import "errors"

var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrKeyNotFound    = errors.New("api key not found")
	ErrKeyForbidden   = errors.New("api key forbidden")
	ErrQuotaExceeded  = errors.New("monthly quota exceeded")
	ErrClassification = errors.New("classification failed")
	ErrLedgerWrite    = errors.New("usage ledger write failed")
	ErrDatabaseError  = errors.New("database error")
)

type Error struct {
	Err     error
	Message string
	Code    string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
		Code:    "INTERNAL_ERROR",
	}
}
