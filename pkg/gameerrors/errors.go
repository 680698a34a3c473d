package gameerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure that is reported back to a client.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeOwnership         Code = "OWNERSHIP_ERROR"
	CodeSelfAttack        Code = "SELF_ATTACK_ERROR"
	CodeOwnershipMismatch Code = "OWNERSHIP_MISMATCH_ERROR"
	CodeUnknownFigure     Code = "UNKNOWN_FIGURE_ERROR"
	CodeInvalidPlayer     Code = "INVALID_PLAYER_ERROR"
	CodePlayerNotFound    Code = "PLAYER_NOT_FOUND_ERROR"
	CodeUserNotFound      Code = "USER_NOT_FOUND_ERROR"
	CodeGameNotFound      Code = "GAME_NOT_FOUND_ERROR"
	CodeGameFinished      Code = "GAME_FINISHED_ERROR"
	CodeTurnOrder         Code = "TURN_ORDER_ERROR"
	CodeSeatAuthorization Code = "SEAT_AUTHORIZATION_ERROR"
	CodeElectionConflict  Code = "ELECTION_CONFLICT"
	CodeStorage           Code = "STORAGE_ERROR"
	CodeProtocol          Code = "PROTOCOL_ERROR"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Error is a coded failure. Details carries optional structured context
// that is forwarded to the client as is.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetail returns the error with an extra detail attached.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a coded error with a formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a coded error that keeps err as its cause.
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		cause:   err,
	}
}

// CodeOf returns the code of the first coded error in the chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Response is the body of an ERROR event.
type Response struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Code    Code                   `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ToResponse converts any error into the shape sent to clients. Errors
// without a code are reported as internal and their message is hidden.
func ToResponse(err error) Response {
	var e *Error
	if !errors.As(err, &e) {
		return Response{
			Status:  "error",
			Message: "internal server error",
			Code:    CodeInternal,
		}
	}
	return Response{
		Status:  "error",
		Message: e.Message,
		Code:    e.Code,
		Details: e.Details,
	}
}
