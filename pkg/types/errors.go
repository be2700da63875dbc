package types

import "fmt"

// ErrorCode identifies a GoSpel error condition.
type ErrorCode string

// Error codes grouped by stage: S0xxx syntax, T1xxx type system,
// U1xxx name resolution, D1xxx evaluation.
const (
	// S0xxx: Lexer/Parser errors
	ErrStringNotClosed ErrorCode = "S0101"
	ErrNumberMalformed ErrorCode = "S0102"
	ErrUnexpectedToken ErrorCode = "S0201"
	ErrExpectedToken   ErrorCode = "S0202"

	// T1xxx: Type errors
	ErrTypeConversion       ErrorCode = "T1001"
	ErrTypeNotFound         ErrorCode = "T1002"
	ErrOperatorNotSupported ErrorCode = "T1003"

	// U1xxx: Resolution errors
	ErrVariableNotFound ErrorCode = "U1001"
	ErrPropertyRead     ErrorCode = "U1002"
	ErrPropertyWrite    ErrorCode = "U1003"
	ErrNotInvocable     ErrorCode = "U1004"
	ErrArgumentCount    ErrorCode = "U1005"

	// D1xxx: Evaluation errors
	ErrDivisionByZero ErrorCode = "D1001"
	ErrMaxDepth       ErrorCode = "D1002"
	ErrBadRegex       ErrorCode = "D1003"
)

// Error is a structured GoSpel error.
//
// Position is a byte offset into the expression source, or -1 when the error
// has not (yet) been attributed to a location. As an error unwinds through
// ancestor AST nodes, each ancestor stamps its child's position onto it only
// if the error is still unpositioned, so the reported position is always the
// most specific one.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Token    string
	Err      error
}

// NewError creates a new GoSpel error.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// StampPosition sets the error position unless one is already recorded.
func (e *Error) StampPosition(position int) *Error {
	if e.Position < 0 {
		e.Position = position
	}
	return e
}

// StampPosition applies the most-specific-position rule to any error:
// if err is a *Error without a position, the given position is recorded.
// Non-GoSpel errors pass through unchanged.
func StampPosition(err error, position int) error {
	if spelErr, ok := err.(*Error); ok {
		spelErr.StampPosition(position)
	}
	return err
}

// CodeOf returns the error code of a *Error, or "" for any other error.
func CodeOf(err error) ErrorCode {
	if spelErr, ok := err.(*Error); ok {
		return spelErr.Code
	}
	return ""
}
