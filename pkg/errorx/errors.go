package errorx

import (
	"errors"
	"fmt"
)

type ErrorCode int

const (
	GENERAL_ERR ErrorCode = 1001
	NOT_FOUND   ErrorCode = 1002
	IOErr       ErrorCode = 1003

	// error code for sql

	ParserError    ErrorCode = 2001
	PlanError      ErrorCode = 2101
	SchemaMismatch ErrorCode = 2102
	NoPhysicalPlan ErrorCode = 2103
	ExecutorError  ErrorCode = 2201

	PushdownUnsound ErrorCode = 9001
)

// ErrRuleDeclined is returned by a rule whose precondition does not hold.
// It is not a failure: the search skips the rule and goes on.
var ErrRuleDeclined = errors.New("rule declined")

type Error struct {
	msg  string
	code ErrorCode
}

func New(message string) *Error {
	return &Error{message, GENERAL_ERR}
}

func NewWithCode(code ErrorCode, message string) *Error {
	return &Error{message, code}
}

func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{fmt.Sprintf(format, args...), code}
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Code() ErrorCode {
	return e.code
}

type ErrorWithCode interface {
	Error() string
	Code() ErrorCode
}

func NewNotFound(format string, args ...interface{}) error {
	return Newf(NOT_FOUND, format, args...)
}

func NewParserError(msg string) error {
	return &Error{code: ParserError, msg: msg}
}

func NewSchemaMismatch(format string, args ...interface{}) error {
	return Newf(SchemaMismatch, format, args...)
}

func NewNoPhysicalPlan(format string, args ...interface{}) error {
	return Newf(NoPhysicalPlan, format, args...)
}

func NewPlanError(format string, args ...interface{}) error {
	return Newf(PlanError, format, args...)
}

func NewPushdownUnsound(format string, args ...interface{}) error {
	return Newf(PushdownUnsound, format, args...)
}

// NewExecutorError wraps an execution-time failure so callers can tell it
// apart from planning failures.
func NewExecutorError(err error) error {
	if err == nil || IsExecutorError(err) {
		return err
	}
	return &wrapped{code: ExecutorError, cause: err}
}

type wrapped struct {
	code  ErrorCode
	cause error
}

func (w *wrapped) Error() string {
	return w.cause.Error()
}

func (w *wrapped) Code() ErrorCode {
	return w.code
}

func (w *wrapped) Unwrap() error {
	return w.cause
}

// CodeOf returns the code of the first coded error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var withCode ErrorWithCode
	if errors.As(err, &withCode) {
		return withCode.Code(), true
	}
	return 0, false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

func IsNotFound(err error) bool {
	return hasCode(err, NOT_FOUND)
}

func IsSchemaMismatch(err error) bool {
	return hasCode(err, SchemaMismatch)
}

func IsNoPhysicalPlan(err error) bool {
	return hasCode(err, NoPhysicalPlan)
}

func IsExecutorError(err error) bool {
	return hasCode(err, ExecutorError)
}

func IsPushdownUnsound(err error) bool {
	return hasCode(err, PushdownUnsound)
}

// IsPlanningError reports whether err was raised while building or
// optimizing a plan, as opposed to while executing one.
func IsPlanningError(err error) bool {
	c, ok := CodeOf(err)
	if !ok {
		return false
	}
	return c == PlanError || c == SchemaMismatch || c == NoPhysicalPlan || c == NOT_FOUND || c == ParserError
}
