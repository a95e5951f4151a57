// Package apperrors defines the closed error taxonomy shared by every stage
// of the video generation pipeline. Each stage wraps whatever it fails on in
// a *Error carrying one of the Codes below, so the worker and the HTTP layer
// can classify a failure without string-matching messages.
package apperrors

import (
	"errors"
	"fmt"
)

// Code is a closed set of pipeline failure classes.
type Code string

const (
	Validation          Code = "VALIDATION"
	OracleRetriable      Code = "ORACLE_RETRIABLE"
	OracleFatal          Code = "ORACLE_FATAL"
	ParseError           Code = "PARSE_ERROR"
	GateReject           Code = "GATE_REJECT"
	AssetShortage        Code = "ASSET_SHORTAGE"
	RenderFailure        Code = "RENDER_FAILURE"
	AuditNoGo            Code = "AUDIT_NOGO"
)

// Error is the concrete error type carried through the pipeline. Stage
// records the command or gate name that produced it.
type Error struct {
	Code  Code
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s[%s]: %v", e.Code, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error wrapping cause.
func New(code Code, stage string, cause error) *Error {
	return &Error{Code: code, Stage: stage, Err: cause}
}

// Newf is New with a formatted cause message.
func Newf(code Code, stage string, format string, args ...interface{}) *Error {
	return &Error{Code: code, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the Code from err if it (or something it wraps) is an
// *Error; otherwise it returns the empty Code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetriable reports whether err represents a condition the oracle adapter
// should retry rather than give up on immediately.
func IsRetriable(err error) bool {
	return CodeOf(err) == OracleRetriable
}
