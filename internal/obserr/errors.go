// Package obserr defines the error-kind hierarchy shared by every stage of
// the oscript pipeline: lexing, parsing, decoding, evaluation, and
// interpretation.
package obserr

import "fmt"

// Kind tags the stage an error originated in, so callers can branch on
// errors.As without string-matching messages.
type Kind string

const (
	KindScan    Kind = "ScanError"
	KindParse   Kind = "ParseError"
	KindDecode  Kind = "DecodeError"
	KindEval    Kind = "EvalError"
	KindInterp  Kind = "InterpError"
	KindExec    Kind = "ExecError"
	KindUser    Kind = "UserException"
	KindCancel  Kind = "Cancel"
	KindTimeout Kind = "Timeout"
	KindNoDef   Kind = "NoDefault"
)

// Error is the common shape for every error kind in spec §7: a kind tag,
// the source line it occurred at (0 when not applicable), a message, and
// an optional offending token value.
type Error struct {
	Kind    Kind
	Line    int
	Message string
	Token   string
	Snippet string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", e.Kind, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

func Scan(line int, msg, tok string) *Error {
	return &Error{Kind: KindScan, Line: line, Message: msg, Token: tok}
}

func Parse(line int, msg, tok string) *Error {
	return &Error{Kind: KindParse, Line: line, Message: msg, Token: tok}
}

func Decode(line int, msg string) *Error {
	return &Error{Kind: KindDecode, Line: line, Message: msg}
}

func Eval(msg string) *Error {
	return &Error{Kind: KindEval, Message: msg}
}

func Interp(msg string) *Error {
	return &Error{Kind: KindInterp, Message: msg}
}

func Exec(msg string, wrapped error) *Error {
	return &Error{Kind: KindExec, Message: msg, Wrapped: wrapped}
}

func NoDefault(name string) *Error {
	return &Error{Kind: KindNoDef, Message: fmt.Sprintf("no default parameter definition for %s", name)}
}

// UserException carries the value raised by a RAISE statement. BREAK and
// CONTINUE are distinguished UserExceptions recognized by WHILE/*FOR.
type UserException struct {
	Value string
}

func (e *UserException) Error() string { return fmt.Sprintf("%s: %s", KindUser, e.Value) }

func IsBreak(err error) bool {
	ue, ok := err.(*UserException)
	return ok && ue.Value == "BREAK"
}

func IsContinue(err error) bool {
	ue, ok := err.(*UserException)
	return ok && ue.Value == "CONTINUE"
}

// Cancel is raised when an executor's cancel flag is observed at a
// suspension point.
type Cancel struct{}

func (Cancel) Error() string { return string(KindCancel) }

// TimeoutErr is raised when a wait primitive's timeout expires.
type TimeoutErr struct {
	Op string
}

func (e TimeoutErr) Error() string { return fmt.Sprintf("%s: %s timed out", KindTimeout, e.Op) }

// Snippet renders a window of src around byte offset pos, clipped to width
// characters on either side, for use in human-readable error records.
// Grounded on oscript/parse/sk_common.mk_error's error-context rendering.
func Snippet(src string, pos, width int) string {
	start := pos - width
	if start < 0 {
		start = 0
	}
	end := pos + width
	if end > len(src) {
		end = len(src)
	}
	if start >= end || start > len(src) {
		return ""
	}
	return src[start:end]
}
