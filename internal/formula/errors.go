package formula

import "fmt"

// SyntaxError reports a malformed expression. Pos is the byte offset of the
// offending token.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// EvalError reports a failure while evaluating a well-formed expression
type EvalError struct {
	Pos int
	Msg string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation error at position %d: %s", e.Pos, e.Msg)
}

// UndefinedError reports a reference to a name that is not in scope
type UndefinedError struct {
	Name string
	Pos  int
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined name %q at position %d", e.Name, e.Pos)
}

// CallError wraps a failure raised inside a function call
type CallError struct {
	Func string
	Err  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Func, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func evalErrorf(pos int, format string, args ...any) error {
	return &EvalError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
