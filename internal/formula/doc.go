// Package formula implements the small expression language used by presets.
//
// Expressions are side-effect free. They combine numbers, booleans and
// strings with arithmetic (+ - * / % ^), comparison (< <= > >= == != and =
// as a synonym for ==) and logical (&& || !) operators, read object members
// with ".", and call functions. Nothing in an expression can reach the host
// program: names resolve only against an explicit Scope and the built-ins.
//
// Built-ins: ifElse(cond, a, b), or(...), and(...), mod(a, b), len(x),
// min(...), max(...), floor, ceil, round, abs, sqrt, sin, cos, PI and E.
// All function arguments are evaluated before the call.
//
// Compile parses once; the resulting Program can be evaluated against many
// scopes. Failures are returned as *SyntaxError, *EvalError,
// *UndefinedError or *CallError and never panic.
package formula
