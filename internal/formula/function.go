package formula

import "fmt"

// maxCallDepth bounds nested function calls. Functions can be passed as
// arguments, so a user function can end up calling itself.
const maxCallDepth = 64

// Variadic marks a function accepting any number of arguments
const Variadic = -1

// Function is a callable value: either a native built-in or a user-defined
// function compiled from an expression
type Function struct {
	Name  string
	Arity int

	native func(args []Value) (Value, error)

	params  []string
	body    *Program
	closure *Scope
}

// NewNative creates a function implemented in Go
func NewNative(name string, arity int, fn func(args []Value) (Value, error)) *Function {
	return &Function{Name: name, Arity: arity, native: fn}
}

// Define creates a user function. Calls bind params positionally in a child
// of closure and evaluate body there. Missing arguments are errors, extra
// arguments are ignored.
func Define(name string, params []string, body *Program, closure *Scope) *Function {
	return &Function{
		Name:    name,
		Arity:   len(params),
		params:  append([]string(nil), params...),
		body:    body,
		closure: closure,
	}
}

// Call invokes the function outside of an evaluation
func (f *Function) Call(args ...Value) (Value, error) {
	return f.call(&evaluator{}, args)
}

func (f *Function) call(ev *evaluator, args []Value) (Value, error) {
	if f.native != nil {
		if f.Arity != Variadic && len(args) != f.Arity {
			return Value{}, &CallError{Func: f.Name, Err: fmt.Errorf("expected %d arguments, got %d", f.Arity, len(args))}
		}
		v, err := f.native(args)
		if err != nil {
			return Value{}, &CallError{Func: f.Name, Err: err}
		}
		return v, nil
	}

	if len(args) < len(f.params) {
		return Value{}, &CallError{Func: f.Name, Err: fmt.Errorf("expected %d arguments, got %d", len(f.params), len(args))}
	}
	if ev.depth >= maxCallDepth {
		return Value{}, &CallError{Func: f.Name, Err: fmt.Errorf("call depth exceeds %d", maxCallDepth)}
	}

	local := make(map[string]Value, len(f.params))
	for i, name := range f.params {
		local[name] = args[i]
	}

	ev.depth++
	defer func() { ev.depth-- }()

	v, err := ev.eval(f.body.root, f.closure.Extend(local))
	if err != nil {
		return Value{}, &CallError{Func: f.Name, Err: err}
	}
	return v, nil
}
