package formula

import (
	"math"
)

// Program is a compiled expression, safe to evaluate repeatedly and
// concurrently against different scopes
type Program struct {
	root Node
}

// Compile parses src into a Program
func Compile(src string) (*Program, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Program{root: root}, nil
}

// MustCompile is like Compile but panics on error. For static expressions.
func MustCompile(src string) *Program {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Root returns the syntax tree
func (p *Program) Root() Node { return p.root }

// Eval evaluates the program in scope. Names not found in scope fall back
// to the built-ins.
func (p *Program) Eval(scope *Scope) (Value, error) {
	return (&evaluator{}).eval(p.root, scope)
}

// Evaluate compiles and evaluates expr in one step
func Evaluate(expr string, scope *Scope) (Value, error) {
	p, err := Compile(expr)
	if err != nil {
		return Value{}, err
	}
	return p.Eval(scope)
}

type evaluator struct {
	depth int
}

func (ev *evaluator) eval(n Node, scope *Scope) (Value, error) {
	switch node := n.(type) {
	case *NumberLit:
		return Number(node.Value), nil

	case *StringLit:
		return String(node.Value), nil

	case *BoolLit:
		return Bool(node.Value), nil

	case *Ident:
		if v, ok := scope.Lookup(node.Name); ok {
			return v, nil
		}
		if v, ok := builtins.Lookup(node.Name); ok {
			return v, nil
		}
		return Value{}, &UndefinedError{Name: node.Name, Pos: node.At}

	case *Member:
		obj, err := ev.eval(node.Object, scope)
		if err != nil {
			return Value{}, err
		}
		if obj.Kind() != KindObject {
			return Value{}, evalErrorf(node.At, "cannot read %q of %s", node.Name, obj.Kind())
		}
		v, ok := obj.Field(node.Name)
		if !ok {
			return Value{}, &UndefinedError{Name: node.Object.String() + "." + node.Name, Pos: node.At}
		}
		return v, nil

	case *Unary:
		operand, err := ev.eval(node.Operand, scope)
		if err != nil {
			return Value{}, err
		}
		return unary(node, operand)

	case *Binary:
		return ev.binary(node, scope)

	case *Call:
		callee, err := ev.eval(node.Callee, scope)
		if err != nil {
			return Value{}, err
		}
		fn, ok := callee.Func()
		if !ok {
			return Value{}, evalErrorf(node.At, "%s is not a function", node.Callee.String())
		}
		args := make([]Value, len(node.Args))
		for i, a := range node.Args {
			if args[i], err = ev.eval(a, scope); err != nil {
				return Value{}, err
			}
		}
		return fn.call(ev, args)
	}
	return Value{}, evalErrorf(n.Pos(), "unknown expression %T", n)
}

func unary(node *Unary, operand Value) (Value, error) {
	switch node.Op {
	case "!":
		return Bool(!operand.Truthy()), nil
	case "-", "+":
		f, ok := operand.Float()
		if !ok {
			return Value{}, evalErrorf(node.At, "operator %s expects a number, got %s", node.Op, operand.Kind())
		}
		if node.Op == "-" {
			f = -f
		}
		return Number(f), nil
	}
	return Value{}, evalErrorf(node.At, "unknown operator %s", node.Op)
}

func (ev *evaluator) binary(node *Binary, scope *Scope) (Value, error) {
	left, err := ev.eval(node.Left, scope)
	if err != nil {
		return Value{}, err
	}

	// Logical operators short-circuit
	switch node.Op {
	case "&&":
		if !left.Truthy() {
			return Bool(false), nil
		}
		right, err := ev.eval(node.Right, scope)
		if err != nil {
			return Value{}, err
		}
		return Bool(right.Truthy()), nil
	case "||":
		if left.Truthy() {
			return Bool(true), nil
		}
		right, err := ev.eval(node.Right, scope)
		if err != nil {
			return Value{}, err
		}
		return Bool(right.Truthy()), nil
	}

	right, err := ev.eval(node.Right, scope)
	if err != nil {
		return Value{}, err
	}

	switch node.Op {
	case "==":
		return Bool(left.Equal(right)), nil
	case "!=":
		return Bool(!left.Equal(right)), nil
	}

	if node.Op == "+" {
		ls, lok := left.Text()
		rs, rok := right.Text()
		if lok && rok {
			return String(ls + rs), nil
		}
	}

	if ls, ok := left.Text(); ok {
		if rs, ok := right.Text(); ok {
			switch node.Op {
			case "<":
				return Bool(ls < rs), nil
			case "<=":
				return Bool(ls <= rs), nil
			case ">":
				return Bool(ls > rs), nil
			case ">=":
				return Bool(ls >= rs), nil
			}
		}
	}

	a, aok := left.Float()
	b, bok := right.Float()
	if !aok || !bok {
		return Value{}, evalErrorf(node.At, "operator %s expects numbers, got %s and %s", node.Op, left.Kind(), right.Kind())
	}

	switch node.Op {
	case "+":
		return Number(a + b), nil
	case "-":
		return Number(a - b), nil
	case "*":
		return Number(a * b), nil
	case "/":
		if b == 0 {
			return Value{}, evalErrorf(node.At, "division by zero")
		}
		return Number(a / b), nil
	case "%":
		if b == 0 {
			return Value{}, evalErrorf(node.At, "division by zero")
		}
		return Number(math.Mod(a, b)), nil
	case "^":
		return Number(math.Pow(a, b)), nil
	case "<":
		return Bool(a < b), nil
	case "<=":
		return Bool(a <= b), nil
	case ">":
		return Bool(a > b), nil
	case ">=":
		return Bool(a >= b), nil
	}
	return Value{}, evalErrorf(node.At, "unknown operator %s", node.Op)
}
