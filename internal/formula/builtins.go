package formula

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// builtins is the outermost scope of every evaluation. Names bound in the
// evaluation scope shadow it.
var builtins = NewScope(map[string]Value{
	"ifElse": FunctionValue(NewNative("ifElse", 3, func(args []Value) (Value, error) {
		if args[0].Truthy() {
			return args[1], nil
		}
		return args[2], nil
	})),
	"or": FunctionValue(NewNative("or", Variadic, func(args []Value) (Value, error) {
		for _, a := range args {
			if a.Truthy() {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	})),
	"and": FunctionValue(NewNative("and", Variadic, func(args []Value) (Value, error) {
		for _, a := range args {
			if !a.Truthy() {
				return Bool(false), nil
			}
		}
		return Bool(true), nil
	})),
	"mod": FunctionValue(NewNative("mod", 2, func(args []Value) (Value, error) {
		a, b, err := twoNumbers(args)
		if err != nil {
			return Value{}, err
		}
		if b == 0 {
			return Value{}, errors.New("division by zero")
		}
		// result takes the sign of the divisor
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return Number(r), nil
	})),
	"len": FunctionValue(NewNative("len", 1, func(args []Value) (Value, error) {
		switch v := args[0]; v.Kind() {
		case KindString:
			s, _ := v.Text()
			return Number(float64(utf8.RuneCountInString(s))), nil
		case KindObject:
			if l, ok := v.Field("length"); ok && l.Kind() == KindNumber {
				return l, nil
			}
			return Number(float64(len(v.obj))), nil
		default:
			return Value{}, fmt.Errorf("len of %s", v.Kind())
		}
	})),
	"min": FunctionValue(NewNative("min", Variadic, func(args []Value) (Value, error) {
		return fold(args, math.Min)
	})),
	"max": FunctionValue(NewNative("max", Variadic, func(args []Value) (Value, error) {
		return fold(args, math.Max)
	})),
	"floor": math1("floor", math.Floor),
	"ceil":  math1("ceil", math.Ceil),
	"round": math1("round", math.Round),
	"abs":   math1("abs", math.Abs),
	"sqrt":  math1("sqrt", math.Sqrt),
	"sin":   math1("sin", math.Sin),
	"cos":   math1("cos", math.Cos),
	"PI":    Number(math.Pi),
	"E":     Number(math.E),
})

// IsBuiltin reports whether name is a built-in function or constant
func IsBuiltin(name string) bool {
	_, ok := builtins.Lookup(name)
	return ok
}

func math1(name string, fn func(float64) float64) Value {
	return FunctionValue(NewNative(name, 1, func(args []Value) (Value, error) {
		f, ok := args[0].Float()
		if !ok {
			return Value{}, fmt.Errorf("expected a number, got %s", args[0].Kind())
		}
		return Number(fn(f)), nil
	}))
}

func twoNumbers(args []Value) (float64, float64, error) {
	a, aok := args[0].Float()
	b, bok := args[1].Float()
	if !aok || !bok {
		return 0, 0, fmt.Errorf("expected numbers, got %s and %s", args[0].Kind(), args[1].Kind())
	}
	return a, b, nil
}

func fold(args []Value, fn func(a, b float64) float64) (Value, error) {
	if len(args) == 0 {
		return Value{}, errors.New("expected at least one argument")
	}
	acc, ok := args[0].Float()
	if !ok {
		return Value{}, fmt.Errorf("expected a number, got %s", args[0].Kind())
	}
	for _, a := range args[1:] {
		f, ok := a.Float()
		if !ok {
			return Value{}, fmt.Errorf("expected a number, got %s", a.Kind())
		}
		acc = fn(acc, f)
	}
	return Number(acc), nil
}
