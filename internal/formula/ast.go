package formula

import (
	"strconv"
	"strings"
)

// Node is a parsed expression
type Node interface {
	Pos() int
	String() string
}

// NumberLit is a numeric literal
type NumberLit struct {
	At    int
	Value float64
}

// StringLit is a quoted string literal
type StringLit struct {
	At    int
	Value string
}

// BoolLit is true or false
type BoolLit struct {
	At    int
	Value bool
}

// Ident is a name looked up in scope
type Ident struct {
	At   int
	Name string
}

// Unary is a prefix operator applied to an operand
type Unary struct {
	At      int
	Op      string
	Operand Node
}

// Binary is an infix operator
type Binary struct {
	At          int
	Op          string
	Left, Right Node
}

// Call invokes a function value
type Call struct {
	At     int
	Callee Node
	Args   []Node
}

// Member reads a field of an object value
type Member struct {
	At     int
	Object Node
	Name   string
}

func (n *NumberLit) Pos() int { return n.At }
func (n *StringLit) Pos() int { return n.At }
func (n *BoolLit) Pos() int   { return n.At }
func (n *Ident) Pos() int     { return n.At }
func (n *Unary) Pos() int     { return n.At }
func (n *Binary) Pos() int    { return n.At }
func (n *Call) Pos() int      { return n.At }
func (n *Member) Pos() int    { return n.At }

func (n *NumberLit) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }
func (n *StringLit) String() string { return strconv.Quote(n.Value) }
func (n *BoolLit) String() string   { return strconv.FormatBool(n.Value) }
func (n *Ident) String() string     { return n.Name }
func (n *Unary) String() string     { return "(" + n.Op + n.Operand.String() + ")" }

func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + n.Op + " " + n.Right.String() + ")"
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Callee.String() + "(" + strings.Join(args, ", ") + ")"
}

func (n *Member) String() string { return n.Object.String() + "." + n.Name }

// Identifiers returns the free names referenced by an expression, in order
// of first appearance. Member names are not included.
func Identifiers(root Node) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch node := n.(type) {
		case *Ident:
			if !seen[node.Name] {
				seen[node.Name] = true
				names = append(names, node.Name)
			}
		case *Unary:
			walk(node.Operand)
		case *Binary:
			walk(node.Left)
			walk(node.Right)
		case *Call:
			walk(node.Callee)
			for _, a := range node.Args {
				walk(a)
			}
		case *Member:
			walk(node.Object)
		}
	}
	walk(root)
	return names
}
