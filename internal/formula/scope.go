package formula

// Scope is an immutable set of named values. Extending a scope returns a
// child that shadows its parent, so a scope can be shared between
// evaluations without copying.
type Scope struct {
	vars   map[string]Value
	parent *Scope
}

// NewScope creates a root scope holding a copy of vars
func NewScope(vars map[string]Value) *Scope {
	return (*Scope)(nil).Extend(vars)
}

// Extend returns a child scope holding a copy of vars
func (s *Scope) Extend(vars map[string]Value) *Scope {
	child := &Scope{vars: make(map[string]Value, len(vars)), parent: s}
	for k, v := range vars {
		child.vars[k] = v
	}
	return child
}

// With returns a child scope binding a single name
func (s *Scope) With(name string, v Value) *Scope {
	return &Scope{vars: map[string]Value{name: v}, parent: s}
}

// Lookup resolves a name, innermost binding first. A nil scope is empty.
func (s *Scope) Lookup(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}
