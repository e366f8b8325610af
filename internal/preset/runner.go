// Package preset synthesizes a topology from a preset's formulas and the
// machine list.
package preset

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"netpanel/internal/domain"
	"netpanel/internal/formula"
	"netpanel/internal/topology"
)

const (
	fnGetIntnet = "getIntnet"
	fnGetPosX   = "getPosX"
	fnGetPosY   = "getPosY"
)

// Result is the topology produced by a successful run
type Result struct {
	Nodes     []domain.Node
	Intnets   domain.IntnetConfig
	MaxNumber int
}

// Edges returns the machine-intnet edges of the result
func (r *Result) Edges() []domain.Edge {
	return topology.EdgesFromConfig(r.Intnets, r.Nodes)
}

// Runner evaluates presets
type Runner struct {
	newID func() string
}

// Option configures a Runner
type Option func(*Runner)

// WithIDGenerator sets the function producing intnet uuids
func WithIDGenerator(fn func() string) Option {
	return func(r *Runner) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRunner creates a Runner
func NewRunner(opts ...Option) *Runner {
	r := &Runner{newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates p against machines with a default Runner
func Run(p *domain.Preset, machines []domain.Machine) (*Result, error) {
	return NewRunner().Run(p, machines)
}

type placement struct {
	machine domain.Machine
	intnet  int
	pos     domain.Position
}

// Run evaluates the preset for every machine in order. Either every machine
// is placed or a *RunError listing each failure is returned and no result
// is produced.
func (r *Runner) Run(p *domain.Preset, machines []domain.Machine) (*Result, error) {
	if p == nil {
		return nil, &RunError{Errors: []error{errors.New("no preset")}}
	}
	fail := func(errs ...error) (*Result, error) {
		return nil, &RunError{Preset: p.Name, Errors: errs}
	}

	defaults := defaultScope(len(machines))

	variables, scope, err := resolveVariables(p.Variables, defaults)
	if err != nil {
		return fail(err)
	}

	functions, err := compileCustomFunctions(p.CustomFunctions, scope)
	if err != nil {
		return fail(err)
	}

	core, err := compileCore(p.CoreFunctions)
	if err != nil {
		return fail(err)
	}

	base := defaults.Extend(functions)
	placements := make([]placement, 0, len(machines))
	var errs []error
	for i, m := range machines {
		s := base.Extend(machineFields(m)).With("i", formula.Number(float64(i))).Extend(variables)
		pl, machineErrs := r.place(i, m, core, s)
		if len(machineErrs) > 0 {
			errs = append(errs, machineErrs...)
			continue
		}
		placements = append(placements, pl)
	}
	if len(errs) > 0 {
		return fail(errs...)
	}

	return r.build(placements), nil
}

func defaultScope(machineCount int) *formula.Scope {
	n := formula.Number(float64(machineCount))
	return formula.NewScope(map[string]formula.Value{
		"machines":     formula.Object(map[string]formula.Value{"length": n}),
		"machineCount": n,
	})
}

// resolveVariables evaluates variables in order. Each expression sees the
// defaults and the variables before it only.
func resolveVariables(vars domain.Variables, defaults *formula.Scope) (map[string]formula.Value, *formula.Scope, error) {
	declared := make(map[string]bool, len(vars))
	for _, v := range vars {
		declared[v.Name] = true
	}

	resolved := make(map[string]formula.Value, len(vars))
	scope := defaults
	for _, v := range vars {
		prog, err := formula.Compile(v.Expression)
		if err != nil {
			return nil, nil, &StageError{Stage: StageVariable, Name: v.Name, Err: err}
		}
		for _, name := range formula.Identifiers(prog.Root()) {
			if _, ok := scope.Lookup(name); !ok && declared[name] && !formula.IsBuiltin(name) {
				return nil, nil, &StageError{Stage: StageVariable, Name: v.Name, Err: fmt.Errorf("variable %s is %w", name, ErrForwardReference)}
			}
		}
		val, err := prog.Eval(scope)
		if err != nil {
			return nil, nil, &StageError{Stage: StageVariable, Name: v.Name, Err: err}
		}
		resolved[v.Name] = val
		scope = scope.With(v.Name, val)
	}
	return resolved, scope, nil
}

// compileCustomFunctions closes each function over scope. Custom functions
// cannot call each other.
func compileCustomFunctions(fns map[string]domain.CustomFunction, scope *formula.Scope) (map[string]formula.Value, error) {
	out := make(map[string]formula.Value, len(fns))
	for name, fn := range fns {
		prog, err := formula.Compile(fn.Expression)
		if err != nil {
			return nil, &StageError{Stage: StageCustomFunction, Name: name, Err: err}
		}
		seen := make(map[string]bool, len(fn.Arguments))
		for _, arg := range fn.Arguments {
			if seen[arg] {
				return nil, &StageError{Stage: StageCustomFunction, Name: name, Err: fmt.Errorf("duplicate argument %q", arg)}
			}
			seen[arg] = true
		}
		out[name] = formula.FunctionValue(formula.Define(name, fn.Arguments, prog, scope))
	}
	return out, nil
}

type coreFunctions struct {
	getIntnet, getPosX, getPosY *formula.Program
}

func compileCore(c domain.CoreFunctions) (*coreFunctions, error) {
	compile := func(name, src string) (*formula.Program, error) {
		if src == "" {
			return nil, &StageError{Stage: StageCoreFunction, Name: name, Err: errors.New("missing expression")}
		}
		prog, err := formula.Compile(src)
		if err != nil {
			return nil, &StageError{Stage: StageCoreFunction, Name: name, Err: err}
		}
		return prog, nil
	}

	var core coreFunctions
	var err error
	if core.getIntnet, err = compile(fnGetIntnet, c.GetIntnet); err != nil {
		return nil, err
	}
	if core.getPosX, err = compile(fnGetPosX, c.GetPosX); err != nil {
		return nil, err
	}
	if core.getPosY, err = compile(fnGetPosY, c.GetPosY); err != nil {
		return nil, err
	}
	return &core, nil
}

func machineFields(m domain.Machine) map[string]formula.Value {
	return map[string]formula.Value{
		"id":              formula.String(m.UUID),
		"uuid":            formula.String(m.UUID),
		"group":           formula.String(m.Group),
		"group_member_id": formula.Number(float64(m.GroupMemberID)),
		"domain":          formula.String(m.Domain),
		"port":            formula.Number(float64(m.Port)),
		"state":           formula.String(string(m.State)),
	}
}

func (r *Runner) place(i int, m domain.Machine, core *coreFunctions, scope *formula.Scope) (placement, []error) {
	pl := placement{machine: m}
	var errs []error
	fail := func(fn string, err error) {
		errs = append(errs, &MachineError{Index: i, MachineID: m.UUID, Function: fn, Err: err})
	}

	if v, err := core.getIntnet.Eval(scope); err != nil {
		fail(fnGetIntnet, err)
	} else if n, err := intnetNumber(v); err != nil {
		fail(fnGetIntnet, err)
	} else {
		pl.intnet = n
	}

	if v, err := core.getPosX.Eval(scope); err != nil {
		fail(fnGetPosX, err)
	} else if x, err := coordinate(v); err != nil {
		fail(fnGetPosX, err)
	} else {
		pl.pos.X = x
	}

	if v, err := core.getPosY.Eval(scope); err != nil {
		fail(fnGetPosY, err)
	} else if y, err := coordinate(v); err != nil {
		fail(fnGetPosY, err)
	} else {
		pl.pos.Y = y
	}

	return pl, errs
}

// intnetNumber validates a getIntnet result. 0 and false mean no intnet.
func intnetNumber(v formula.Value) (int, error) {
	if b, ok := v.Boolean(); ok && !b {
		return 0, nil
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("intnet must be a number, got %s", v.Kind())
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("intnet must be finite, got %v", f)
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("intnet must be a non-negative integer, got %v", f)
	}
	if f > math.MaxInt32 {
		return 0, fmt.Errorf("intnet %v out of range", f)
	}
	return int(f), nil
}

func coordinate(v formula.Value) (float64, error) {
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("position must be a number, got %s", v.Kind())
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("position must be finite, got %v", f)
	}
	return f, nil
}

// build groups machines by intnet number in order of first appearance and
// places one intnet node at the midpoint of each group
func (r *Runner) build(placements []placement) *Result {
	result := &Result{
		Nodes:   make([]domain.Node, 0, len(placements)),
		Intnets: make(domain.IntnetConfig),
	}

	var order []int
	groups := make(map[int][]placement)
	for _, pl := range placements {
		result.Nodes = append(result.Nodes, domain.NewMachineNode(pl.machine, pl.pos))
		if pl.intnet == 0 {
			continue
		}
		if _, ok := groups[pl.intnet]; !ok {
			order = append(order, pl.intnet)
		}
		groups[pl.intnet] = append(groups[pl.intnet], pl)
	}

	for _, number := range order {
		members := groups[number]
		positions := make([]domain.Position, len(members))
		machines := make([]string, len(members))
		for i, pl := range members {
			positions[i] = pl.pos
			machines[i] = pl.machine.UUID
		}
		pos, _ := domain.Midpoint(positions...)

		id := r.newID()
		result.Nodes = append(result.Nodes, domain.NewIntnetNode(number, id, pos))
		result.Intnets[id] = domain.IntnetEntry{UUID: id, Number: number, Machines: machines}
		if number > result.MaxNumber {
			result.MaxNumber = number
		}
	}
	return result
}
