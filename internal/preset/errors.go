package preset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPresetFailed matches every error returned by Run
var ErrPresetFailed = errors.New("preset failed")

// ErrForwardReference reports a variable that uses one defined after it
var ErrForwardReference = errors.New("referenced before it is defined")

// Stage names the part of a preset being processed when an error occurred
type Stage string

const (
	StageVariable       Stage = "variable"
	StageCustomFunction Stage = "custom function"
	StageCoreFunction   Stage = "core function"
)

// StageError names the variable or function that failed to compile or
// evaluate before any machine was placed
type StageError struct {
	Stage Stage
	Name  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Name, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// MachineError reports a core function that failed for one machine
type MachineError struct {
	Index     int
	MachineID string
	Function  string
	Err       error
}

func (e *MachineError) Error() string {
	return fmt.Sprintf("machine %d (%s): %s: %v", e.Index, e.MachineID, e.Function, e.Err)
}

func (e *MachineError) Unwrap() error { return e.Err }

// RunError collects every failure of a run. Nothing is applied when a run
// returns one.
type RunError struct {
	Preset string
	Errors []error
}

func (e *RunError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	prefix := "preset failed"
	if e.Preset != "" {
		prefix = fmt.Sprintf("preset %q failed", e.Preset)
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(msgs, "; "))
}

func (e *RunError) Unwrap() []error { return e.Errors }

// Is makes every RunError match ErrPresetFailed
func (e *RunError) Is(target error) bool { return target == ErrPresetFailed }
