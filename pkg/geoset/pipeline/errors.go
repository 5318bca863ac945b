package pipeline

import "fmt"

// StageError wraps any failure raised by a stage's run action.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// MissingDependencyError reports that an input a stage depends on is
// absent even though its producer was considered complete. It signals
// a cache or stage bug, not a normal failure path.
type MissingDependencyError struct {
	Stage string
	Input string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("stage %s: required input %s does not exist", e.Stage, e.Input)
}

// OutputMissingError reports that a stage returned success without
// producing a declared output.
type OutputMissingError struct {
	Stage string
	Path  string
}

func (e *OutputMissingError) Error() string {
	return fmt.Sprintf("stage %s: declared output %s was not produced", e.Stage, e.Path)
}
