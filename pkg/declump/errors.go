package declump

import (
	"fmt"
)

// ConfigurationError reports parameters that cannot run together or are out of range.
// It is returned before any image is examined.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "declump: invalid configuration: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TypeError reports an input image of the wrong kind
type TypeError struct {
	// Input names the offending argument, "mask" or "image"
	Input  string
	Reason string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("declump: %s: %s", e.Input, e.Reason)
}

// Stage names a step of a cutting pass
type Stage string

const (
	StageClassify    Stage = "classify"
	StageFilter      Stage = "filter"
	StagePerimeter   Stage = "perimeter"
	StageSeparate    Stage = "separate"
	StageCombine     Stage = "combine"
	StageDiagnostics Stage = "diagnostics"
)

// RunError wraps a failure inside a pass. Pass is 1-based; it is 0 for
// failures after the last pass (combination and diagnostics).
type RunError struct {
	Pass  int
	Stage Stage
	Err   error
}

func (e *RunError) Error() string {
	if e.Pass == 0 {
		return fmt.Sprintf("declump: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("declump: pass %d: %s: %v", e.Pass, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
