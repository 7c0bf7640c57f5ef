package locator

import (
	"errors"
	"fmt"
)

// Failure kinds. Callers treat all of them as "data currently unavailable";
// they exist for logging and diagnostics.
var (
	ErrAnchorNotFound         = errors.New("main window not found")
	ErrAmbiguousAnchor        = errors.New("main window is ambiguous")
	ErrLandmarkNotFound       = errors.New("landmark not found")
	ErrContainerShapeMismatch = errors.New("container shape mismatch")
	ErrHandleInvalidated      = errors.New("handle invalidated")
)

// Stage names the narrowing step at which a locate broke down.
type Stage string

const (
	StageAnchor          Stage = "anchor"
	StageLandmark        Stage = "landmark"
	StageControlPanel    Stage = "control_panel"
	StageTemperatures    Stage = "temperature_panels"
	StageBottomContainer Stage = "bottom_container"
	StageTaskRow         Stage = "task_row"
	StageProgressRow     Stage = "progress_row"
	StageProgressTriple  Stage = "progress_triple"
	StageVerify          Stage = "verify"
	StageCache           Stage = "cache"
)

// LocateError reports which stage failed and why.
type LocateError struct {
	Kind   error
	Stage  Stage
	Detail string
}

func (e *LocateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Stage, e.Kind, e.Detail)
}

func (e *LocateError) Unwrap() error {
	return e.Kind
}

func fail(kind error, stage Stage, format string, args ...any) *LocateError {
	return &LocateError{Kind: kind, Stage: stage, Detail: fmt.Sprintf(format, args...)}
}

// StageOf extracts the failing stage from err, or "" if err is not a
// LocateError.
func StageOf(err error) Stage {
	var le *LocateError
	if errors.As(err, &le) {
		return le.Stage
	}
	return ""
}
