// pkg/pipeline/error.go
package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumns is returned when the dataset lacks a column the cleaning plan needs
var ErrMissingColumns = errors.New("required columns missing")

// Stage names a phase of a run
type Stage string

const (
	StageLoad     Stage = "load"
	StageValidate Stage = "validate"
	StageClean    Stage = "clean"
	StageSink     Stage = "sink"
)

// StageError is a fatal error tagged with the phase that produced it
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// wrapStage tags err with stage; nil stays nil
func wrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage a run error came from, "" when it is not a StageError
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

func missingColumnsError(columns []string) error {
	return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(columns, ", "))
}
