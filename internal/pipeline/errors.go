package pipeline

import (
	"fmt"
)

// Stage names the step of an assessment that failed
type Stage string

const (
	StageDocument   Stage = "document"
	StageLLM        Stage = "llm"
	StageBackground Stage = "background"
	StageExtraction Stage = "extraction"
	StageValidation Stage = "validation"
	StageStorage    Stage = "storage"
)

// StageError tags an error with the stage it came from. The underlying
// error stays reachable through errors.Is and errors.As.
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

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
