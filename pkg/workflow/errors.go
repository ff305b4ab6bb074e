package workflow

import (
	"errors"
	"fmt"
)

// ErrAllSourcesFailed is returned by a Retriever when every source failed
// for every sub-query of a round.
var ErrAllSourcesFailed = errors.New("all retrieval sources failed")

// ErrEmptyQuery rejects requests with no query text before any stage runs.
var ErrEmptyQuery = errors.New("query text is empty")

// StageError tags a workflow failure with the stage that produced it so the
// API layer can map it to a status code.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("workflow stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
