package ingest

import (
	"errors"
	"fmt"
)

// Stage identifies where in the pipeline a run failed.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageAcquire Stage = "acquire"
	StageExtract Stage = "extract"
	StageCatalog Stage = "catalog"
	StageRank    Stage = "rank"
)

// Failure kinds, matchable with errors.Is through a StageError.
var (
	ErrNotFound          = errors.New("song not found")
	ErrAcquisitionFailed = errors.New("audio acquisition failed")
	ErrExtractionFailed  = errors.New("feature extraction failed")
	ErrStoreUnavailable  = errors.New("catalog store unavailable")
)

// StageError tags a pipeline failure with the stage that produced it.
// A failed stage terminates the run; no later stage executes.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, kind, cause error) error {
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %w", kind, cause)}
}
