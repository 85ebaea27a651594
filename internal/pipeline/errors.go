package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoJSONObject means the raw text held no parseable object.
	ErrNoJSONObject = errors.New("no JSON object found")

	// ErrRetryBudgetExhausted is matched by every *ExhaustedError.
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

	// ErrGeneration wraps failures of the generation backend itself. These
	// end the run without further attempts.
	ErrGeneration = errors.New("generation failed")
)

// SchemaValidationError is a candidate rejected by the output schema.
type SchemaValidationError struct {
	Err error
}

func (e *SchemaValidationError) Error() string {
	return "Schema validation error: " + e.Err.Error()
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

// ExhaustedError ends a run in which no attempt produced a valid record.
// The last raw text is saved at ArtifactPath unless ArtifactErr is set.
type ExhaustedError struct {
	Attempts     int
	Last         error
	ArtifactPath string
	ArtifactErr  error
}

func (e *ExhaustedError) Error() string {
	if e.ArtifactErr != nil {
		return fmt.Sprintf("could not produce a valid structured note after %d attempts; saving raw text to %s failed: %v; last error: %v",
			e.Attempts, e.ArtifactPath, e.ArtifactErr, e.Last)
	}
	return fmt.Sprintf("could not produce a valid structured note after %d attempts; raw text saved for review at %s; last error: %v",
		e.Attempts, e.ArtifactPath, e.Last)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetryBudgetExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
