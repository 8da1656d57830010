package types

import "fmt"

// Confidence levels allowed by the final-answer schema.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// FinalAnswer is the fixed output schema for every query. A candidate answer
// from the model must pass Validate before it is returned to the caller.
type FinalAnswer struct {
	Answer     string   `json:"answer"`
	Confidence string   `json:"confidence"`
	Sources    []string `json:"sources"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// Validate enforces the final-answer schema: a non-empty answer and one of
// the three known confidence levels. Sources may be empty but never nil in a
// validated answer.
func (fa *FinalAnswer) Validate() error {
	if fa.Answer == "" {
		return fmt.Errorf("%w: answer cannot be empty", ErrSchemaViolation)
	}
	switch fa.Confidence {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
	default:
		return fmt.Errorf("%w: confidence must be low, medium, or high, got %q",
			ErrSchemaViolation, fa.Confidence)
	}
	if fa.Sources == nil {
		fa.Sources = []string{}
	}
	return nil
}
