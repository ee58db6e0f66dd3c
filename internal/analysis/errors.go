package analysis

import (
	"errors"
	"fmt"

	"github.com/tweetbinder/report-analyzer/internal/budget"
	"github.com/tweetbinder/report-analyzer/internal/report"
	"github.com/tweetbinder/report-analyzer/internal/storage"
)

// SuccessStatus is shown once an analysis has been produced.
const SuccessStatus = "Tweet Binder AI has successfully analyzed the report"

// ModelError is returned when the analysis model call fails or yields no content.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("analysis model %s failed: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// Kind classifies a pipeline failure.
type Kind string

const (
	KindNone       Kind = ""
	KindInput      Kind = "input"
	KindNetwork    Kind = "network"
	KindSchema     Kind = "schema"
	KindTokenLimit Kind = "token_limit"
	KindModel      Kind = "model"
	KindUnknown    Kind = "unknown"
)

// Classify reports which pipeline stage produced err.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		netErr    *storage.NetworkError
		schemaErr *report.SchemaError
		limitErr  *budget.TokenLimitError
		modelErr  *ModelError
	)
	switch {
	case errors.Is(err, report.ErrEmptyReference):
		return KindInput
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &schemaErr):
		return KindSchema
	case errors.As(err, &limitErr):
		return KindTokenLimit
	case errors.As(err, &modelErr):
		return KindModel
	default:
		return KindUnknown
	}
}

// StatusMessage renders the single user-facing status line for a submission.
// Every failure kind is shown the same way: "Error: " followed by its message.
func StatusMessage(err error) string {
	if err == nil {
		return SuccessStatus
	}
	return "Error: " + err.Error()
}
