package advisor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

var (
	ErrAnalysis          = errors.New("analysis failed")
	ErrNotFound          = errors.New("recommendation not found")
	ErrInvalidTransition = errors.New("invalid recommendation transition")
)

// ZoneFailure is the error of one zone's analysis call.
type ZoneFailure struct {
	ZoneID string `json:"zone_id"`
	Err    error  `json:"-"`
}

func (f ZoneFailure) Error() string { return fmt.Sprintf("zone %s: %v", f.ZoneID, f.Err) }

func (f ZoneFailure) Unwrap() error { return f.Err }

// AnalysisError is returned by Refresh when no zone could be analysed.
type AnalysisError struct {
	RunID    string
	Failures []ZoneFailure
}

func (e *AnalysisError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("analysis failed for every zone: %s", strings.Join(parts, "; "))
}

// Unwrap exposes each zone's cause to errors.Is / errors.As.
func (e *AnalysisError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return []error{ErrAnalysis, errors.Join(errs...)}
}

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("recommendation %q not found", e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type InvalidTransitionError struct {
	ID   string
	From entities.RecommendationStatus
	To   entities.RecommendationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("recommendation %q: cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
