package quiz

import (
	"context"
	"errors"

	"github.com/mind-engage/mindengage-iq/internal/grading"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidQuestion = errors.New("invalid question")
	ErrInProgress      = errors.New("attempt still in progress")
	ErrAttemptClosed   = errors.New("attempt already completed")
)

// Completion carries the computed score persisted when an attempt closes.
type Completion struct {
	EndedAt int64
	Summary grading.Summary
}

type Store interface {
	ListTests(ctx context.Context) ([]TestSummary, error)
	GetTest(ctx context.Context, id string) (Test, error) // questions in position order, with keys
	PutTest(ctx context.Context, t Test) error

	// OpenAttempt returns the user's incomplete attempt for the test or creates one.
	OpenAttempt(ctx context.Context, userID, testID string, startedAt int64) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// SaveAnswer replaces any earlier answer for the same question and moves the
	// attempt's next ordinal forward (never backward).
	SaveAnswer(ctx context.Context, ua UserAnswer, nextOrdinal int) error
	ListAnswers(ctx context.Context, attemptID string) ([]UserAnswer, error)
	// CompleteAttempt closes an incomplete attempt. changed is false when it was
	// already closed; the stored attempt is returned either way.
	CompleteAttempt(ctx context.Context, attemptID string, c Completion) (a Attempt, changed bool, err error)
	ListCompletedAttempts(ctx context.Context, userID string) ([]Attempt, error)
}
