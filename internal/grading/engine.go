package grading

import (
	"context"
)

// Q is a minimal view of a question needed for grading.
type Q struct {
	ID   string
	Type string // MC, VI, LG
}

// Choice is the answer option a user picked, with its correctness flag.
type Choice struct {
	ID        string
	IsCorrect bool
}

// Response is a single submission for one question.
type Response struct {
	Selected *Choice // nil when no option was picked
	Text     string
}

// Result is the outcome of grading a single question response.
type Result struct {
	Correct     bool
	NeedsManual bool // stored for review, never auto-scored
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, resp Response) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, resp Response) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, resp Response) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{NeedsManual: true}, nil
	}
	return s.Grade(ctx, q, resp)
}

// Option customises the default grader.
type Option func(map[string]Strategy)

// WithStrategy installs or replaces the strategy for a question type.
func WithStrategy(questionType string, s Strategy) Option {
	return func(m map[string]Strategy) { m[questionType] = s }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	strategies := map[string]Strategy{
		"MC": mcqSingleStrategy{},
		"VI": freeTextStrategy{},
		"LG": freeTextStrategy{},
	}
	for _, o := range opts {
		o(strategies)
	}
	return &defaultGrader{strategies: strategies}
}

// --- Strategies ---

type mcqSingleStrategy struct{}

func (mcqSingleStrategy) Grade(_ context.Context, _ Q, resp Response) (Result, error) {
	if resp.Selected == nil {
		return Result{}, nil
	}
	return Result{Correct: resp.Selected.IsCorrect}, nil
}

// freeTextStrategy keeps visual and logic answers as input only.
type freeTextStrategy struct{}

func (freeTextStrategy) Grade(_ context.Context, _ Q, _ Response) (Result, error) {
	return Result{NeedsManual: true}, nil
}
