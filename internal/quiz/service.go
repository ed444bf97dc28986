package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-iq/internal/grading"
	syncx "github.com/mind-engage/mindengage-iq/internal/sync"
)

// EventAppender records domain events; *syncx.EventRepo satisfies it.
type EventAppender interface {
	Append(ctx context.Context, e syncx.Event) error
}

// Service tracks attempts, sequences questions under the time budget and scores
// finished attempts.
type Service struct {
	store  Store
	grader grading.Grader
	scale  grading.IQScale
	events EventAppender
	siteID string
	log    *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithGrader(g grading.Grader) Option    { return func(s *Service) { s.grader = g } }
func WithScale(sc grading.IQScale) Option   { return func(s *Service) { s.scale = sc } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l *slog.Logger) Option      { return func(s *Service) { s.log = l } }

func WithEvents(e EventAppender, site string) Option {
	return func(s *Service) { s.events, s.siteID = e, site }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		grader: grading.NewDefaultGrader(),
		scale:  grading.DefaultIQScale,
		siteID: "local",
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ---- question bank ----

func (s *Service) ListTests(ctx context.Context) ([]TestSummary, error) {
	return s.store.ListTests(ctx)
}

func (s *Service) GetTest(ctx context.Context, id string) (PublicTest, error) {
	t, err := s.store.GetTest(ctx, id)
	if err != nil {
		return PublicTest{}, err
	}
	return t.Public(), nil
}

// ImportTest validates a test and persists it, assigning ids and positions
// where they are missing.
func (s *Service) ImportTest(ctx context.Context, t Test) (Test, error) {
	t.Title = strings.TrimSpace(t.Title)
	if err := t.Validate(); err != nil {
		return Test{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.DurationMin <= 0 {
		t.DurationMin = 30
	}
	for i := range t.Questions {
		q := &t.Questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.Position == 0 {
			q.Position = i + 1
		}
		q.TestID = t.ID
		for j := range q.Answers {
			if q.Answers[j].ID == "" {
				q.Answers[j].ID = uuid.NewString()
			}
			q.Answers[j].QuestionID = q.ID
		}
	}
	if err := s.store.PutTest(ctx, t); err != nil {
		return Test{}, err
	}
	return s.store.GetTest(ctx, t.ID)
}

// ---- attempt tracker ----

// StartAttempt resumes the user's open attempt for the test or starts a new one.
func (s *Service) StartAttempt(ctx context.Context, userID, testID string) (Attempt, error) {
	if userID == "" {
		return Attempt{}, ErrForbidden
	}
	if _, err := s.store.GetTest(ctx, testID); err != nil {
		return Attempt{}, err
	}
	a, err := s.store.OpenAttempt(ctx, userID, testID, s.now().Unix())
	if err != nil {
		return Attempt{}, err
	}
	s.log.Debug("attempt opened", "attempt_id", a.ID, "test_id", testID, "user_id", userID)
	return a, nil
}

func (s *Service) loadOwned(ctx context.Context, userID, attemptID string) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if userID == "" || a.UserID != userID {
		return Attempt{}, fmt.Errorf("attempt %q: %w", attemptID, ErrForbidden)
	}
	return a, nil
}

// ---- sequencer ----

func budget(t Test) time.Duration {
	return time.Duration(t.DurationMin) * time.Minute
}

// elapsed is measured in whole seconds on both ends; StartedAt is stored that way.
func (s *Service) elapsed(a Attempt) time.Duration {
	return time.Duration(s.now().Unix()-a.StartedAt) * time.Second
}

func (s *Service) expired(a Attempt, t Test) bool {
	return s.elapsed(a) > budget(t)
}

func progressPercent(ordinal, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(ordinal-1) / float64(total) * 100))
}

// Question serves the question at ordinal, or a completion signal when time is
// up, the ordinal is past the end, or the attempt is already closed. Ordinals
// below the attempt's next ordinal are served the next ordinal instead.
func (s *Service) Question(ctx context.Context, userID, attemptID string, ordinal int) (Step, error) {
	a, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return Step{}, err
	}
	t, err := s.store.GetTest(ctx, a.TestID)
	if err != nil {
		return Step{}, err
	}
	if a.Completed {
		return s.completedStep(a, t, ReasonAlreadyCompleted), nil
	}
	if s.expired(a, t) {
		return s.complete(ctx, a, t, ReasonTimeExpired)
	}

	if ordinal < a.NextOrdinal {
		ordinal = a.NextOrdinal
	}
	if ordinal < 1 {
		ordinal = 1
	}
	total := len(t.Questions)
	if ordinal > total {
		return s.complete(ctx, a, t, ReasonAllAnswered)
	}

	remaining := 0
	if total > 0 {
		remaining = int((budget(t) - s.elapsed(a)).Seconds())
	}
	return Step{Question: &QuestionView{
		AttemptID:        a.ID,
		Ordinal:          ordinal,
		Total:            total,
		RemainingSeconds: remaining,
		ProgressPercent:  progressPercent(ordinal, total),
		Question:         t.Questions[ordinal-1].Public(),
	}}, nil
}

// Submit records the answer for ordinal (last write wins) and advances.
func (s *Service) Submit(ctx context.Context, userID, attemptID string, ordinal int, sel Selection) (Step, error) {
	a, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return Step{}, err
	}
	t, err := s.store.GetTest(ctx, a.TestID)
	if err != nil {
		return Step{}, err
	}
	if a.Completed {
		return s.completedStep(a, t, ReasonAlreadyCompleted), nil
	}
	if s.expired(a, t) {
		return s.complete(ctx, a, t, ReasonTimeExpired)
	}

	total := len(t.Questions)
	if ordinal > total {
		return s.complete(ctx, a, t, ReasonAllAnswered)
	}
	if ordinal < 1 {
		return Step{}, fmt.Errorf("question %d: %w", ordinal, ErrNotFound)
	}
	q := t.Questions[ordinal-1]

	var chosen *Answer
	if id := strings.TrimSpace(sel.AnswerID); id != "" {
		for i := range q.Answers {
			if q.Answers[i].ID == id {
				chosen = &q.Answers[i]
				break
			}
		}
		if chosen == nil {
			return Step{}, fmt.Errorf("answer %q: %w", id, ErrNotFound)
		}
	}

	resp := grading.Response{Text: strings.TrimSpace(sel.Text)}
	if chosen != nil {
		resp.Selected = &grading.Choice{ID: chosen.ID, IsCorrect: chosen.IsCorrect}
	}
	res, err := s.grader.Grade(ctx, grading.Q{ID: q.ID, Type: string(q.Type)}, resp)
	if err != nil {
		return Step{}, fmt.Errorf("grade question %d: %w", ordinal, err)
	}

	ua := UserAnswer{
		AttemptID:   a.ID,
		QuestionID:  q.ID,
		Text:        resp.Text,
		IsCorrect:   res.Correct,
		NeedsReview: res.NeedsManual,
		AnsweredAt:  s.now().Unix(),
	}
	if chosen != nil {
		ua.AnswerID = chosen.ID
	}
	next := ordinal + 1
	if err := s.store.SaveAnswer(ctx, ua, next); err != nil {
		if errors.Is(err, ErrAttemptClosed) {
			return s.reload(ctx, a.ID, t)
		}
		return Step{}, err
	}

	if next > total {
		return s.complete(ctx, a, t, ReasonAllAnswered)
	}
	return Step{NextOrdinal: next}, nil
}

func (s *Service) reload(ctx context.Context, attemptID string, t Test) (Step, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Step{}, err
	}
	return s.completedStep(a, t, ReasonAlreadyCompleted), nil
}

func (s *Service) complete(ctx context.Context, a Attempt, t Test, reason CompletionReason) (Step, error) {
	res, err := s.finalize(ctx, a, t, reason)
	if err != nil {
		return Step{}, err
	}
	return Step{Completed: true, Reason: reason, Result: &res}, nil
}

func (s *Service) completedStep(a Attempt, t Test, reason CompletionReason) Step {
	res := resultOf(a, t)
	return Step{Completed: true, Reason: reason, Result: &res}
}

// ---- scorer ----

// Finalize scores and closes the attempt. On an already closed attempt it
// returns the stored result unchanged.
func (s *Service) Finalize(ctx context.Context, userID, attemptID string) (ScoreResult, error) {
	a, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return ScoreResult{}, err
	}
	t, err := s.store.GetTest(ctx, a.TestID)
	if err != nil {
		return ScoreResult{}, err
	}
	return s.finalize(ctx, a, t, ReasonSubmitted)
}

// Result returns the stored result of a completed attempt.
func (s *Service) Result(ctx context.Context, userID, attemptID string) (ScoreResult, error) {
	a, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return ScoreResult{}, err
	}
	if !a.Completed {
		return ScoreResult{}, ErrInProgress
	}
	t, err := s.store.GetTest(ctx, a.TestID)
	if err != nil {
		return ScoreResult{}, err
	}
	return resultOf(a, t), nil
}

func (s *Service) finalize(ctx context.Context, a Attempt, t Test, reason CompletionReason) (ScoreResult, error) {
	if a.Completed {
		return resultOf(a, t), nil
	}

	answers, err := s.store.ListAnswers(ctx, a.ID)
	if err != nil {
		return ScoreResult{}, err
	}
	correct := make(map[string]bool, len(answers))
	for _, ua := range answers {
		correct[ua.QuestionID] = ua.IsCorrect
	}
	items := make([]grading.Item, 0, len(t.Questions))
	for _, q := range t.Questions {
		items = append(items, grading.Item{
			Category:   string(q.Category),
			Difficulty: string(q.Difficulty),
			Correct:    correct[q.ID],
		})
	}
	sum := grading.Summarize(items, s.scale)

	stored, changed, err := s.store.CompleteAttempt(ctx, a.ID, Completion{EndedAt: s.now().Unix(), Summary: sum})
	if err != nil {
		return ScoreResult{}, err
	}
	res := resultOf(stored, t)
	if changed {
		s.log.Info("attempt completed",
			"attempt_id", a.ID, "test_id", t.ID, "reason", string(reason),
			"score", res.ScorePercentage, "iq", res.IQScore)
		s.recordCompletion(ctx, res)
	}
	return res, nil
}

func (s *Service) recordCompletion(ctx context.Context, res ScoreResult) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		s.log.Warn("encode completion event", "attempt_id", res.AttemptID, "error", err)
		return
	}
	if err := s.events.Append(ctx, syncx.Event{
		SiteID:   s.siteID,
		Type:     "AttemptCompleted",
		Key:      res.AttemptID,
		DataJSON: string(data),
	}); err != nil {
		s.log.Warn("append completion event", "attempt_id", res.AttemptID, "error", err)
	}
}

func resultOf(a Attempt, t Test) ScoreResult {
	cats := a.Categories
	if cats == nil {
		cats = []grading.CategoryResult{}
	}
	title := a.TestTitle
	if title == "" {
		title = t.Title
	}
	return ScoreResult{
		AttemptID:       a.ID,
		TestID:          a.TestID,
		TestTitle:       title,
		ScorePercentage: a.Score,
		IQScore:         a.IQScore,
		CorrectCount:    a.CorrectCount,
		TotalQuestions:  a.TotalQuestions,
		Categories:      cats,
		CompletedAt:     a.EndedAt,
	}
}

// ---- dashboard ----

func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	if userID == "" {
		return Dashboard{}, ErrForbidden
	}
	list, err := s.store.ListCompletedAttempts(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{Completed: list}
	if len(list) > 0 {
		total := 0.0
		for _, a := range list {
			total += a.Score
		}
		d.AverageScore = math.RoundToEven(total/float64(len(list))*10) / 10
	}
	return d, nil
}
