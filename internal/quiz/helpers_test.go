package quiz

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-iq/internal/db"
	syncx "github.com/mind-engage/mindengage-iq/internal/sync"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordedEvents struct {
	mu     sync.Mutex
	events []syncx.Event
}

func (r *recordedEvents) Append(_ context.Context, e syncx.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "t.db") + "?_pragma=foreign_keys(1)"
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return NewSQLStore(dbh, "sqlite")
}

type env struct {
	svc    *Service
	store  *SQLStore
	clock  *fakeClock
	events *recordedEvents
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:  newTestStore(t),
		clock:  &fakeClock{now: time.Unix(1_700_000_000, 0)},
		events: &recordedEvents{},
	}
	e.svc = NewService(e.store,
		WithClock(e.clock.Now),
		WithEvents(e.events, "test-site"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return e
}

func mustMC(t *testing.T, text string, cat Category, diff Difficulty, correct int) Question {
	t.Helper()
	q, err := NewQuestion(text, cat, diff, MultipleChoice{Options: []string{"a", "b", "c"}, Correct: correct})
	if err != nil {
		t.Fatalf("new question: %v", err)
	}
	return q
}

// scenarioTest has weights 1,2,2,3 so the max weight is 8.
func (e *env) scenarioTest(t *testing.T) Test {
	t.Helper()
	tt, err := e.svc.ImportTest(context.Background(), Test{
		Title:       "Scenario",
		DurationMin: 10,
		Questions: []Question{
			mustMC(t, "q1", CategoryVerbal, DifficultyEasy, 0),
			mustMC(t, "q2", CategoryNumerical, DifficultyMedium, 1),
			mustMC(t, "q3", CategoryNumerical, DifficultyMedium, 2),
			mustMC(t, "q4", CategoryLogical, DifficultyHard, 0),
		},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	return tt
}

func answerID(q Question, correct bool) string {
	for _, a := range q.Answers {
		if a.IsCorrect == correct {
			return a.ID
		}
	}
	return ""
}
