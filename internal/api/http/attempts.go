package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-iq/internal/auth/middleware"
	"github.com/mind-engage/mindengage-iq/internal/quiz"
)

// QuizService is the part of *quiz.Service the handlers use.
type QuizService interface {
	ListTests(ctx context.Context) ([]quiz.TestSummary, error)
	GetTest(ctx context.Context, id string) (quiz.PublicTest, error)
	StartAttempt(ctx context.Context, userID, testID string) (quiz.Attempt, error)
	Question(ctx context.Context, userID, attemptID string, ordinal int) (quiz.Step, error)
	Submit(ctx context.Context, userID, attemptID string, ordinal int, sel quiz.Selection) (quiz.Step, error)
	Finalize(ctx context.Context, userID, attemptID string) (quiz.ScoreResult, error)
	Result(ctx context.Context, userID, attemptID string) (quiz.ScoreResult, error)
	Dashboard(ctx context.Context, userID string) (quiz.Dashboard, error)
}

// Commentator never fails; *feedback.Safe satisfies it.
type Commentator interface {
	Comment(ctx context.Context, res quiz.ScoreResult) string
}

// POST /tests/{testID}/attempts
func StartAttemptHandler(svc QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.StartAttempt(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "testID"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func ordinalParam(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	return n, err == nil
}

// GET /attempts/{attemptID}/questions/{n}
func QuestionHandler(svc QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, ok := ordinalParam(r)
		if !ok {
			http.Error(w, "bad question number", http.StatusBadRequest)
			return
		}
		step, err := svc.Question(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "attemptID"), n)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, step)
	}
}

// POST /attempts/{attemptID}/questions/{n}  { "answer_id": "..." } or { "text": "..." }
func AnswerHandler(svc QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, ok := ordinalParam(r)
		if !ok {
			http.Error(w, "bad question number", http.StatusBadRequest)
			return
		}
		var sel quiz.Selection
		if err := json.NewDecoder(r.Body).Decode(&sel); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		step, err := svc.Submit(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "attemptID"), n, sel)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, step)
	}
}

// POST /attempts/{attemptID}/submit
func SubmitAttemptHandler(svc QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Finalize(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "attemptID"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type resultResponse struct {
	quiz.ScoreResult
	Commentary string `json:"commentary"`
}

// GET /attempts/{attemptID}/result
func ResultHandler(svc QuizService, c Commentator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Result(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "attemptID"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		out := resultResponse{ScoreResult: res}
		if c != nil {
			out.Commentary = c.Comment(r.Context(), res)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /me/dashboard
func DashboardHandler(svc QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.Dashboard(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
