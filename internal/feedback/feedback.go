package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-iq/internal/quiz"
)

// Placeholder is returned whenever commentary cannot be produced.
const Placeholder = "Personalised feedback is not available right now. Your score has been saved."

// Commentator writes a short narrative about a finished attempt.
type Commentator interface {
	Comment(ctx context.Context, res quiz.ScoreResult) (string, error)
}

// CommentError is returned when the model was unreachable or answered badly.
type CommentError struct {
	Reason  string
	Wrapped error
}

func (e *CommentError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("commentary failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("commentary failed: %s", e.Reason)
}

func (e *CommentError) Unwrap() error {
	return e.Wrapped
}

// LLMCommentator calls an OpenAI-compatible chat completions endpoint
// (Ollama, LM Studio, vLLM, ...).
type LLMCommentator struct {
	url    string
	model  string
	client *http.Client
}

var _ Commentator = (*LLMCommentator)(nil)

func NewLLMCommentator(url, model string, timeout time.Duration) *LLMCommentator {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &LLMCommentator{
		url:    strings.TrimRight(url, "/"),
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

type llmRequest struct {
	Model       string       `json:"model"`
	Messages    []llmMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
}

type llmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type llmResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *LLMCommentator) Comment(ctx context.Context, res quiz.ScoreResult) (string, error) {
	body, err := json.Marshal(llmRequest{
		Model:       c.model,
		Messages:    []llmMessage{{Role: "user", Content: buildPrompt(res)}},
		Temperature: 0.3,
	})
	if err != nil {
		return "", &CommentError{Reason: "encode request", Wrapped: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &CommentError{Reason: "build request", Wrapped: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &CommentError{Reason: "request", Wrapped: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &CommentError{Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	var out llmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &CommentError{Reason: "decode response", Wrapped: err}
	}
	if len(out.Choices) == 0 {
		return "", &CommentError{Reason: "no choices"}
	}
	text := strings.TrimSpace(stripThink(out.Choices[0].Message.Content))
	if text == "" {
		return "", &CommentError{Reason: "empty content"}
	}
	return text, nil
}

// stripThink drops a leading <think>...</think> block some local models emit.
func stripThink(s string) string {
	if i := strings.Index(s, "</think>"); i >= 0 && strings.HasPrefix(strings.TrimSpace(s), "<think>") {
		return s[i+len("</think>"):]
	}
	return s
}

func buildPrompt(res quiz.ScoreResult) string {
	var b strings.Builder
	for _, c := range res.Categories {
		fmt.Fprintf(&b, "- %s: %d/%d correct, category score %d\n", c.Category, c.Correct, c.Total, c.IQ)
	}
	cats := b.String()
	if cats == "" {
		cats = "- no categorised questions\n"
	}
	return fmt.Sprintf(`/no_think
You are writing encouraging, honest feedback for someone who just finished an online IQ-style practice test.
The score is a rough practice estimate, not a clinical measurement; say so briefly.

TEST: %s
CORRECT: %d of %d (%.1f%%)
ESTIMATED IQ: %d

CATEGORY BREAKDOWN:
%s
Write 3 to 5 sentences: one on overall performance, one on the strongest category,
one on the weakest category with a concrete practice tip. Plain text only, no markdown.`,
		res.TestTitle, res.CorrectCount, res.TotalQuestions, res.ScorePercentage, res.IQScore, cats)
}

// Safe wraps a Commentator so callers always get text back: failures are
// logged and replaced by Placeholder. A nil inner commentator always yields the
// placeholder.
type Safe struct {
	inner   Commentator
	log     *slog.Logger
	timeout time.Duration
}

func NewSafe(inner Commentator, log *slog.Logger, timeout time.Duration) *Safe {
	if log == nil {
		log = slog.Default()
	}
	return &Safe{inner: inner, log: log, timeout: timeout}
}

func (s *Safe) Comment(ctx context.Context, res quiz.ScoreResult) string {
	if s == nil || s.inner == nil {
		return Placeholder
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	text, err := s.inner.Comment(ctx, res)
	if err != nil {
		s.log.Warn("commentary unavailable", "attempt_id", res.AttemptID, "error", err)
		return Placeholder
	}
	return text
}
