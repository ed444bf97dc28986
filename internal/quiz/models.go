package quiz

import "github.com/mind-engage/mindengage-iq/internal/grading"

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "MC"
	TypeVisual         QuestionType = "VI"
	TypeLogic          QuestionType = "LG"
)

type Category string

const (
	CategoryVerbal    Category = "Verbal"
	CategoryNumerical Category = "Numerical"
	CategoryLogical   Category = "Logical"
	CategorySpatial   Category = "Spatial"
	CategoryMemory    Category = "Memory"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

type Answer struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id,omitempty"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

type Question struct {
	ID         string       `json:"id"`
	TestID     string       `json:"test_id,omitempty"`
	Position   int          `json:"position"` // 1-based ordinal within the test
	Text       string       `json:"text"`
	ImageKey   string       `json:"image_key,omitempty"` // blob store key
	Type       QuestionType `json:"type"`
	Category   Category     `json:"category"`
	Difficulty Difficulty   `json:"difficulty"`
	Expected   string       `json:"expected,omitempty"` // free-text reference, never auto-scored
	Answers    []Answer     `json:"answers"`
}

type Test struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DurationMin int        `json:"duration_min"`
	CreatedAt   int64      `json:"created_at,omitempty"`
	Questions   []Question `json:"questions"`
}

type TestSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	DurationMin   int    `json:"duration_min"`
	QuestionCount int    `json:"question_count"`
	CreatedAt     int64  `json:"created_at"`
}

type Attempt struct {
	ID             string                   `json:"id"`
	TestID         string                   `json:"test_id"`
	TestTitle      string                   `json:"test_title,omitempty"`
	UserID         string                   `json:"user_id"`
	StartedAt      int64                    `json:"started_at"`
	EndedAt        int64                    `json:"ended_at,omitempty"`
	Completed      bool                     `json:"completed"`
	NextOrdinal    int                      `json:"next_ordinal"`
	Score          float64                  `json:"score"`
	IQScore        int                      `json:"iq_score"`
	CorrectCount   int                      `json:"correct_count"`
	TotalQuestions int                      `json:"total_questions"`
	Categories     []grading.CategoryResult `json:"category_results,omitempty"`
}

// UserAnswer is the single stored response for one (attempt, question).
type UserAnswer struct {
	AttemptID   string `json:"attempt_id"`
	QuestionID  string `json:"question_id"`
	AnswerID    string `json:"answer_id,omitempty"` // empty when nothing was selected
	Text        string `json:"text,omitempty"`
	IsCorrect   bool   `json:"is_correct"`
	NeedsReview bool   `json:"needs_review"` // free text waiting for a human
	AnsweredAt  int64  `json:"answered_at"`
}

// Selection is what a user submits for the current question.
type Selection struct {
	AnswerID string `json:"answer_id,omitempty"`
	Text     string `json:"text,omitempty"`
}

// ScoreResult is the finalized outcome handed to presentation.
type ScoreResult struct {
	AttemptID       string                   `json:"attempt_id"`
	TestID          string                   `json:"test_id"`
	TestTitle       string                   `json:"test_title,omitempty"`
	ScorePercentage float64                  `json:"score_percentage"`
	IQScore         int                      `json:"iq_score"`
	CorrectCount    int                      `json:"correct_count"`
	TotalQuestions  int                      `json:"total_questions"`
	Categories      []grading.CategoryResult `json:"category_results"`
	CompletedAt     int64                    `json:"completed_at"`
}

type CompletionReason string

const (
	ReasonTimeExpired      CompletionReason = "time_expired"
	ReasonAllAnswered      CompletionReason = "all_answered"
	ReasonAlreadyCompleted CompletionReason = "already_completed"
	ReasonSubmitted        CompletionReason = "submitted"
)

// PublicAnswer hides correctness from test takers.
type PublicAnswer struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type PublicQuestion struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	ImageKey   string         `json:"image_key,omitempty"`
	Type       QuestionType   `json:"type"`
	Category   Category       `json:"category"`
	Difficulty Difficulty     `json:"difficulty"`
	Answers    []PublicAnswer `json:"answers"`
}

// QuestionView is what the sequencer serves for one ordinal.
type QuestionView struct {
	AttemptID        string         `json:"attempt_id"`
	Ordinal          int            `json:"ordinal"`
	Total            int            `json:"total_questions"`
	RemainingSeconds int            `json:"remaining_seconds"`
	ProgressPercent  int            `json:"progress_percent"`
	Question         PublicQuestion `json:"question"`
}

// Step is either the next thing to show or a completion signal.
type Step struct {
	Completed   bool             `json:"completed"`
	Reason      CompletionReason `json:"reason,omitempty"`
	Result      *ScoreResult     `json:"result,omitempty"`
	Question    *QuestionView    `json:"question,omitempty"`
	NextOrdinal int              `json:"next_ordinal,omitempty"`
}

type Dashboard struct {
	Completed    []Attempt `json:"completed_attempts"`
	AverageScore float64   `json:"average_score"`
}

func (q Question) Public() PublicQuestion {
	out := PublicQuestion{
		ID:         q.ID,
		Text:       q.Text,
		ImageKey:   q.ImageKey,
		Type:       q.Type,
		Category:   q.Category,
		Difficulty: q.Difficulty,
		Answers:    make([]PublicAnswer, 0, len(q.Answers)),
	}
	for _, a := range q.Answers {
		out.Answers = append(out.Answers, PublicAnswer{ID: a.ID, Text: a.Text})
	}
	return out
}

// PublicTest is a test stripped of answer keys.
type PublicTest struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	DurationMin int              `json:"duration_min"`
	Questions   []PublicQuestion `json:"questions"`
}

func (t Test) Public() PublicTest {
	out := PublicTest{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DurationMin: t.DurationMin,
		Questions:   make([]PublicQuestion, 0, len(t.Questions)),
	}
	for _, q := range t.Questions {
		out.Questions = append(out.Questions, q.Public())
	}
	return out
}
