package quiz

import (
	"fmt"
	"strings"
)

// Body is the type-specific part of a question. It is a closed set:
// MultipleChoice or FreeText.
type Body interface {
	questionType() QuestionType
	build(q *Question) error
}

// MultipleChoice has exactly one correct option, addressed by index.
type MultipleChoice struct {
	Options []string
	Correct int
}

func (MultipleChoice) questionType() QuestionType { return TypeMultipleChoice }

func (b MultipleChoice) build(q *Question) error {
	if len(b.Options) < 2 {
		return fmt.Errorf("%w: multiple choice needs at least two options", ErrInvalidQuestion)
	}
	if b.Correct < 0 || b.Correct >= len(b.Options) {
		return fmt.Errorf("%w: correct index %d out of range", ErrInvalidQuestion, b.Correct)
	}
	q.Type = TypeMultipleChoice
	q.Expected = ""
	q.Answers = make([]Answer, 0, len(b.Options))
	for i, opt := range b.Options {
		q.Answers = append(q.Answers, Answer{Text: opt, IsCorrect: i == b.Correct})
	}
	return nil
}

// FreeText covers visual and logic questions. Input is stored, never auto-scored.
type FreeText struct {
	Kind     QuestionType // TypeVisual or TypeLogic
	Expected string
}

func (b FreeText) questionType() QuestionType { return b.Kind }

func (b FreeText) build(q *Question) error {
	if b.Kind != TypeVisual && b.Kind != TypeLogic {
		return fmt.Errorf("%w: free text kind %q", ErrInvalidQuestion, b.Kind)
	}
	q.Type = b.Kind
	q.Expected = b.Expected
	q.Answers = nil
	return nil
}

// NewQuestion builds a validated question from its type-specific body.
func NewQuestion(text string, cat Category, diff Difficulty, body Body) (Question, error) {
	q := Question{Text: strings.TrimSpace(text), Category: cat, Difficulty: diff}
	if body == nil {
		return Question{}, fmt.Errorf("%w: missing body", ErrInvalidQuestion)
	}
	if err := body.build(&q); err != nil {
		return Question{}, err
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate enforces the per-type invariants on a flat Question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidQuestion)
	}
	if !validCategory(q.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidQuestion, q.Category)
	}
	if !validDifficulty(q.Difficulty) {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidQuestion, q.Difficulty)
	}
	correct := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	switch q.Type {
	case TypeMultipleChoice:
		if len(q.Answers) < 2 {
			return fmt.Errorf("%w: multiple choice needs at least two options", ErrInvalidQuestion)
		}
		if correct != 1 {
			return fmt.Errorf("%w: multiple choice needs exactly one correct option, has %d", ErrInvalidQuestion, correct)
		}
	case TypeVisual, TypeLogic:
		if correct != 0 {
			return fmt.Errorf("%w: free text question cannot mark options correct", ErrInvalidQuestion)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidQuestion, q.Type)
	}
	return nil
}

// Validate checks a whole test before anything of it is stored. A zero
// Position stands for the question's 1-based index.
func (t Test) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: test title required", ErrInvalidQuestion)
	}
	seen := make(map[int]bool, len(t.Questions))
	for i, q := range t.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
		pos := q.Position
		if pos == 0 {
			pos = i + 1
		}
		if seen[pos] {
			return fmt.Errorf("%w: duplicate position %d", ErrInvalidQuestion, pos)
		}
		seen[pos] = true
	}
	return nil
}

func validCategory(c Category) bool {
	switch c {
	case CategoryVerbal, CategoryNumerical, CategoryLogical, CategorySpatial, CategoryMemory:
		return true
	}
	return false
}

func validDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}
