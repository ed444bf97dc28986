package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-iq/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

var _ Store = (*SQLStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLStore) ListTests(ctx context.Context) ([]TestSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.description, t.duration_min, t.created_at,
		       (SELECT COUNT(*) FROM questions q WHERE q.test_id = t.id)
		FROM tests t
		ORDER BY t.title, t.id`)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	defer rows.Close()

	out := []TestSummary{}
	for rows.Next() {
		var t TestSummary
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.DurationMin, &t.CreatedAt, &t.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	var t Test
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, duration_min, created_at FROM tests WHERE id=$1`, id).
		Scan(&t.ID, &t.Title, &t.Description, &t.DurationMin, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, fmt.Errorf("test %q: %w", id, ErrNotFound)
		}
		return Test{}, err
	}

	qrows, err := s.db.QueryContext(ctx, `
		SELECT id, position, body, image_key, qtype, category, difficulty, expected
		FROM questions WHERE test_id=$1
		ORDER BY position, id`, id)
	if err != nil {
		return Test{}, fmt.Errorf("load questions: %w", err)
	}
	defer qrows.Close()

	index := map[string]int{}
	t.Questions = []Question{}
	for qrows.Next() {
		q := Question{TestID: id, Answers: []Answer{}}
		if err := qrows.Scan(&q.ID, &q.Position, &q.Text, &q.ImageKey, &q.Type, &q.Category, &q.Difficulty, &q.Expected); err != nil {
			return Test{}, fmt.Errorf("scan question: %w", err)
		}
		index[q.ID] = len(t.Questions)
		t.Questions = append(t.Questions, q)
	}
	if err := qrows.Err(); err != nil {
		return Test{}, err
	}

	arows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.question_id, a.body, a.is_correct
		FROM answers a JOIN questions q ON q.id = a.question_id
		WHERE q.test_id=$1
		ORDER BY a.position, a.id`, id)
	if err != nil {
		return Test{}, fmt.Errorf("load answers: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var a Answer
		var correct int
		if err := arows.Scan(&a.ID, &a.QuestionID, &a.Text, &correct); err != nil {
			return Test{}, fmt.Errorf("scan answer: %w", err)
		}
		a.IsCorrect = correct != 0
		if i, ok := index[a.QuestionID]; ok {
			t.Questions[i].Answers = append(t.Questions[i].Answers, a)
		}
	}
	return t, arows.Err()
}

// PutTest replaces a test and its question bank. Replacing questions also drops
// stored answers that referenced them; attempt scores already persisted stay.
func (s *SQLStore) PutTest(ctx context.Context, t Test) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	created := t.CreatedAt
	if created == 0 {
		created = time.Now().Unix()
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO tests (id,title,description,duration_min,created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description, duration_min=EXCLUDED.duration_min`,
		t.ID, t.Title, t.Description, t.DurationMin, created); err != nil {
		return fmt.Errorf("upsert test: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM questions WHERE test_id=$1`, t.ID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for _, q := range t.Questions {
		if _, err = tx.ExecContext(ctx, `INSERT INTO questions
			(id,test_id,position,body,image_key,qtype,category,difficulty,expected)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			q.ID, t.ID, q.Position, q.Text, q.ImageKey, string(q.Type), string(q.Category), string(q.Difficulty), q.Expected); err != nil {
			return fmt.Errorf("insert question %d: %w", q.Position, err)
		}
		for i, a := range q.Answers {
			if _, err = tx.ExecContext(ctx, `INSERT INTO answers (id,question_id,position,body,is_correct)
				VALUES ($1,$2,$3,$4,$5)`,
				a.ID, q.ID, i+1, a.Text, b2i(a.IsCorrect)); err != nil {
				return fmt.Errorf("insert answer: %w", err)
			}
		}
	}
	return nil
}

const attemptColumns = `a.id, a.test_id, t.title, a.user_id, a.started_at, a.ended_at, a.completed,
	a.next_ordinal, a.score, a.iq_score, a.correct_count, a.total_questions, a.categories_json`

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var ended sql.NullInt64
	var completed int
	var cats string
	if err := row.Scan(&a.ID, &a.TestID, &a.TestTitle, &a.UserID, &a.StartedAt, &ended, &completed,
		&a.NextOrdinal, &a.Score, &a.IQScore, &a.CorrectCount, &a.TotalQuestions, &cats); err != nil {
		return Attempt{}, err
	}
	a.EndedAt = ended.Int64
	a.Completed = completed != 0
	if cats != "" {
		if err := json.Unmarshal([]byte(cats), &a.Categories); err != nil {
			a.Categories = []grading.CategoryResult{}
		}
	}
	return a, nil
}

func (s *SQLStore) openAttempt(ctx context.Context, userID, testID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+`
		FROM attempts a JOIN tests t ON t.id = a.test_id
		WHERE a.user_id=$1 AND a.test_id=$2 AND a.completed=0`, userID, testID)
	return scanAttempt(row)
}

func (s *SQLStore) OpenAttempt(ctx context.Context, userID, testID string, startedAt int64) (Attempt, error) {
	a, err := s.openAttempt(ctx, userID, testID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, err
	}

	// the partial unique index keeps one open attempt per (user, test); a racing
	// insert is ignored and the winner is read back
	if _, err := s.db.ExecContext(ctx, `INSERT INTO attempts (id,test_id,user_id,started_at,next_ordinal,categories_json)
		VALUES ($1,$2,$3,$4,1,'[]')
		ON CONFLICT DO NOTHING`,
		uuid.NewString(), testID, userID, startedAt); err != nil {
		return Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	a, err = s.openAttempt(ctx, userID, testID)
	if err != nil {
		return Attempt{}, fmt.Errorf("read attempt: %w", err)
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+`
		FROM attempts a JOIN tests t ON t.id = a.test_id
		WHERE a.id=$1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, fmt.Errorf("attempt %q: %w", id, ErrNotFound)
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) SaveAnswer(ctx context.Context, ua UserAnswer, nextOrdinal int) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var completed int
	if err = tx.QueryRowContext(ctx, `SELECT completed FROM attempts WHERE id=$1`, ua.AttemptID).Scan(&completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("attempt %q: %w", ua.AttemptID, ErrNotFound)
		}
		return err
	}
	if completed != 0 {
		return ErrAttemptClosed
	}

	answerID := sql.NullString{String: ua.AnswerID, Valid: ua.AnswerID != ""}
	if _, err = tx.ExecContext(ctx, `INSERT INTO user_answers (attempt_id,question_id,answer_id,text_input,is_correct,needs_review,answered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (attempt_id, question_id) DO UPDATE SET
		  answer_id=EXCLUDED.answer_id, text_input=EXCLUDED.text_input,
		  is_correct=EXCLUDED.is_correct, needs_review=EXCLUDED.needs_review,
		  answered_at=EXCLUDED.answered_at`,
		ua.AttemptID, ua.QuestionID, answerID, ua.Text, b2i(ua.IsCorrect), b2i(ua.NeedsReview), ua.AnsweredAt); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE attempts SET next_ordinal=$1 WHERE id=$2 AND next_ordinal < $1`,
		nextOrdinal, ua.AttemptID); err != nil {
		return fmt.Errorf("advance attempt: %w", err)
	}
	return nil
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID string) ([]UserAnswer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT attempt_id, question_id, answer_id, text_input, is_correct, needs_review, answered_at
		FROM user_answers WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	out := []UserAnswer{}
	for rows.Next() {
		var ua UserAnswer
		var answerID sql.NullString
		var correct, review int
		if err := rows.Scan(&ua.AttemptID, &ua.QuestionID, &answerID, &ua.Text, &correct, &review, &ua.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		ua.AnswerID = answerID.String
		ua.IsCorrect = correct != 0
		ua.NeedsReview = review != 0
		out = append(out, ua)
	}
	return out, rows.Err()
}

func (s *SQLStore) CompleteAttempt(ctx context.Context, attemptID string, c Completion) (Attempt, bool, error) {
	cats := c.Summary.Categories
	if cats == nil {
		cats = []grading.CategoryResult{}
	}
	buf, err := json.Marshal(cats)
	if err != nil {
		return Attempt{}, false, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE attempts SET
		  completed=1, ended_at=$1, score=$2, iq_score=$3,
		  correct_count=$4, total_questions=$5, categories_json=$6
		WHERE id=$7 AND completed=0`,
		c.EndedAt, c.Summary.ScorePercentage, c.Summary.IQ,
		c.Summary.Correct, c.Summary.Total, string(buf), attemptID)
	if err != nil {
		return Attempt{}, false, fmt.Errorf("complete attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Attempt{}, false, err
	}
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, false, err
	}
	return a, n > 0, nil
}

func (s *SQLStore) ListCompletedAttempts(ctx context.Context, userID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attemptColumns+`
		FROM attempts a JOIN tests t ON t.id = a.test_id
		WHERE a.user_id=$1 AND a.completed=1
		ORDER BY a.ended_at DESC, a.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
