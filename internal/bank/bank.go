// Package bank loads question banks written in YAML into the quiz store.
package bank

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-iq/internal/quiz"
	"github.com/mind-engage/mindengage-iq/internal/storage"
)

type File struct {
	Tests []TestDoc `yaml:"tests"`
}

type TestDoc struct {
	ID          string        `yaml:"id"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Duration    int           `yaml:"duration"` // minutes
	Questions   []QuestionDoc `yaml:"questions"`
}

type QuestionDoc struct {
	Text       string      `yaml:"text"`
	Type       string      `yaml:"type"` // MC, VI or LG; MC when empty
	Category   string      `yaml:"category"`
	Difficulty string      `yaml:"difficulty"`
	Image      string      `yaml:"image"`
	Expected   string      `yaml:"expected"`
	Answers    []AnswerDoc `yaml:"answers"`
}

type AnswerDoc struct {
	Text    string `yaml:"text"`
	Correct bool   `yaml:"correct"`
}

// Importer is satisfied by *quiz.Service.
type Importer interface {
	ImportTest(ctx context.Context, t quiz.Test) (quiz.Test, error)
}

type Loader struct {
	imp    Importer
	blobs  storage.BlobStore
	assets fs.FS
}

// NewLoader wires an importer with an optional blob store; image paths in the
// bank are resolved against assets.
func NewLoader(imp Importer, blobs storage.BlobStore, assets fs.FS) *Loader {
	return &Loader{imp: imp, blobs: blobs, assets: assets}
}

func Parse(r io.Reader) (File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode bank: %w", err)
	}
	return f, nil
}

// Load parses the bank and imports every test in it. Nothing from a test is
// persisted unless all of its questions validate.
func (l *Loader) Load(ctx context.Context, r io.Reader) ([]quiz.Test, error) {
	f, err := Parse(r)
	if err != nil {
		return nil, err
	}
	out := make([]quiz.Test, 0, len(f.Tests))
	for i, td := range f.Tests {
		t, err := l.build(td)
		if err != nil {
			return out, fmt.Errorf("test %d (%s): %w", i+1, td.Title, err)
		}
		// images are copied only for a test that will be accepted
		if err := t.Validate(); err != nil {
			return out, fmt.Errorf("test %d (%s): %w", i+1, td.Title, err)
		}
		if err := l.copyImages(td, &t); err != nil {
			return out, fmt.Errorf("test %d (%s): %w", i+1, td.Title, err)
		}
		saved, err := l.imp.ImportTest(ctx, t)
		if err != nil {
			return out, fmt.Errorf("test %d (%s): %w", i+1, td.Title, err)
		}
		out = append(out, saved)
	}
	return out, nil
}

func (l *Loader) build(td TestDoc) (quiz.Test, error) {
	id := strings.TrimSpace(td.ID)
	if id == "" {
		id = uuid.NewString()
	}
	t := quiz.Test{
		ID:          id,
		Title:       td.Title,
		Description: td.Description,
		DurationMin: td.Duration,
	}
	for i, qd := range td.Questions {
		body, err := bodyOf(qd)
		if err != nil {
			return quiz.Test{}, fmt.Errorf("question %d: %w", i+1, err)
		}
		q, err := quiz.NewQuestion(qd.Text, quiz.Category(qd.Category), quiz.Difficulty(qd.Difficulty), body)
		if err != nil {
			return quiz.Test{}, fmt.Errorf("question %d: %w", i+1, err)
		}
		q.Position = i + 1
		t.Questions = append(t.Questions, q)
	}
	return t, nil
}

func bodyOf(qd QuestionDoc) (quiz.Body, error) {
	switch quiz.QuestionType(strings.ToUpper(strings.TrimSpace(qd.Type))) {
	case "", quiz.TypeMultipleChoice:
		mc := quiz.MultipleChoice{Correct: -1}
		for i, a := range qd.Answers {
			mc.Options = append(mc.Options, a.Text)
			if a.Correct {
				if mc.Correct >= 0 {
					return nil, fmt.Errorf("%w: more than one correct option", quiz.ErrInvalidQuestion)
				}
				mc.Correct = i
			}
		}
		return mc, nil
	case quiz.TypeVisual:
		return freeText(quiz.TypeVisual, qd)
	case quiz.TypeLogic:
		return freeText(quiz.TypeLogic, qd)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", quiz.ErrInvalidQuestion, qd.Type)
	}
}

func freeText(kind quiz.QuestionType, qd QuestionDoc) (quiz.Body, error) {
	for _, a := range qd.Answers {
		if a.Correct {
			return nil, fmt.Errorf("%w: free text question cannot mark options correct", quiz.ErrInvalidQuestion)
		}
	}
	return quiz.FreeText{Kind: kind, Expected: qd.Expected}, nil
}

// copyImages stores each referenced image under questions/<test id>/<position><ext>.
func (l *Loader) copyImages(td TestDoc, t *quiz.Test) error {
	for i, qd := range td.Questions {
		src := strings.TrimSpace(qd.Image)
		if src == "" {
			continue
		}
		if l.blobs == nil || l.assets == nil {
			return fmt.Errorf("question %d: image %q but no asset store configured", i+1, src)
		}
		f, err := l.assets.Open(src)
		if err != nil {
			return fmt.Errorf("question %d: open image: %w", i+1, err)
		}
		key := fmt.Sprintf("questions/%s/%d%s", t.ID, t.Questions[i].Position, path.Ext(src))
		stored, err := l.blobs.Put(key, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("question %d: store image: %w", i+1, err)
		}
		t.Questions[i].ImageKey = stored
	}
	return nil
}
