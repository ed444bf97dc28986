package bank

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/mind-engage/mindengage-iq/internal/quiz"
)

type fakeImporter struct {
	got []quiz.Test
}

func (f *fakeImporter) ImportTest(_ context.Context, t quiz.Test) (quiz.Test, error) {
	f.got = append(f.got, t)
	return t, nil
}

type memBlobs struct {
	data map[string][]byte
}

func (m *memBlobs) Put(key string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.data[key] = b
	return key, nil
}

func (m *memBlobs) Get(key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data[key])), nil
}

const sample = `
tests:
  - title: Reasoning Basics
    description: Warm-up set
    duration: 20
    questions:
      - text: "2, 4, 8, ?"
        category: Numerical
        difficulty: Easy
        answers:
          - text: "12"
          - text: "16"
            correct: true
      - text: Which shape comes next?
        type: VI
        category: Spatial
        difficulty: Hard
        image: img/shapes.png
        expected: triangle
`

func TestLoadBuildsAndImports(t *testing.T) {
	imp := &fakeImporter{}
	blobs := &memBlobs{data: map[string][]byte{}}
	assets := fstest.MapFS{"img/shapes.png": {Data: []byte("png")}}

	tests, err := NewLoader(imp, blobs, assets).Load(context.Background(), strings.NewReader(sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tests) != 1 || len(imp.got) != 1 {
		t.Fatalf("imported %d tests", len(imp.got))
	}
	got := imp.got[0]
	if got.Title != "Reasoning Basics" || got.DurationMin != 20 || len(got.Questions) != 2 {
		t.Fatalf("unexpected test: %+v", got)
	}
	mc := got.Questions[0]
	if mc.Type != quiz.TypeMultipleChoice || mc.Position != 1 || !mc.Answers[1].IsCorrect || mc.Answers[0].IsCorrect {
		t.Fatalf("unexpected MC question: %+v", mc)
	}
	vi := got.Questions[1]
	if vi.Type != quiz.TypeVisual || vi.Expected != "triangle" || vi.Position != 2 {
		t.Fatalf("unexpected VI question: %+v", vi)
	}
	if got.ID == "" || vi.ImageKey != "questions/"+got.ID+"/2.png" {
		t.Fatalf("image key = %q", vi.ImageKey)
	}
	if string(blobs.data[vi.ImageKey]) != "png" {
		t.Fatalf("image not copied")
	}
}

func TestLoadRejectsInvalidQuestions(t *testing.T) {
	cases := map[string]string{
		"two correct": `
tests:
  - title: T
    questions:
      - text: q
        category: Verbal
        difficulty: Easy
        answers: [{text: a, correct: true}, {text: b, correct: true}]
`,
		"no correct": `
tests:
  - title: T
    questions:
      - text: q
        category: Verbal
        difficulty: Easy
        answers: [{text: a}, {text: b}]
`,
		"free text with key": `
tests:
  - title: T
    questions:
      - text: q
        type: LG
        category: Logical
        difficulty: Medium
        answers: [{text: a, correct: true}]
`,
		"bad category": `
tests:
  - title: T
    questions:
      - text: q
        category: Musical
        difficulty: Easy
        answers: [{text: a, correct: true}, {text: b}]
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			imp := &fakeImporter{}
			_, err := NewLoader(imp, nil, nil).Load(context.Background(), strings.NewReader(doc))
			if !errors.Is(err, quiz.ErrInvalidQuestion) {
				t.Fatalf("err = %v, want ErrInvalidQuestion", err)
			}
			if len(imp.got) != 0 {
				t.Fatalf("invalid test was imported")
			}
		})
	}
}

func TestLoadImageWithoutStore(t *testing.T) {
	doc := `
tests:
  - title: T
    questions:
      - text: q
        type: VI
        category: Spatial
        difficulty: Easy
        image: a.png
`
	if _, err := NewLoader(&fakeImporter{}, nil, nil).Load(context.Background(), strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for image without asset store")
	}
}

func TestLoadKeepsImagesOfSameTitledTestsApart(t *testing.T) {
	doc := `
tests:
  - title: Тест один
    questions:
      - {text: q, type: VI, category: Spatial, difficulty: Easy, image: a.png}
  - title: Тест один
    questions:
      - {text: q, type: VI, category: Spatial, difficulty: Easy, image: b.png}
`
	imp := &fakeImporter{}
	blobs := &memBlobs{data: map[string][]byte{}}
	assets := fstest.MapFS{"a.png": {Data: []byte("A")}, "b.png": {Data: []byte("B")}}

	if _, err := NewLoader(imp, blobs, assets).Load(context.Background(), strings.NewReader(doc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(imp.got) != 2 {
		t.Fatalf("imported %d tests", len(imp.got))
	}
	k1, k2 := imp.got[0].Questions[0].ImageKey, imp.got[1].Questions[0].ImageKey
	if k1 == k2 {
		t.Fatalf("both tests share image key %q", k1)
	}
	if string(blobs.data[k1]) != "A" || string(blobs.data[k2]) != "B" {
		t.Fatalf("images mixed up: %q=%q %q=%q", k1, blobs.data[k1], k2, blobs.data[k2])
	}
}

func TestLoadInvalidTestStoresNoImages(t *testing.T) {
	doc := `
tests:
  - title: "  "
    questions:
      - {text: q, type: VI, category: Spatial, difficulty: Easy, image: a.png}
`
	imp := &fakeImporter{}
	blobs := &memBlobs{data: map[string][]byte{}}
	assets := fstest.MapFS{"a.png": {Data: []byte("A")}}

	_, err := NewLoader(imp, blobs, assets).Load(context.Background(), strings.NewReader(doc))
	if !errors.Is(err, quiz.ErrInvalidQuestion) {
		t.Fatalf("err = %v, want ErrInvalidQuestion", err)
	}
	if len(blobs.data) != 0 || len(imp.got) != 0 {
		t.Fatalf("rejected test left %d blobs, %d imports", len(blobs.data), len(imp.got))
	}
}
