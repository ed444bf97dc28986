package storage

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key, err := s.Put("questions/../questions/q1.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "questions/q1.png" {
		t.Fatalf("canonical key = %q", key)
	}
	rc, err := s.Get("/questions/q1.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "png-bytes" {
		t.Fatalf("content = %q", b)
	}
}

func TestFSStoreKeysStayInsideBase(t *testing.T) {
	base := t.TempDir()
	s, _ := NewFSStore(base)
	key, err := s.Put("../../etc/evil", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "etc/evil" {
		t.Fatalf("traversal not neutralised: %q", key)
	}
	if _, err := s.Put("  ", strings.NewReader("x")); !errors.Is(err, ErrBadKey) {
		t.Fatalf("empty key err = %v, want ErrBadKey", err)
	}
}
