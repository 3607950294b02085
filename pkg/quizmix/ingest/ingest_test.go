package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type failingFile struct {
	name string
	err  error
}

func (f failingFile) Name() string                 { return f.name }
func (f failingFile) Open() (io.ReadCloser, error) { return nil, f.err }

func TestFingerprint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{"abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"The quick brown fox jumps over the lazy dog", "2fd4e1c67a2d28fced849ee1bb76e7391b93eb12"},
	}
	for _, tt := range tests {
		if got := Fingerprint([]byte(tt.in)); got != tt.want {
			t.Errorf("Fingerprint(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFingerprintIsZeroPaddedLowercaseHex(t *testing.T) {
	fp := Fingerprint([]byte{0x00, 0x01, 0x02})
	if len(fp) != 40 {
		t.Fatalf("expected 40 hex chars, got %d (%s)", len(fp), fp)
	}
	for _, c := range fp {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("non lowercase-hex character %q in %s", c, fp)
		}
	}
}

func TestCollectIdenticalContentSameFingerprint(t *testing.T) {
	p := New(WithConcurrency(2), WithTags(false))
	files := []File{
		BytesFile("b.mp3", []byte("clip-one")),
		BytesFile("a.mp3", []byte("clip-two")),
		BytesFile("b-copy.mp3", []byte("clip-one")),
	}

	results := p.Collect(context.Background(), files)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	byName := make(map[string]Result)
	for _, r := range results {
		if !r.OK() {
			t.Fatalf("unexpected failure for %s: %v", r.Name, r.Err)
		}
		byName[r.Name] = r
	}

	if byName["b.mp3"].Record.Fingerprint != byName["b-copy.mp3"].Record.Fingerprint {
		t.Error("identical content should share a fingerprint")
	}
	if byName["b.mp3"].Record.Fingerprint == byName["a.mp3"].Record.Fingerprint {
		t.Error("distinct content should not share a fingerprint")
	}
	if byName["a.mp3"].Index != 1 {
		t.Errorf("expected a.mp3 to keep batch index 1, got %d", byName["a.mp3"].Index)
	}
}

func TestFailureIsIsolated(t *testing.T) {
	boom := errors.New("disk on fire")
	p := New(WithTags(false))
	files := []File{
		BytesFile("ok-1.mp3", []byte("one")),
		failingFile{name: "bad.mp3", err: boom},
		BytesFile("ok-2.mp3", []byte("two")),
	}

	var ok, failed int
	for r := range p.Run(context.Background(), files) {
		if r.OK() {
			ok++
			continue
		}
		failed++
		if r.Name != "bad.mp3" {
			t.Errorf("unexpected failure for %s", r.Name)
		}
		if !errors.Is(r.Err, boom) {
			t.Errorf("expected wrapped cause, got %v", r.Err)
		}
	}

	if ok != 2 || failed != 1 {
		t.Fatalf("expected 2 ok and 1 failed, got %d ok and %d failed", ok, failed)
	}
}

func TestMaxBytes(t *testing.T) {
	p := New(WithMaxBytes(4), WithTags(false))
	results := p.Collect(context.Background(), []File{
		BytesFile("small.mp3", []byte("1234")),
		BytesFile("big.mp3", []byte("12345")),
	})

	for _, r := range results {
		switch r.Name {
		case "small.mp3":
			if !r.OK() {
				t.Errorf("small.mp3 should pass, got %v", r.Err)
			}
		case "big.mp3":
			if !errors.Is(r.Err, ErrTooLarge) {
				t.Errorf("big.mp3 should fail with ErrTooLarge, got %v", r.Err)
			}
		}
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New().Collect(ctx, []File{BytesFile("a.mp3", []byte("a"))})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", results[0].Err)
	}
}

func TestPathFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "question.mp3")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	results := New(WithTags(false)).Collect(context.Background(), PathFiles([]string{path}))
	if len(results) != 1 || !results[0].OK() {
		t.Fatalf("unexpected results: %+v", results)
	}
	r := results[0]
	if r.Name != "question.mp3" {
		t.Errorf("expected base name, got %s", r.Name)
	}
	if r.Record.Fingerprint != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("unexpected fingerprint %s", r.Record.Fingerprint)
	}
	if item := r.Record.Item(); item.Size != 3 || item.Name != "question.mp3" {
		t.Errorf("unexpected item %+v", item)
	}
}

func TestEmptyBatchClosesChannel(t *testing.T) {
	for range New().Run(context.Background(), nil) {
		t.Fatal("expected no results")
	}
}
