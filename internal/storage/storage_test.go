package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStore_SaveReadDelete(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save("a/b/file.pdf", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if !s.Exists("a/b/file.pdf") {
		t.Fatal("expected file to exist")
	}

	rc, err := s.Open("a/b/file.pdf")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	if err := s.Delete("a/b/file.pdf"); err != nil {
		t.Fatal(err)
	}
	if s.Exists("a/b/file.pdf") {
		t.Error("file still exists")
	}
	if err := s.Delete("a/b/file.pdf"); err != nil {
		t.Errorf("deleting a missing file: %v", err)
	}
}

func TestFileStore_NotFound(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	if _, err := s.Read("missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete("missing.json"); err != nil {
		t.Errorf("delete of missing file: %v", err)
	}
}

func TestFileStore_RejectsEscape(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	for _, p := range []string{"../outside", "a/../../outside", "/etc/passwd", ""} {
		if err := s.Save(p, []byte("x")); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Save(%q) = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestPaths(t *testing.T) {
	if got := UploadPath("id1", "Manual.PDF"); got != filepath.Join("uploads", "id1.pdf") {
		t.Errorf("UploadPath = %s", got)
	}
	if got := ExtractionPath("id1"); got != filepath.Join("extractions", "id1.json") {
		t.Errorf("ExtractionPath = %s", got)
	}
}

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := OpenRegistry(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegistry_CreateGetUpdate(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	rec := FileRecord{
		FileID:      "f1",
		FileName:    "manual.pdf",
		ContentType: "application/pdf",
		SizeBytes:   1234,
		FileHash:    "abc",
		StoredPath:  "uploads/f1.pdf",
	}
	if err := r.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := r.Get(ctx, "f1")
	if err != nil {
		t.Fatal(err)
	}
	if got.FileName != "manual.pdf" || got.SizeBytes != 1234 || got.CreatedAt.IsZero() {
		t.Errorf("record = %+v", got)
	}

	if err := r.SetExtractedPath(ctx, "f1", "extractions/f1.json"); err != nil {
		t.Fatal(err)
	}
	got, _ = r.Get(ctx, "f1")
	if got.ExtractedDocPath != "extractions/f1.json" {
		t.Errorf("extracted path = %q", got.ExtractedDocPath)
	}
}

func TestRegistry_NotFound(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()
	if _, err := r.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	if err := r.SetExtractedPath(ctx, "nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetExtractedPath: expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_ListNewestFirst(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		rec := FileRecord{FileID: id, FileName: id + ".pdf", FileHash: "h", StoredPath: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := r.Create(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	all, err := r.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].FileID != "new" || all[2].FileID != "old" {
		t.Errorf("list = %+v", all)
	}
	two, _ := r.List(ctx, 2)
	if len(two) != 2 {
		t.Errorf("limited list = %d", len(two))
	}
}
