package pipeline

import (
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docatlas/internal/extraction"
)

func TestNewJob(t *testing.T) {
	job := NewJob("file-1", "manual.pdf", extraction.DefaultOptions())
	if job.Status != StatusQueued || job.Phase != "queued" {
		t.Errorf("expected queued job, got %q/%q", job.Status, job.Phase)
	}
	if len(job.ID) != 26 {
		t.Errorf("expected 26 character id, got %q", job.ID)
	}
	if job.FileID != "file-1" || job.Filename != "manual.pdf" {
		t.Errorf("unexpected job %+v", job.Snapshot())
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusReading, "reading"},
		{StatusExtracting, "extracting"},
		{StatusStoring, "storing"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
		if job.Done() {
			t.Errorf("job should not be done in %q", tr.status)
		}
	}
}

func TestJob_Fail(t *testing.T) {
	job := &Job{ID: "test-fail", Status: StatusExtracting, UpdatedAt: time.Now()}
	job.Fail("extracting", errors.New("bad xref"))

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "extracting" {
		t.Errorf("expected failed/extracting, got %q/%q", snap.Status, snap.Phase)
	}
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "bad xref" {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
	if !job.Done() {
		t.Error("failed job should be done")
	}
}

func TestJob_Complete(t *testing.T) {
	job := &Job{ID: "done", UpdatedAt: time.Now()}
	job.Complete("extractions/f.json", 4, 1234)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted || snap.Phase != "done" {
		t.Errorf("expected completed/done, got %q/%q", snap.Status, snap.Phase)
	}
	if snap.ResultPath != "extractions/f.json" {
		t.Errorf("result path = %q", snap.ResultPath)
	}
	if snap.Progress.Sections != 4 || snap.Progress.Bytes != 1234 {
		t.Errorf("progress = %+v", snap.Progress)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
}

func TestJob_SnapshotIsCopy(t *testing.T) {
	job := &Job{ID: "copy", UpdatedAt: time.Now()}
	job.Fail("reading", errors.New("first"))
	snap := job.Snapshot()
	snap.Progress.Errors[0] = "changed"
	if job.Snapshot().Progress.Errors[0] != "first" {
		t.Error("snapshot shares the errors slice with the job")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	store.Put(&Job{ID: "old", UpdatedAt: time.Now()})
	time.Sleep(100 * time.Millisecond)
	store.Put(&Job{ID: "new", UpdatedAt: time.Now()})

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestULID_Format(t *testing.T) {
	id := newULID(time.UnixMilli(1_700_000_000_000))
	if len(id) != 26 {
		t.Fatalf("expected 26 characters, got %d", len(id))
	}
	for _, c := range id {
		if !strings.ContainsRune(crockford, c) {
			t.Fatalf("unexpected character %q in %s", c, id)
		}
	}
	// The leading character holds only the top 3 bits of the timestamp.
	if id[0] > '7' {
		t.Errorf("first character %q out of range", id[0])
	}
}

func TestULID_SortsByTime(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, newULID(base.Add(time.Duration(i)*time.Millisecond)))
	}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("ids not sorted by time: %v", ids)
	}
}

func TestULID_SameMillisecondIncreases(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	a := newULID(now)
	b := newULID(now)
	if a == b {
		t.Fatal("expected distinct ids")
	}
	// The sequence's low bit lands in the 14th character, next to four
	// random bits that cannot outweigh it.
	if a[:14] >= b[:14] {
		t.Errorf("expected %s < %s in the ordered prefix", a[:14], b[:14])
	}
}

func TestEncodeBase32(t *testing.T) {
	var zero [16]byte
	if got := encodeBase32(zero); got != strings.Repeat("0", 26) {
		t.Errorf("zero = %s", got)
	}
	var ones [16]byte
	for i := range ones {
		ones[i] = 0xff
	}
	if got := encodeBase32(ones); got != "7"+strings.Repeat("Z", 25) {
		t.Errorf("ones = %s", got)
	}
}
