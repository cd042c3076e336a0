package pipeline

import (
	"errors"
	"testing"
	"time"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("test-1", "deck.pptx", []byte("data"))
	if job.Status != StatusQueued {
		t.Fatalf("expected queued, got %q", job.Status)
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusStructuring, "structuring"},
		{StatusStoring, "storing"},
	}
	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}

	select {
	case <-job.Done():
		t.Fatal("job done before a terminal status")
	default:
	}

	job.Complete("L1", "deck", 4, "heuristic")
	snap := job.Snapshot()
	if snap.Status != StatusCompleted || snap.LessonID != "L1" || snap.TotalSlides != 4 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	select {
	case <-job.Done():
	default:
		t.Error("expected Done to be closed")
	}
	if job.FileData() != nil {
		t.Error("expected file data released after completion")
	}
}

func TestJob_Fail(t *testing.T) {
	job := NewJob("f", "x.pdf", nil)
	job.Fail("structuring", errors.New("decode pdf: bad xref"))
	job.Fail("structuring", errors.New("again"))

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if len(snap.Errors) != 2 || snap.Errors[0] != "decode pdf: bad xref" {
		t.Errorf("unexpected errors %q", snap.Errors)
	}
}

func TestJob_MarkDuplicate(t *testing.T) {
	job := NewJob("d", "x.pdf", nil)
	job.MarkDuplicate("L0")
	snap := job.Snapshot()
	if snap.Status != StatusDuplicate || snap.LessonID != "L0" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
}

func TestJob_LiteralWithoutDoneChannel(t *testing.T) {
	job := &Job{ID: "lit"}
	job.SetStatus(StatusFailed, "x")
	job.SetStatus(StatusFailed, "x")
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	store.Put(NewJob("store-1", "a.pdf", nil))

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := NewJob("old", "a.pdf", nil)
	expired.MarkDuplicate("L0")
	running := NewJob("running", "b.pdf", nil)
	running.SetStatus(StatusStructuring, "structuring")
	store.Put(expired)
	store.Put(running)

	time.Sleep(100 * time.Millisecond)

	fresh := NewJob("new", "c.pdf", nil)
	fresh.Complete("L1", "c", 1, "heuristic")
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("running") == nil {
		t.Error("expected in-progress job to survive cleanup")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}
