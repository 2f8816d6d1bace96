package jobs

import (
	"context"
	"errors"
	"testing"

	"wsideid/internal/services"
)

func TestLaunchReportsSuccess(t *testing.T) {
	m := NewManager(nil)

	release := make(chan struct{})
	job := m.Launch(context.Background(), "ingest", func(ctx context.Context) (string, error) {
		if id, ok := services.JobIDFromContext(ctx); !ok || id == "" {
			t.Error("job id missing from context")
		}
		<-release
		return "added 2", nil
	})

	if job.ID == "" || job.Status != StatusRunning {
		t.Fatalf("unexpected handle: %+v", job)
	}
	if snapshot, ok := m.Get(job.ID); !ok || snapshot.Done() {
		t.Fatalf("job should still be running: %+v", snapshot)
	}

	close(release)
	m.Wait()

	snapshot, ok := m.Get(job.ID)
	if !ok || snapshot.Status != StatusSucceeded || snapshot.Summary != "added 2" {
		t.Fatalf("unexpected terminal snapshot: %+v", snapshot)
	}
	if snapshot.Finished.IsZero() {
		t.Fatal("finished timestamp missing")
	}
}

func TestLaunchReportsFailure(t *testing.T) {
	m := NewManager(nil)

	job := m.Launch(context.Background(), "export", func(context.Context) (string, error) {
		return "", errors.New("destination unreachable")
	})
	m.Wait()

	snapshot, _ := m.Get(job.ID)
	if snapshot.Status != StatusFailed || snapshot.Error == "" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestCancelStopsJob(t *testing.T) {
	m := NewManager(nil)

	started := make(chan struct{})
	job := m.Launch(context.Background(), "ocrall", func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})

	<-started
	if !m.Cancel(job.ID) {
		t.Fatal("expected a running job to cancel")
	}
	m.Wait()

	snapshot, _ := m.Get(job.ID)
	if snapshot.Status != StatusCancelled {
		t.Fatalf("unexpected status: %+v", snapshot)
	}
	if m.Cancel(job.ID) {
		t.Fatal("finished jobs cannot be cancelled")
	}
}

func TestLaunchHandleIsStableUnderFastCompletion(t *testing.T) {
	m := NewManager(nil)

	// Jobs that finish immediately race the returned handle against the
	// completion goroutine; the handle must always be the pre-start snapshot.
	for i := 0; i < 200; i++ {
		job := m.Launch(context.Background(), "ingest", func(context.Context) (string, error) {
			return "done", nil
		})
		if job.Status != StatusRunning || job.Summary != "" || !job.Finished.IsZero() {
			t.Fatalf("handle must snapshot the job before it runs: %+v", job)
		}
	}
	m.Wait()

	for _, job := range m.List() {
		if job.Status != StatusSucceeded || job.Summary != "done" {
			t.Fatalf("unexpected terminal snapshot: %+v", job)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	m := NewManager(nil)

	first := m.Launch(context.Background(), "ingest", func(context.Context) (string, error) { return "", nil })
	m.Wait()
	second := m.Launch(context.Background(), "export", func(context.Context) (string, error) { return "", nil })
	m.Wait()

	list := m.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
}
