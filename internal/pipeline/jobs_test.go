package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/engine/enginetest"
	"github.com/dgallion1/docmark/internal/progress"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeMerger struct {
	res   document.Result
	err   error
	block bool
}

func (f *fakeMerger) Merge(ctx context.Context, opts document.MergeOptions, sink progress.Sink) (document.Result, error) {
	sink(progress.Report{Percentage: 40, Phase: progress.Merging, Item: opts.Output})
	if f.block {
		<-ctx.Done()
		return document.Result{}, fmt.Errorf("%w: %w", document.ErrCancelled, ctx.Err())
	}
	return f.res, f.err
}

type fakeExtractor struct {
	got document.ExtractOptions
}

func (f *fakeExtractor) Extract(ctx context.Context, opts document.ExtractOptions, sink progress.Sink) (document.Result, error) {
	f.got = opts
	sink(progress.Report{Percentage: 100, Phase: progress.Finished})
	return document.Result{Outputs: []string{"/work/out/a.pdf", "/work/out/b.pdf"}}, nil
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewMergeJob("", document.MergeOptions{Output: "out.pdf"})
	if job.Status != StatusQueued {
		t.Fatalf("expected new job to be %q, got %q", StatusQueued, job.Status)
	}
	if job.ID == "" {
		t.Fatal("expected a job id")
	}

	for _, status := range []JobStatus{StatusRunning, StatusCompleted} {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(status)
		if job.Status != status {
			t.Errorf("expected status %q, got %q", status, job.Status)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", status)
		}
	}
}

func TestJobStatus_Done(t *testing.T) {
	cases := map[JobStatus]bool{
		StatusQueued:    false,
		StatusRunning:   false,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCancelled: true,
	}
	for status, want := range cases {
		if got := status.Done(); got != want {
			t.Errorf("%q.Done() = %v, want %v", status, got, want)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := NewExtractJob("", document.ExtractOptions{})
	job.AddError("first failure")
	job.AddError("second failure")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "first failure" {
		t.Errorf("expected first error %q, got %q", "first failure", snap.Progress.Errors[0])
	}
}

func TestJob_SinkRecordsProgress(t *testing.T) {
	job := NewMergeJob("", document.MergeOptions{})
	sink := job.Sink()
	sink(progress.Report{Percentage: 60, Phase: progress.AddingBookmarks, Item: "report.pdf"})

	snap := job.Snapshot()
	if snap.Phase != progress.AddingBookmarks {
		t.Errorf("expected phase %v, got %v", progress.AddingBookmarks, snap.Phase)
	}
	if snap.Progress.Percentage != 60 {
		t.Errorf("expected 60%%, got %d", snap.Progress.Percentage)
	}
	if snap.Progress.Item != "report.pdf" {
		t.Errorf("expected item %q, got %q", "report.pdf", snap.Progress.Item)
	}
}

func TestJob_SnapshotEmptyErrorsNotNil(t *testing.T) {
	snap := NewMergeJob("", document.MergeOptions{}).Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice for JSON encoding")
	}
}

func TestJob_CancelQueued(t *testing.T) {
	job := NewMergeJob("", document.MergeOptions{})
	if !job.Cancel() {
		t.Fatal("expected queued job to be cancellable")
	}
	if job.Status != StatusCancelled {
		t.Errorf("expected %q, got %q", StatusCancelled, job.Status)
	}
	if job.Cancel() {
		t.Error("expected second cancel to report inactive job")
	}
	if job.start(func() {}) {
		t.Error("cancelled job must not start")
	}
}

func TestJobStore_CleanupEvictsFinishedJobs(t *testing.T) {
	store := NewJobStore(time.Minute)

	dir := t.TempDir()
	oldDir := filepath.Join(dir, "old")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatal(err)
	}

	old := NewMergeJob(oldDir, document.MergeOptions{})
	old.Status = StatusCompleted
	old.UpdatedAt = time.Now().Add(-time.Hour)

	running := NewMergeJob("", document.MergeOptions{})
	running.Status = StatusRunning
	running.UpdatedAt = time.Now().Add(-time.Hour)

	fresh := NewMergeJob("", document.MergeOptions{})
	fresh.Status = StatusFailed

	store.Put(old)
	store.Put(running)
	store.Put(fresh)

	if n := store.Cleanup(); n != 1 {
		t.Fatalf("expected 1 evicted job, got %d", n)
	}
	if store.Get(old.ID) != nil {
		t.Error("expected expired job to be evicted")
	}
	if store.Get(running.ID) == nil {
		t.Error("running job must not be evicted")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("fresh job must not be evicted")
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Errorf("expected job dir to be removed, stat err = %v", err)
	}
}

func TestWorker_MergeCompleted(t *testing.T) {
	m := &fakeMerger{res: document.Result{Outputs: []string{"/tmp/jobs/x/merged.pdf"}}}
	w := NewWorker(m, nil, discardLog)
	job := NewMergeJob("", document.MergeOptions{Output: "merged.pdf"})

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected %q, got %q (errors %v)", StatusCompleted, snap.Status, snap.Progress.Errors)
	}
	if len(snap.Outputs) != 1 || snap.Outputs[0] != "merged.pdf" {
		t.Errorf("expected snapshot outputs [merged.pdf], got %v", snap.Outputs)
	}
	if got := job.Outputs(); got[0] != "/tmp/jobs/x/merged.pdf" {
		t.Errorf("expected full output path, got %q", got[0])
	}
	if snap.Phase != progress.Merging {
		t.Errorf("expected sink to record phase, got %v", snap.Phase)
	}
}

func TestWorker_Failed(t *testing.T) {
	w := NewWorker(&fakeMerger{err: errors.New("engine exploded")}, nil, discardLog)
	job := NewMergeJob("", document.MergeOptions{})

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected %q, got %q", StatusFailed, snap.Status)
	}
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "engine exploded" {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
}

func TestWorker_PdfAFailureStillCompletes(t *testing.T) {
	ex := &fakeExtractor{}
	m := &fakeMerger{res: document.Result{Outputs: []string{"a.pdf"}, PdfAFailed: true}}
	w := NewWorker(m, ex, discardLog)
	job := NewMergeJob("", document.MergeOptions{})

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected %q, got %q", StatusCompleted, snap.Status)
	}
	if !snap.PdfAFailed || len(snap.Progress.Errors) != 1 {
		t.Errorf("expected pdf/a failure to be reported, got %+v", snap)
	}
}

func TestWorker_Extract(t *testing.T) {
	ex := &fakeExtractor{}
	w := NewWorker(nil, ex, discardLog)
	opts := document.ExtractOptions{Destination: document.Directory("/out"), PdfA: true}
	job := NewExtractJob("", opts)

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected %q, got %q", StatusCompleted, snap.Status)
	}
	if !ex.got.PdfA || ex.got.Destination.Path() != "/out" {
		t.Errorf("options not passed through: %+v", ex.got)
	}
	if len(snap.Outputs) != 2 || snap.Outputs[1] != "b.pdf" {
		t.Errorf("unexpected outputs %v", snap.Outputs)
	}
	if snap.Progress.Percentage != 100 {
		t.Errorf("expected 100%%, got %d", snap.Progress.Percentage)
	}
}

func TestWorker_MissingOperation(t *testing.T) {
	w := NewWorker(nil, nil, discardLog)
	job := NewExtractJob("", document.ExtractOptions{})
	w.Process(context.Background(), job)
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("expected failure without an extractor, got %q", job.Snapshot().Status)
	}
}

func TestWorker_CancelRunning(t *testing.T) {
	w := NewWorker(&fakeMerger{block: true}, nil, discardLog)
	job := NewMergeJob("", document.MergeOptions{})

	done := make(chan struct{})
	go func() {
		w.Process(context.Background(), job)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for job.Snapshot().Status != StatusRunning {
		if time.Now().After(deadline) {
			t.Fatal("job never started")
		}
		time.Sleep(time.Millisecond)
	}
	if !job.Cancel() {
		t.Fatal("expected running job to be cancellable")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	if got := job.Snapshot().Status; got != StatusCancelled {
		t.Errorf("expected %q, got %q", StatusCancelled, got)
	}
}

func TestWorker_CancelDuringEngineCall(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	if err := enginetest.Write(in, enginetest.Doc{Pages: enginetest.Pages("p", 3)}); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.pdf")
	job := NewMergeJob(dir, document.MergeOptions{Inputs: []document.MergeInput{{Path: in}}, Output: out})

	eng := &enginetest.Engine{During: func(op string) {
		if op == "merge" {
			job.Cancel()
		}
	}}
	w := NewWorker(&document.Merger{Engine: eng, Log: discardLog}, nil, discardLog)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCancelled {
		t.Errorf("expected %q, got %q (errors %v)", StatusCancelled, snap.Status, snap.Progress.Errors)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("cancelled merge left its output behind")
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{MaxQueueSize: 1, WorkerCount: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, &fakeMerger{}, nil, discardLog)

	// No workers started, so the queue never drains.
	if err := o.Submit(NewMergeJob("", document.MergeOptions{})); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	job := NewMergeJob("", document.MergeOptions{})
	if err := o.Submit(job); err == nil {
		t.Fatal("expected queue full error")
	}
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", job.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_RunsJobs(t *testing.T) {
	cfg := config.Config{MaxQueueSize: 4, WorkerCount: 2, JobTTL: time.Hour}
	m := &fakeMerger{res: document.Result{Outputs: []string{"merged.pdf"}}}
	o := NewOrchestrator(cfg, m, &fakeExtractor{}, discardLog)
	o.Start(context.Background())
	defer o.Stop()

	jobs := []*Job{
		NewMergeJob("", document.MergeOptions{}),
		NewExtractJob("", document.ExtractOptions{}),
	}
	for _, j := range jobs {
		if err := o.Submit(j); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for _, j := range jobs {
		for !o.GetJob(j.ID).Snapshot().Status.Done() {
			if time.Now().After(deadline) {
				t.Fatalf("job %s did not finish", j.ID)
			}
			time.Sleep(5 * time.Millisecond)
		}
		if got := j.Snapshot().Status; got != StatusCompleted {
			t.Errorf("job %s: expected %q, got %q", j.Kind, StatusCompleted, got)
		}
	}

	if _, err := o.CancelJob("missing"); err == nil {
		t.Error("expected error cancelling unknown job")
	}
}
