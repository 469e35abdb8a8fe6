package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"evler_migrator/models"
)

var (
	ErrAlreadyRunning = errors.New("worker is already running")
	ErrNotRunning     = errors.New("worker is not running")
)

// FatalError stops the whole worker run instead of just failing the
// current job. Rejected credentials are the typical cause.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// ProcessFunc migrates one job. Implementations stream progress
// through logf; the returned result is recorded on the job.
type ProcessFunc func(ctx context.Context, job *models.MigrationJob, creds models.Credentials, opts models.RunOptions, logf func(string)) (*models.MigrationResult, error)

// Event is one worker notification fanned out to subscribers.
type Event struct {
	Event   string                  `json:"event"`
	JobID   string                  `json:"itemId,omitempty"`
	URL     string                  `json:"url,omitempty"`
	Message string                  `json:"message,omitempty"`
	Status  string                  `json:"status,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Result  *models.MigrationResult `json:"result,omitempty"`
}

// Worker drains pending jobs one at a time. A single worker owns the
// browser session, so there is never more than one loop.
type Worker struct {
	store   *Store
	process ProcessFunc
	timeout time.Duration

	mu        sync.Mutex
	running   bool
	stopping  bool
	currentID string
	cancel    context.CancelFunc
	done      chan struct{}
	subs      map[chan Event]struct{}
}

// NewWorker wires a worker to its store and per-job processor. A
// non-positive timeout falls back to 10 minutes.
func NewWorker(store *Store, process ProcessFunc, timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Worker{
		store:   store,
		process: process,
		timeout: timeout,
		subs:    make(map[chan Event]struct{}),
	}
}

// Subscribe registers an event listener. The returned cancel func must
// be called when the listener goes away. Slow listeners lose events
// rather than blocking the loop.
func (w *Worker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	w.mu.Lock()
	w.subs[ch] = struct{}{}
	w.mu.Unlock()
	cancel := func() {
		w.mu.Lock()
		if _, ok := w.subs[ch]; ok {
			delete(w.subs, ch)
			close(ch)
		}
		w.mu.Unlock()
	}
	return ch, cancel
}

func (w *Worker) broadcast(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ch := range w.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Start launches the drain loop. Returns ErrAlreadyRunning while a
// previous loop is still active.
func (w *Worker) Start(creds models.Credentials, opts models.RunOptions) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.running = true
	w.stopping = false
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	w.broadcast(Event{Event: "worker-status", Status: "started"})
	go func() {
		defer close(done)
		w.loop(ctx, creds, opts)
	}()
	return nil
}

// Stop asks the loop to halt after the current job. The in-flight job
// is never interrupted.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrNotRunning
	}
	w.stopping = true
	w.mu.Unlock()
	w.broadcast(Event{Event: "worker-status", Status: "stopping", Message: "will stop after current job"})
	return nil
}

// Shutdown cancels the in-flight job and waits for the loop to exit.
func (w *Worker) Shutdown() {
	w.mu.Lock()
	w.stopping = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (w *Worker) shouldStop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopping
}

// Status summarizes queue counts and the loop state.
func (w *Worker) Status() (models.QueueStatus, error) {
	jobs, err := w.store.List()
	if err != nil {
		return models.QueueStatus{}, err
	}
	w.mu.Lock()
	status := models.QueueStatus{
		Running:      w.running,
		CurrentJobID: w.currentID,
		Total:        len(jobs),
	}
	w.mu.Unlock()
	for _, job := range jobs {
		switch job.Status {
		case models.JobStatusPending:
			status.Pending++
		case models.JobStatusProcessing:
			status.Processing++
		case models.JobStatusDone:
			status.Done++
		case models.JobStatusFailed:
			status.Failed++
		}
	}
	return status, nil
}

func (w *Worker) loop(ctx context.Context, creds models.Credentials, opts models.RunOptions) {
	defer func() {
		w.mu.Lock()
		w.running = false
		w.stopping = false
		w.currentID = ""
		w.cancel = nil
		w.mu.Unlock()
		w.broadcast(Event{Event: "worker-status", Status: "stopped"})
	}()

	for !w.shouldStop() {
		job, err := w.store.NextPending()
		if err != nil {
			log.Printf("queue: next pending: %v", err)
			return
		}
		if job == nil {
			w.broadcast(Event{Event: "worker-status", Status: "idle", Message: "no more pending jobs"})
			return
		}

		w.mu.Lock()
		w.currentID = job.ID
		w.mu.Unlock()

		now := time.Now().UTC()
		if _, err := w.store.Update(job.ID, func(j *models.MigrationJob) {
			j.Status = models.JobStatusProcessing
			j.StartedAt = &now
		}); err != nil {
			log.Printf("queue: mark processing %s: %v", job.ID, err)
			return
		}
		w.broadcast(Event{Event: "item-start", JobID: job.ID, URL: job.URL})

		fatal := w.runJob(ctx, job, creds, opts)

		w.mu.Lock()
		w.currentID = ""
		w.mu.Unlock()

		if fatal || ctx.Err() != nil {
			return
		}
	}
}

// callProcess shields the worker loop from a panicking job: the panic
// becomes an ordinary job error instead of taking the process down.
func (w *Worker) callProcess(ctx context.Context, job *models.MigrationJob, creds models.Credentials, opts models.RunOptions, logf func(string)) (result *models.MigrationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("queue: job %s panicked: %v", job.ID, r)
			result = nil
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return w.process(ctx, job, creds, opts, logf)
}

// runJob executes one job under the per-job timeout and records the
// outcome. It reports whether the failure should end the whole run.
func (w *Worker) runJob(ctx context.Context, job *models.MigrationJob, creds models.Credentials, opts models.RunOptions) bool {
	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	logf := func(message string) {
		if err := w.store.AppendLog(job.ID, message); err != nil {
			log.Printf("queue: append log %s: %v", job.ID, err)
		}
		w.broadcast(Event{Event: "log", JobID: job.ID, Message: message})
	}

	result, err := w.callProcess(jobCtx, job, creds, opts, logf)
	if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("job timed out after %s", w.timeout)
	}

	done := time.Now().UTC()
	if err != nil {
		if _, uerr := w.store.Update(job.ID, func(j *models.MigrationJob) {
			j.Status = models.JobStatusFailed
			j.CompletedAt = &done
			j.Error = err.Error()
			j.Result = result
		}); uerr != nil {
			log.Printf("queue: mark failed %s: %v", job.ID, uerr)
		}
		w.broadcast(Event{Event: "item-failed", JobID: job.ID, Error: err.Error()})
		var fatal *FatalError
		return errors.As(err, &fatal)
	}

	if _, uerr := w.store.Update(job.ID, func(j *models.MigrationJob) {
		j.Status = models.JobStatusDone
		j.CompletedAt = &done
		j.Result = result
	}); uerr != nil {
		log.Printf("queue: mark done %s: %v", job.ID, uerr)
	}
	w.broadcast(Event{Event: "item-done", JobID: job.ID, Result: result})
	return false
}
