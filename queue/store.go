// Package queue holds the durable migration queue and the worker that
// drains it. The queue lives in a single JSON document so a crashed
// process can pick up exactly where it stopped.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"evler_migrator/models"
)

var (
	ErrNotFound   = errors.New("queue item not found")
	ErrProcessing = errors.New("queue item is processing")
)

// Store persists the queue document. Every mutation rewrites the file
// through a temp-file rename so readers never observe a torn write.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore opens the queue file at path, creating nothing until the
// first mutation. A corrupt existing file fails here rather than on
// the first job.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

type document struct {
	Items []*models.MigrationJob `json:"items"`
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode queue file: %w", err)
	}
	return &doc, nil
}

func (s *Store) save(doc *document) error {
	if doc.Items == nil {
		doc.Items = []*models.MigrationJob{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create queue dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write queue temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}

func newJob(url string) *models.MigrationJob {
	return &models.MigrationJob{
		ID:        fmt.Sprintf("q_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
		URL:       url,
		Status:    models.JobStatusPending,
		CreatedAt: time.Now().UTC(),
		Logs:      []string{},
	}
}

// Add appends one pending job for a listing URL.
func (s *Store) Add(url string) (*models.MigrationJob, error) {
	jobs, err := s.AddMany([]string{url})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, errors.New("empty listing url")
	}
	return jobs[0], nil
}

// AddMany appends one pending job per non-blank URL.
func (s *Store) AddMany(urls []string) ([]*models.MigrationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	var added []*models.MigrationJob
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		job := newJob(url)
		doc.Items = append(doc.Items, job)
		added = append(added, job)
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return cloneJobs(added), nil
}

func (s *Store) Get(id string) (*models.MigrationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, job := range doc.Items {
		if job.ID == id {
			return cloneJob(job), nil
		}
	}
	return nil, ErrNotFound
}

// List returns every job in insertion order.
func (s *Store) List() ([]*models.MigrationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return cloneJobs(doc.Items), nil
}

// Update applies a mutation to one job under the store lock and
// persists the result.
func (s *Store) Update(id string, mutate func(*models.MigrationJob)) (*models.MigrationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, job := range doc.Items {
		if job.ID != id {
			continue
		}
		mutate(job)
		if err := s.save(doc); err != nil {
			return nil, err
		}
		return cloneJob(job), nil
	}
	return nil, ErrNotFound
}

// AppendLog adds one log line to a job.
func (s *Store) AppendLog(id, message string) error {
	_, err := s.Update(id, func(job *models.MigrationJob) {
		job.Logs = append(job.Logs, message)
	})
	return err
}

// Remove deletes a job. Jobs currently processing cannot be removed.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, job := range doc.Items {
		if job.ID != id {
			continue
		}
		if job.Status == models.JobStatusProcessing {
			return ErrProcessing
		}
		doc.Items = append(doc.Items[:i], doc.Items[i+1:]...)
		return s.save(doc)
	}
	return ErrNotFound
}

// Retry resets a finished job back to pending, clearing every trace of
// the previous attempt.
func (s *Store) Retry(id string) (*models.MigrationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, job := range doc.Items {
		if job.ID != id {
			continue
		}
		if job.Status == models.JobStatusProcessing {
			return nil, ErrProcessing
		}
		resetJob(job)
		if err := s.save(doc); err != nil {
			return nil, err
		}
		return cloneJob(job), nil
	}
	return nil, ErrNotFound
}

// NextPending returns the oldest pending job, or nil when the queue
// has none.
func (s *Store) NextPending() (*models.MigrationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, job := range doc.Items {
		if job.Status == models.JobStatusPending {
			return cloneJob(job), nil
		}
	}
	return nil, nil
}

// RecoverProcessing resets jobs stuck in processing back to pending.
// Called once on startup; a processing entry on disk means the previous
// run died mid-job.
func (s *Store) RecoverProcessing() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, job := range doc.Items {
		if job.Status == models.JobStatusProcessing {
			resetJob(job)
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	if err := s.save(doc); err != nil {
		return 0, err
	}
	return count, nil
}

func resetJob(job *models.MigrationJob) {
	job.Status = models.JobStatusPending
	job.StartedAt = nil
	job.CompletedAt = nil
	job.Error = ""
	job.Logs = []string{}
	job.Result = nil
}

func cloneJob(job *models.MigrationJob) *models.MigrationJob {
	out := *job
	out.Logs = append([]string(nil), job.Logs...)
	if job.Result != nil {
		res := *job.Result
		out.Result = &res
	}
	return &out
}

func cloneJobs(jobs []*models.MigrationJob) []*models.MigrationJob {
	out := make([]*models.MigrationJob, len(jobs))
	for i, job := range jobs {
		out[i] = cloneJob(job)
	}
	return out
}
