package queue

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"evler_migrator/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "queue.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestAddAndList(t *testing.T) {
	s := newTestStore(t)

	added, err := s.AddMany([]string{"https://src.example/ilan/1", "  ", "https://src.example/ilan/2"})
	if err != nil {
		t.Fatalf("AddMany: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("added %d jobs, want 2", len(added))
	}
	for _, job := range added {
		if job.Status != models.JobStatusPending {
			t.Errorf("job %s status = %s", job.ID, job.Status)
		}
		if job.ID == "" || job.CreatedAt.IsZero() {
			t.Errorf("job missing id or timestamp: %+v", job)
		}
	}

	jobs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("listed %d jobs, want 2", len(jobs))
	}
	if jobs[0].URL != "https://src.example/ilan/1" {
		t.Errorf("insertion order lost: %s", jobs[0].URL)
	}
}

func TestGetUnknownID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("q_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDocumentShapeOnDisk(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add("https://src.example/ilan/1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("read queue file: %v", err)
	}
	var doc struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("queue file is not a document: %v", err)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("document has %d items, want 1", len(doc.Items))
	}
	if _, err := os.Stat(s.path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

func TestUpdatePersists(t *testing.T) {
	s := newTestStore(t)
	job, err := s.Add("https://src.example/ilan/1")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := s.Update(job.ID, func(j *models.MigrationJob) {
		j.Status = models.JobStatusFailed
		j.Error = "boom"
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Fresh store over the same file sees the mutation.
	reopened, err := NewStore(s.path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	got, err := reopened.Get(job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.JobStatusFailed || got.Error != "boom" {
		t.Errorf("job = %+v", got)
	}
}

func TestRemoveRefusesProcessing(t *testing.T) {
	s := newTestStore(t)
	job, _ := s.Add("https://src.example/ilan/1")

	if _, err := s.Update(job.ID, func(j *models.MigrationJob) {
		j.Status = models.JobStatusProcessing
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Remove(job.ID); !errors.Is(err, ErrProcessing) {
		t.Fatalf("Remove err = %v, want ErrProcessing", err)
	}

	if _, err := s.Update(job.ID, func(j *models.MigrationJob) {
		j.Status = models.JobStatusDone
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Remove(job.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(job.ID); !errors.Is(err, ErrNotFound) {
		t.Error("job still present after removal")
	}
}

func TestRetryClearsPreviousAttempt(t *testing.T) {
	s := newTestStore(t)
	job, _ := s.Add("https://src.example/ilan/1")

	if _, err := s.Update(job.ID, func(j *models.MigrationJob) {
		j.Status = models.JobStatusFailed
		j.Error = "boom"
		j.Logs = []string{"a", "b"}
		j.Result = &models.MigrationResult{Success: false}
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.Retry(job.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got.Status != models.JobStatusPending {
		t.Errorf("status = %s", got.Status)
	}
	if got.Error != "" || len(got.Logs) != 0 || got.Result != nil || got.StartedAt != nil {
		t.Errorf("previous attempt not cleared: %+v", got)
	}
}

func TestNextPendingOrder(t *testing.T) {
	s := newTestStore(t)
	first, _ := s.Add("https://src.example/ilan/1")
	s.Add("https://src.example/ilan/2")

	job, err := s.NextPending()
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if job == nil || job.ID != first.ID {
		t.Fatalf("next = %+v, want the oldest pending", job)
	}

	if _, err := s.Update(first.ID, func(j *models.MigrationJob) {
		j.Status = models.JobStatusDone
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	job, _ = s.NextPending()
	if job == nil || job.URL != "https://src.example/ilan/2" {
		t.Fatalf("next = %+v", job)
	}
}

func TestRecoverProcessing(t *testing.T) {
	s := newTestStore(t)
	stuck, _ := s.Add("https://src.example/ilan/1")
	finished, _ := s.Add("https://src.example/ilan/2")

	s.Update(stuck.ID, func(j *models.MigrationJob) {
		now := j.CreatedAt
		j.Status = models.JobStatusProcessing
		j.StartedAt = &now
		j.Logs = []string{"halfway"}
	})
	s.Update(finished.ID, func(j *models.MigrationJob) {
		j.Status = models.JobStatusDone
	})

	// A new store over the same file plays the restart.
	reopened, err := NewStore(s.path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	n, err := reopened.RecoverProcessing()
	if err != nil {
		t.Fatalf("RecoverProcessing: %v", err)
	}
	if n != 1 {
		t.Fatalf("recovered %d jobs, want 1", n)
	}

	got, _ := reopened.Get(stuck.ID)
	if got.Status != models.JobStatusPending || got.StartedAt != nil || len(got.Logs) != 0 {
		t.Errorf("stuck job not reset: %+v", got)
	}
	done, _ := reopened.Get(finished.ID)
	if done.Status != models.JobStatusDone {
		t.Errorf("finished job touched by recovery: %+v", done)
	}
}

func TestListReturnsCopies(t *testing.T) {
	s := newTestStore(t)
	job, _ := s.Add("https://src.example/ilan/1")

	jobs, _ := s.List()
	jobs[0].Status = models.JobStatusFailed
	jobs[0].Logs = append(jobs[0].Logs, "mutated")

	got, _ := s.Get(job.ID)
	if got.Status != models.JobStatusPending || len(got.Logs) != 0 {
		t.Error("mutating a listed job leaked into the store")
	}
}
