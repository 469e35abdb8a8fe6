package models

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// MigrationJob is one entry in the durable queue. Processing state is
// transient: it must never survive a process restart.
type MigrationJob struct {
	ID          string           `json:"id"`
	URL         string           `json:"url"`
	Status      JobStatus        `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	StartedAt   *time.Time       `json:"startedAt"`
	CompletedAt *time.Time       `json:"completedAt"`
	Error       string           `json:"error,omitempty"`
	Logs        []string         `json:"logs"`
	Result      *MigrationResult `json:"result,omitempty"`
}

// MigrationResult is the payload recorded on a done job.
type MigrationResult struct {
	Success        bool              `json:"success"`
	DryRun         bool              `json:"dryRun,omitempty"`
	ProfileType    string            `json:"profileType"`
	ListingURL     string            `json:"listingUrl,omitempty"`
	MappedValues   map[string]string `json:"mappedValues"`
	FilledFields   []string          `json:"filledFields"`
	SkippedFields  []string          `json:"skippedFields"`
	Warnings       []string          `json:"warnings,omitempty"`
	PhotosTotal    int               `json:"photosTotal"`
	PhotosUploaded int               `json:"photosUploaded"`
	Diagnostics    []string          `json:"diagnostics,omitempty"`
}

// QueueStatus is the live summary exposed by the worker.
type QueueStatus struct {
	Running      bool   `json:"running"`
	CurrentJobID string `json:"currentJobId,omitempty"`
	Total        int    `json:"total"`
	Pending      int    `json:"pending"`
	Processing   int    `json:"processing"`
	Done         int    `json:"done"`
	Failed       int    `json:"failed"`
}

// Credentials for the destination site, passed opaquely to the form
// synchronization login step.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RunOptions control a worker run.
type RunOptions struct {
	DryRun    bool `json:"dryRun"`
	MaxPhotos int  `json:"maxPhotos"` // negative means all
}
