// Package scheduler kicks off unattended worker runs on a cron
// expression or a fixed interval. Credentials come from the
// environment; without them scheduled runs are skipped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"evler_migrator/config"
	"evler_migrator/models"
	"evler_migrator/queue"
)

type Scheduler struct {
	cfg    config.SchedulerConfig
	worker *queue.Worker
	creds  models.Credentials
	opts   models.RunOptions

	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}
}

func New(cfg config.SchedulerConfig, worker *queue.Worker, creds models.Credentials, opts models.RunOptions) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		worker: worker,
		creds:  creds,
		opts:   opts,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Cron != "" {
		log.Printf("scheduler: cron %q", s.cfg.Cron)
		_, err := s.cron.AddFunc(s.cfg.Cron, s.Trigger)
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
		return nil
	}

	if s.cfg.Interval > 0 {
		log.Printf("scheduler: interval %s", s.cfg.Interval)
		s.ticker = time.NewTicker(s.cfg.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.Trigger()
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	}

	log.Println("scheduler: no schedule configured, runs start via the API only")
	return nil
}

// Trigger starts a worker run now. An empty queue, an already running
// worker or a missing credential pair just logs.
func (s *Scheduler) Trigger() {
	if s.creds.Email == "" || s.creds.Password == "" {
		log.Println("scheduler: skipping run, WORKER_EMAIL/WORKER_PASSWORD not set")
		return
	}
	status, err := s.worker.Status()
	if err != nil {
		log.Printf("scheduler: read queue status: %v", err)
		return
	}
	if status.Pending == 0 {
		return
	}
	err = s.worker.Start(s.creds, s.opts)
	if errors.Is(err, queue.ErrAlreadyRunning) {
		log.Println("scheduler: worker already running")
		return
	}
	if err != nil {
		log.Printf("scheduler: start worker: %v", err)
		return
	}
	log.Println("scheduler: worker run started")
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}
