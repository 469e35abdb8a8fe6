package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"evler_migrator/config"
	"evler_migrator/formsync"
	"evler_migrator/logging"
	"evler_migrator/models"
	"evler_migrator/pipeline"
	"evler_migrator/queue"
	"evler_migrator/scheduler"
	"evler_migrator/server"
	"evler_migrator/storage"
)

var (
	addURLs = flag.String("add", "", "Comma-separated listing URLs to enqueue, then exit")
	dryRun  = flag.Bool("dry-run", false, "Fill forms without uploading photos or submitting")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting evler_migrator...")

	store, err := queue.NewStore(cfg.QueuePath)
	if err != nil {
		log.Fatalf("Failed to open queue: %v", err)
	}
	recovered, err := store.RecoverProcessing()
	if err != nil {
		log.Fatalf("Failed to recover queue: %v", err)
	}
	if recovered > 0 {
		log.Printf("Recovered %d interrupted jobs back to pending", recovered)
	}

	if *addURLs != "" {
		jobs, err := store.AddMany(strings.Split(*addURLs, ","))
		if err != nil {
			log.Fatalf("Failed to enqueue: %v", err)
		}
		for _, job := range jobs {
			log.Printf("Queued %s (%s)", job.ID, job.URL)
		}
		return
	}

	archive, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open archive: %v", err)
	}
	defer archive.Close()
	log.Printf("Archive database: %s", cfg.DBPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var saver storage.Saver = archive
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Postgres mirror unavailable: %v", err)
		} else {
			defer pg.Close()
			saver = storage.NewTee(archive, pg)
			log.Println("Postgres mirror connected")
		}
	}

	browser, err := formsync.LaunchBrowser(cfg.Headless)
	if err != nil {
		log.Fatalf("Failed to launch browser: %v", err)
	}
	defer browser.Close()
	log.Printf("Browser ready (headless=%v)", cfg.Headless)

	pipe := pipeline.New(browser, cfg.Form, saver)
	worker := queue.NewWorker(store, pipe.Process, cfg.JobTimeout)

	opts := models.RunOptions{DryRun: cfg.DryRun || *dryRun, MaxPhotos: cfg.MaxPhotos}
	sched := scheduler.New(cfg.Scheduler, worker, cfg.Credentials, opts)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	srv := server.New(store, worker, archive)
	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Handler()}
	go func() {
		log.Printf("API listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	worker.Shutdown()
	log.Println("Stopped.")
}
