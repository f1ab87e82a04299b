package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"presence-tracker-backend/config"
	"presence-tracker-backend/internal/capture"
	"presence-tracker-backend/internal/store"
)

// scanstation drives one capture loop against a presenced instance. It
// reads the decoder feed from stdin, one decoded token per line, and
// prints the outcome of every capture.
func main() {
	logger := log.New(os.Stdout, "scanstation ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	if cfg.Capture.IngestURL == "" {
		logger.Fatalf("capture.ingest_url must be configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Println("Stop signal received, finishing any outstanding submission...")
		cancel()
	}()

	loop := capture.NewLoop(capture.NewHTTPDispatcher(cfg.Capture.IngestURL), cfg.Capture.Cooldown)
	loop.SetSelection(capture.Selection{
		LocationID: cfg.Capture.LocationID,
		Action:     store.Action(cfg.Capture.Action),
		Operator:   cfg.Capture.Operator,
	})

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case res := <-loop.Results():
				printResult(logger, res)
			case <-done:
				// The loop has stopped; report anything still queued.
				for {
					select {
					case res := <-loop.Results():
						printResult(logger, res)
					default:
						return
					}
				}
			}
		}
	}()

	source := capture.NewLineSource(os.Stdin)
	err = loop.Run(ctx, source)
	close(done)
	wg.Wait()

	switch {
	case errors.Is(err, capture.ErrDeviceAccessDenied), errors.Is(err, capture.ErrNoDeviceFound):
		logger.Fatalf("cannot acquire capture device: %v (fix the device and restart)", err)
	case errors.Is(err, capture.ErrNoSelection):
		logger.Fatalf("cannot start scanning: %v", err)
	case err != nil && !errors.Is(err, context.Canceled):
		logger.Fatalf("capture loop stopped: %v", err)
	}

	logger.Println("Scan station stopped")
}

func printResult(logger *log.Logger, res capture.Result) {
	if res.Err != nil {
		logger.Printf("NOT RECORDED token=%q location=%d action=%s: %v",
			res.Submission.Token, res.Submission.LocationID, res.Submission.Action, res.Err)
		return
	}
	logger.Printf("recorded token=%q location=%d action=%s id=%d at=%s",
		res.Submission.Token, res.Submission.LocationID, res.Submission.Action,
		res.Receipt.ID, res.Receipt.OccurredAt)
}
