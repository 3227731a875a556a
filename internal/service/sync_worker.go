package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SyncWorker periodically pushes pending transactions to the remote store
type SyncWorker struct {
	syncService *SyncService
	logger      zerolog.Logger
	interval    time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	mu          sync.Mutex
	running     bool
}

// SyncWorkerConfig holds configuration for the sync worker
type SyncWorkerConfig struct {
	Interval time.Duration // How often to push
}

// DefaultSyncWorkerConfig returns sensible defaults
func DefaultSyncWorkerConfig() SyncWorkerConfig {
	return SyncWorkerConfig{Interval: 5 * time.Minute}
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(syncService *SyncService, logger zerolog.Logger, config SyncWorkerConfig) *SyncWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultSyncWorkerConfig().Interval
	}

	return &SyncWorker{
		syncService: syncService,
		logger:      logger.With().Str("component", "sync_worker").Logger(),
		interval:    config.Interval,
	}
}

// Start begins the background push loop. A stopped worker can be started
// again; each run gets its own stop and done channels.
func (w *SyncWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	w.stopCh, w.doneCh = stopCh, doneCh
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Dur("interval", w.interval).
		Msg("Starting sync worker")

	go w.run(ctx, stopCh, doneCh)
}

// Stop gracefully stops the worker and waits for an in-flight push.
// Only the first of concurrent calls closes the current run.
func (w *SyncWorker) Stop() {
	w.mu.Lock()
	stopCh, doneCh := w.stopCh, w.doneCh
	w.stopCh, w.doneCh = nil, nil
	w.mu.Unlock()
	if stopCh == nil {
		return
	}

	w.logger.Info().Msg("Stopping sync worker")
	close(stopCh)
	<-doneCh
	w.logger.Info().Msg("Sync worker stopped")
}

func (w *SyncWorker) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	// Push immediately on startup
	w.push(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			w.push(ctx)
		}
	}
}

func (w *SyncWorker) push(ctx context.Context) {
	startTime := time.Now()
	result, err := w.syncService.PushPending(ctx)
	if errors.Is(err, ErrSyncNotConfigured) {
		return
	}
	if err != nil {
		w.logger.Error().Err(err).Int("pending", result.Pending).Msg("Sync push failed")
		return
	}
	if result.Pending > 0 {
		w.logger.Debug().
			Int("confirmed", result.Confirmed).
			Dur("elapsed", time.Since(startTime)).
			Msg("Completed sync push")
	}
}

// PushNow runs a push outside the schedule
func (w *SyncWorker) PushNow(ctx context.Context) (PushResult, error) {
	w.logger.Debug().Msg("Manual sync push triggered")
	return w.syncService.PushPending(ctx)
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
