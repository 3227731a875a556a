package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrSyncNotConfigured is returned when no remote store is set up
var ErrSyncNotConfigured = errors.New("remote sync not configured")

// RemotePusher sends records to the remote store. It returns the ids the
// remote acknowledged; only those are marked synced.
type RemotePusher interface {
	Push(ctx context.Context, records []domain.Record) ([]uuid.UUID, error)
}

// RemoteFetcher reads every record back from the remote store. Pushers
// that implement it can be pulled from.
type RemoteFetcher interface {
	Fetch(ctx context.Context) ([]domain.Record, error)
}

// ErrPullNotSupported is returned when the remote store cannot be read back
var ErrPullNotSupported = errors.New("remote sync backend does not support pull")

// SyncConfig holds the batching settings of a push
type SyncConfig struct {
	BatchSize   int // Records per Push call
	Parallelism int // Concurrent Push calls
}

// DefaultSyncConfig returns sensible defaults
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{BatchSize: 50, Parallelism: 4}
}

// PushResult summarizes one push of pending records
type PushResult struct {
	Pending   int      `json:"pending"`
	Confirmed int      `json:"confirmed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// SyncService pushes unsynced transactions to the remote store
type SyncService struct {
	transactions *TransactionService
	pusher       RemotePusher
	logger       zerolog.Logger
	config       SyncConfig
	pushMu       sync.Mutex
}

// NewSyncService creates a new SyncService. A nil pusher disables pushing.
func NewSyncService(transactions *TransactionService, pusher RemotePusher, logger zerolog.Logger, config SyncConfig) *SyncService {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncConfig().BatchSize
	}
	if config.Parallelism <= 0 {
		config.Parallelism = DefaultSyncConfig().Parallelism
	}
	return &SyncService{
		transactions: transactions,
		pusher:       pusher,
		logger:       logger.With().Str("component", "sync").Logger(),
		config:       config,
	}
}

// IsEnabled reports whether a remote store is configured
func (s *SyncService) IsEnabled() bool {
	return s != nil && s.pusher != nil
}

// PushPending sends every unsynced record and marks the acknowledged ones
// synced. A failed batch leaves its records unsynced for the next push.
func (s *SyncService) PushPending(ctx context.Context) (PushResult, error) {
	if !s.IsEnabled() {
		return PushResult{}, ErrSyncNotConfigured
	}
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	pending, err := s.transactions.Unsynced(ctx)
	if err != nil {
		return PushResult{}, fmt.Errorf("list unsynced: %w", err)
	}
	result := PushResult{Pending: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	var (
		mu        sync.Mutex
		confirmed []uuid.UUID
		failures  []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Parallelism)

	for _, batch := range chunk(pending, s.config.BatchSize) {
		g.Go(func() error {
			acked, err := s.pusher.Push(gctx, batch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				result.Failed += len(batch)
				return nil
			}
			ids := acknowledged(batch, acked)
			confirmed = append(confirmed, ids...)
			result.Failed += len(batch) - len(ids)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	n, err := s.transactions.MarkSynced(ctx, confirmed)
	if err != nil {
		return result, err
	}
	result.Confirmed = n
	for _, f := range failures {
		result.Errors = append(result.Errors, f.Error())
	}

	s.logger.Info().
		Int("pending", result.Pending).
		Int("confirmed", result.Confirmed).
		Int("failed", result.Failed).
		Msg("Pushed pending transactions")

	if len(failures) > 0 && result.Confirmed == 0 {
		return result, fmt.Errorf("push failed: %w", errors.Join(failures...))
	}
	return result, nil
}

// acknowledged keeps the acked ids that belong to batch
func acknowledged(batch []domain.Record, acked []uuid.UUID) []uuid.UUID {
	inBatch := make(map[uuid.UUID]bool, len(batch))
	for _, r := range batch {
		inBatch[r.ID()] = true
	}
	out := make([]uuid.UUID, 0, len(acked))
	for _, id := range acked {
		if inBatch[id] {
			out = append(out, id)
			delete(inBatch, id)
		}
	}
	return out
}

func chunk(records []domain.Record, size int) [][]domain.Record {
	var batches [][]domain.Record
	for size < len(records) {
		records, batches = records[size:], append(batches, records[:size:size])
	}
	return append(batches, records)
}

// ConfirmSynced marks records synced on confirmation from an outside collaborator
func (s *SyncService) ConfirmSynced(ctx context.Context, ids []uuid.UUID) (int, error) {
	return s.transactions.MarkSynced(ctx, ids)
}

// Pull reads the remote store and merges it into the local one
func (s *SyncService) Pull(ctx context.Context) (MergeResult, error) {
	if !s.IsEnabled() {
		return MergeResult{}, ErrSyncNotConfigured
	}
	fetcher, ok := s.pusher.(RemoteFetcher)
	if !ok {
		return MergeResult{}, ErrPullNotSupported
	}
	records, err := fetcher.Fetch(ctx)
	if err != nil {
		return MergeResult{}, fmt.Errorf("fetch remote: %w", err)
	}
	return s.MergeRemote(ctx, records)
}

// MergeRemote applies records read back from the remote store
func (s *SyncService) MergeRemote(ctx context.Context, records []domain.Record) (MergeResult, error) {
	result, err := s.transactions.MergeRemote(ctx, records)
	if err != nil {
		return result, err
	}
	s.logger.Info().
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("invalid", result.Invalid).
		Msg("Merged remote transactions")
	return result, nil
}

// SyncStatus reports whether sync is configured and how much is waiting
type SyncStatus struct {
	Enabled      bool `json:"enabled"`
	PullCapable  bool `json:"pullCapable"`
	PendingCount int  `json:"pendingCount"`
}

// Status returns the current sync status
func (s *SyncService) Status(ctx context.Context) (SyncStatus, error) {
	pending, err := s.transactions.Unsynced(ctx)
	if err != nil {
		return SyncStatus{}, fmt.Errorf("list unsynced: %w", err)
	}
	status := SyncStatus{Enabled: s.IsEnabled(), PendingCount: len(pending)}
	if status.Enabled {
		_, status.PullCapable = s.pusher.(RemoteFetcher)
	}
	return status, nil
}
