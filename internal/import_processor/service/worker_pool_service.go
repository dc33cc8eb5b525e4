package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// WorkerPoolProcessingService implements the ProcessingService interface
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	// Create a new worker pool with the specified size
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// ProcessBatch submits an import batch to the worker pool for processing.
func (s *WorkerPoolProcessingService) ProcessBatch(ctx context.Context, batch *shared.ImportBatch) error {
	logger := s.logger
	if batch.CorrelationID != "" {
		logger = s.logger.With("correlation_id", batch.CorrelationID)
	}

	logger.Info("Submitting import batch to worker pool",
		"batch_id", batch.BatchID.String(),
		"rows", len(batch.Rows),
	)

	// Create a channel to receive the result of the batch processing
	resultChan := make(chan error, 1)

	// Store the result channel in the result map
	batchID := batch.BatchID.String()
	s.mu.Lock()
	s.results[batchID] = resultChan
	s.mu.Unlock()

	// Create a copy of the batch to avoid data races
	batchCopy := *batch

	// Submit the task to the worker pool
	err := s.pool.Submit(func() {
		// Process the batch using the base service
		err := s.baseService.ProcessBatch(ctx, &batchCopy)

		// Send the result to the channel
		resultChan <- err

		// Remove the result channel from the map
		s.mu.Lock()
		delete(s.results, batchID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		// If we couldn't submit the task to the pool, remove the result channel
		s.mu.Lock()
		delete(s.results, batchID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit import batch to worker pool",
			"batch_id", batch.BatchID.String(),
			"error", err,
		)
		return err
	}

	// Wait for the result from the worker
	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
