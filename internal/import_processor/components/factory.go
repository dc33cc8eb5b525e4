package components

import (
	"log/slog"

	"github.com/fleet-diesel-ledger/internal/config"
	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/fuelcard"
	"github.com/fleet-diesel-ledger/internal/domain/norm"
	"github.com/fleet-diesel-ledger/internal/domain/outbox"
	"github.com/fleet-diesel-ledger/internal/import_processor/service"
	"github.com/fleet-diesel-ledger/internal/platform/persistence"
	"github.com/fleet-diesel-ledger/internal/reconciliation/efficiency"
	"github.com/fleet-diesel-ledger/internal/reconciliation/matching"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	dieselRepo diesel.Repository,
	fuelCardRepo fuelcard.Repository,
	normRepo norm.Repository,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	validator := NewRowValidator(logger)
	duplicateChecker := NewDuplicateChecker(dieselRepo, fuelCardRepo, logger)
	analyzer := efficiency.NewAnalyzer(logger)
	recordCreator := NewRecordCreator(dieselRepo, fuelCardRepo, normRepo, analyzer, logger)
	auditRecorder := NewAuditRecorder(outboxRepo, logger)
	engine := matching.NewEngine(logger)
	reconciler := NewBatchReconciler(engine, dieselRepo, fuelCardRepo, auditRecorder, logger)

	baseService := service.NewProcessingService(
		pgDB,
		validator,
		duplicateChecker,
		recordCreator,
		reconciler,
		auditRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
