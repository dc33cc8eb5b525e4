package components

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleet-diesel-ledger/internal/domain/audit"
	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/fuelcard"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/import_processor/service"
	"github.com/fleet-diesel-ledger/internal/reconciliation/matching"
)

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) QueueEntry(ctx context.Context, tx pgx.Tx, entry *audit.Entry) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

func (m *MockAuditRecorder) RecordSummary(ctx context.Context, batch *shared.ImportBatch, summary *shared.ImportSummary) error {
	args := m.Called(ctx, batch, summary)
	return args.Error(0)
}

func newTransaction(t *testing.T, fleetNumber, litres string, date time.Time) *fuelcard.Transaction {
	txn, err := fuelcard.NewTransaction(uuid.New(), "CARD-9911", fleetNumber, date, decimal.RequireFromString(litres), shared.CurrencyZAR)
	require.NoError(t, err)
	return txn
}

func newCandidate(t *testing.T, fleetNumber, litres string, date time.Time) *diesel.Record {
	record, err := diesel.NewRecord(fleetNumber, date, decimal.RequireFromString(litres), decimal.RequireFromString("2350"), shared.CurrencyZAR)
	require.NoError(t, err)
	return record
}

func TestBatchReconciler_SnapshotCandidates(t *testing.T) {
	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	record := newCandidate(t, "21H", "100", day)

	t.Run("loads each day once", func(t *testing.T) {
		mockDieselRepo := &MockDieselRepo{}
		mockDieselRepo.On("ListByDate", mock.Anything, day).Return([]*diesel.Record{record}, nil).Once()

		reconciler := NewBatchReconciler(matching.NewEngine(slog.Default()), mockDieselRepo, &MockFuelCardRepo{}, &MockAuditRecorder{}, slog.Default())

		rows := []*service.ImportedRow{
			{Date: day, FleetNumber: "21H"},
			{Date: day, FleetNumber: "22H"},
		}
		candidates, err := reconciler.SnapshotCandidates(context.Background(), rows)

		require.NoError(t, err)
		assert.Len(t, candidates, 1)
		assert.Equal(t, []*diesel.Record{record}, candidates["2026-01-10"])
		mockDieselRepo.AssertExpectations(t)
	})

	t.Run("lookup error propagates", func(t *testing.T) {
		mockDieselRepo := &MockDieselRepo{}
		mockDieselRepo.On("ListByDate", mock.Anything, day).Return(nil, errors.New("connection refused")).Once()

		reconciler := NewBatchReconciler(matching.NewEngine(slog.Default()), mockDieselRepo, &MockFuelCardRepo{}, &MockAuditRecorder{}, slog.Default())

		_, err := reconciler.SnapshotCandidates(context.Background(), []*service.ImportedRow{{Date: day}})
		assert.Error(t, err)
	})
}

func TestBatchReconciler_Reconcile(t *testing.T) {
	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	batch := &shared.ImportBatch{BatchID: uuid.New(), Actor: "import-processor"}

	t.Run("classifies and persists batch", func(t *testing.T) {
		record := newCandidate(t, "21H", "100", day)
		matched := newTransaction(t, "21H", "100", day)
		wrongFleet := newTransaction(t, "22H", "100", day)
		wrongLitres := newTransaction(t, "21H", "50", day)

		mockFuelCardRepo := &MockFuelCardRepo{}
		mockFuelCardRepo.On("WithTx", mock.Anything).Return(mockFuelCardRepo)
		mockFuelCardRepo.On("Update", mock.Anything, mock.AnythingOfType("*fuelcard.Transaction")).Return(nil).Times(3)

		mockAuditRecorder := &MockAuditRecorder{}
		mockAuditRecorder.On("QueueEntry", mock.Anything, mock.Anything, mock.AnythingOfType("*audit.Entry")).Return(nil).Times(3)

		reconciler := NewBatchReconciler(matching.NewEngine(slog.Default()), &MockDieselRepo{}, mockFuelCardRepo, mockAuditRecorder, slog.Default())

		counts, err := reconciler.Reconcile(context.Background(), nil, batch,
			[]*fuelcard.Transaction{matched, wrongFleet, wrongLitres},
			map[string][]*diesel.Record{"2026-01-10": {record}})

		require.NoError(t, err)
		assert.Equal(t, 1, counts.Reconciled)
		assert.Equal(t, 0, counts.Pending)
		assert.Equal(t, 2, counts.Unmatched)

		assert.Equal(t, shared.ReconcileStatusReconciled, matched.Status)
		require.NotNil(t, matched.MatchedRecordID)
		assert.Equal(t, record.ID, *matched.MatchedRecordID)
		assert.Equal(t, shared.ReconcileStatusUnmatched, wrongFleet.Status)
		assert.Equal(t, shared.ReconcileStatusUnmatched, wrongLitres.Status)

		mockFuelCardRepo.AssertExpectations(t)
		mockAuditRecorder.AssertExpectations(t)
	})

	t.Run("two candidates mark transaction pending", func(t *testing.T) {
		candidateA := newCandidate(t, "21H", "100", day)
		candidateB := newCandidate(t, "21H", "102", day)
		txn := newTransaction(t, "21H", "100", day)

		mockFuelCardRepo := &MockFuelCardRepo{}
		mockFuelCardRepo.On("WithTx", mock.Anything).Return(mockFuelCardRepo)
		mockFuelCardRepo.On("Update", mock.Anything, txn).Return(nil).Once()

		mockAuditRecorder := &MockAuditRecorder{}
		mockAuditRecorder.On("QueueEntry", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		reconciler := NewBatchReconciler(matching.NewEngine(slog.Default()), &MockDieselRepo{}, mockFuelCardRepo, mockAuditRecorder, slog.Default())

		counts, err := reconciler.Reconcile(context.Background(), nil, batch,
			[]*fuelcard.Transaction{txn},
			map[string][]*diesel.Record{"2026-01-10": {candidateA, candidateB}})

		require.NoError(t, err)
		assert.Equal(t, 1, counts.Pending)
		assert.Equal(t, shared.ReconcileStatusPending, txn.Status)
	})

	t.Run("update failure propagates", func(t *testing.T) {
		record := newCandidate(t, "21H", "100", day)
		txn := newTransaction(t, "21H", "100", day)

		mockFuelCardRepo := &MockFuelCardRepo{}
		mockFuelCardRepo.On("WithTx", mock.Anything).Return(mockFuelCardRepo)
		mockFuelCardRepo.On("Update", mock.Anything, txn).Return(errors.New("update failed")).Once()

		reconciler := NewBatchReconciler(matching.NewEngine(slog.Default()), &MockDieselRepo{}, mockFuelCardRepo, &MockAuditRecorder{}, slog.Default())

		_, err := reconciler.Reconcile(context.Background(), nil, batch,
			[]*fuelcard.Transaction{txn},
			map[string][]*diesel.Record{"2026-01-10": {record}})

		assert.Error(t, err)
		mockFuelCardRepo.AssertExpectations(t)
	})
}
