package components

import (
	"context"
	"errors"
	"testing"

	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/fuelcard"
	"github.com/fleet-diesel-ledger/internal/domain/norm"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/reconciliation/efficiency"
)

type MockNormRepo struct {
	mock.Mock
}

func (m *MockNormRepo) GetByFleetNumber(ctx context.Context, fleetNumber string) (*norm.Norm, error) {
	args := m.Called(ctx, fleetNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*norm.Norm), args.Error(1)
}

func (m *MockNormRepo) Upsert(ctx context.Context, n *norm.Norm) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNormRepo) List(ctx context.Context) ([]*norm.Norm, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*norm.Norm), args.Error(1)
}

func (m *MockNormRepo) WithTx(tx pgx.Tx) norm.Repository {
	args := m.Called(tx)
	return args.Get(0).(norm.Repository)
}

func TestRecordCreator_CreateImported(t *testing.T) {
	batch := &shared.ImportBatch{Source: "fuel_card_statement", Actor: "import-processor"}

	t.Run("creates record and transaction", func(t *testing.T) {
		mockDieselRepo := &MockDieselRepo{}
		mockFuelCardRepo := &MockFuelCardRepo{}
		mockNormRepo := &MockNormRepo{}
		row := testRow()

		mockDieselRepo.On("WithTx", mock.Anything).Return(mockDieselRepo)
		mockDieselRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *diesel.Record) bool {
			return r.FleetNumber == "21H" &&
				r.KmReading == 152000.0 &&
				r.LitresFilled.Equal(row.Litres) &&
				r.Notes == "Imported from fuel_card_statement"
		})).Return(nil).Once()

		mockFuelCardRepo.On("WithTx", mock.Anything).Return(mockFuelCardRepo)
		mockFuelCardRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *fuelcard.Transaction) bool {
			return txn.CardNumber == "CARD-9911" &&
				txn.FleetNumber == "21H" &&
				txn.Status == shared.ReconcileStatusUnmatched
		})).Return(nil).Once()

		mockNormRepo.On("GetByFleetNumber", mock.Anything, "21H").Return(nil, nil).Once()

		creator := NewRecordCreator(mockDieselRepo, mockFuelCardRepo, mockNormRepo, efficiency.NewAnalyzer(slog.Default()), slog.Default())
		record, txn, err := creator.CreateImported(context.Background(), nil, batch, row)

		require.NoError(t, err)
		require.NotNil(t, record)
		require.NotNil(t, txn)
		assert.Equal(t, record.FleetNumber, txn.FleetNumber)

		mockDieselRepo.AssertExpectations(t)
		mockFuelCardRepo.AssertExpectations(t)
		mockNormRepo.AssertExpectations(t)
	})

	t.Run("record insert failure propagates", func(t *testing.T) {
		mockDieselRepo := &MockDieselRepo{}
		mockFuelCardRepo := &MockFuelCardRepo{}
		mockNormRepo := &MockNormRepo{}

		mockDieselRepo.On("WithTx", mock.Anything).Return(mockDieselRepo)
		mockDieselRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed")).Once()

		creator := NewRecordCreator(mockDieselRepo, mockFuelCardRepo, mockNormRepo, efficiency.NewAnalyzer(slog.Default()), slog.Default())
		record, txn, err := creator.CreateImported(context.Background(), nil, batch, testRow())

		assert.Error(t, err)
		assert.Nil(t, record)
		assert.Nil(t, txn)
		mockDieselRepo.AssertExpectations(t)
	})

	t.Run("norm lookup failure falls back to defaults", func(t *testing.T) {
		mockDieselRepo := &MockDieselRepo{}
		mockFuelCardRepo := &MockFuelCardRepo{}
		mockNormRepo := &MockNormRepo{}

		mockDieselRepo.On("WithTx", mock.Anything).Return(mockDieselRepo)
		mockDieselRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		mockFuelCardRepo.On("WithTx", mock.Anything).Return(mockFuelCardRepo)
		mockFuelCardRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		mockNormRepo.On("GetByFleetNumber", mock.Anything, "21H").Return(nil, errors.New("timeout")).Once()

		creator := NewRecordCreator(mockDieselRepo, mockFuelCardRepo, mockNormRepo, efficiency.NewAnalyzer(slog.Default()), slog.Default())
		record, txn, err := creator.CreateImported(context.Background(), nil, batch, testRow())

		require.NoError(t, err)
		assert.NotNil(t, record)
		assert.NotNil(t, txn)
		mockNormRepo.AssertExpectations(t)
	})
}
