package matching

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/fuelcard"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCandidate(t *testing.T, fleet string, date time.Time, litres string, driver string) *diesel.Record {
	t.Helper()
	rec, err := diesel.NewRecord(fleet, date, decimal.RequireFromString(litres), decimal.Zero, shared.CurrencyZAR)
	require.NoError(t, err)
	rec.DriverName = driver
	return rec
}

func newCardTxn(t *testing.T, fleet string, date time.Time, litres string, driver string) *fuelcard.Transaction {
	t.Helper()
	txn, err := fuelcard.NewTransaction(uuid.New(), "CARD-1001", fleet, date, decimal.RequireFromString(litres), shared.CurrencyZAR)
	require.NoError(t, err)
	txn.DriverName = driver
	return txn
}

func TestEngine_Reconcile(t *testing.T) {
	engine := NewEngine(testLogger())
	day := time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC)

	t.Run("SingleCandidateReconciles", func(t *testing.T) {
		rec := newCandidate(t, "21H", day, "450.5", "J. Mokoena")
		txn := newCardTxn(t, "21H", day.Add(6*time.Hour), "452", "Mokoena")

		engine.Reconcile([]*fuelcard.Transaction{txn}, []*diesel.Record{rec})

		assert.Equal(t, shared.ReconcileStatusReconciled, txn.Status)
		require.NotNil(t, txn.MatchedRecordID)
		assert.Equal(t, rec.ID, *txn.MatchedRecordID)
	})

	t.Run("NoCandidateLeavesUnmatched", func(t *testing.T) {
		rec := newCandidate(t, "21H", day.AddDate(0, 0, 1), "450.5", "")
		txn := newCardTxn(t, "21H", day, "450.5", "")

		engine.Reconcile([]*fuelcard.Transaction{txn}, []*diesel.Record{rec})

		assert.Equal(t, shared.ReconcileStatusUnmatched, txn.Status)
		assert.Nil(t, txn.MatchedRecordID)
	})

	t.Run("AmbiguousCandidatesMarkPending", func(t *testing.T) {
		recA := newCandidate(t, "21H", day, "100", "")
		recB := newCandidate(t, "21H", day, "102", "")
		txn := newCardTxn(t, "21H", day, "101", "")

		engine.Reconcile([]*fuelcard.Transaction{txn}, []*diesel.Record{recA, recB})

		assert.Equal(t, shared.ReconcileStatusPending, txn.Status)
		assert.Nil(t, txn.MatchedRecordID)
	})

	t.Run("FleetNumberNarrowsAmbiguity", func(t *testing.T) {
		recA := newCandidate(t, "21H", day, "100", "")
		recB := newCandidate(t, "22H", day, "100", "")
		txn := newCardTxn(t, "22H", day, "100", "")

		engine.Reconcile([]*fuelcard.Transaction{txn}, []*diesel.Record{recA, recB})

		assert.Equal(t, shared.ReconcileStatusReconciled, txn.Status)
		require.NotNil(t, txn.MatchedRecordID)
		assert.Equal(t, recB.ID, *txn.MatchedRecordID)
	})

	t.Run("DriverSubstringMatchesBothDirections", func(t *testing.T) {
		recA := newCandidate(t, "21H", day, "100", "Jan van Rooyen")
		recB := newCandidate(t, "21H", day, "100", "P. Dlamini")
		txn := newCardTxn(t, "21H", day, "100", "VAN ROOYEN")

		engine.Reconcile([]*fuelcard.Transaction{txn}, []*diesel.Record{recA, recB})

		assert.Equal(t, shared.ReconcileStatusReconciled, txn.Status)
		require.NotNil(t, txn.MatchedRecordID)
		assert.Equal(t, recA.ID, *txn.MatchedRecordID)
	})

	t.Run("LitresWindowWidensForLargeFills", func(t *testing.T) {
		// 5% of 400 litres gives a 20 litre window, wider than the floor
		rec := newCandidate(t, "21H", day, "415", "")
		txn := newCardTxn(t, "21H", day, "400", "")

		engine.Reconcile([]*fuelcard.Transaction{txn}, []*diesel.Record{rec})

		assert.Equal(t, shared.ReconcileStatusReconciled, txn.Status)
	})

	t.Run("LitresOutsideWindowUnmatched", func(t *testing.T) {
		rec := newCandidate(t, "21H", day, "56", "")
		txn := newCardTxn(t, "21H", day, "50", "")

		engine.Reconcile([]*fuelcard.Transaction{txn}, []*diesel.Record{rec})

		assert.Equal(t, shared.ReconcileStatusUnmatched, txn.Status)
	})

	t.Run("ReconciledTransactionUntouched", func(t *testing.T) {
		rec := newCandidate(t, "21H", day, "100", "")
		other := uuid.New()
		txn := newCardTxn(t, "21H", day, "100", "")
		require.NoError(t, txn.MarkReconciled(other))

		engine.Reconcile([]*fuelcard.Transaction{txn}, []*diesel.Record{rec})

		assert.Equal(t, shared.ReconcileStatusReconciled, txn.Status)
		assert.Equal(t, other, *txn.MatchedRecordID)
	})
}

func TestEngine_Reconcile_Deterministic(t *testing.T) {
	engine := NewEngine(testLogger())
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	candidates := []*diesel.Record{
		newCandidate(t, "21H", day, "450", "Mokoena"),
		newCandidate(t, "22H", day, "300", "Dlamini"),
		newCandidate(t, "23H", day, "300", ""),
	}

	build := func() []*fuelcard.Transaction {
		return []*fuelcard.Transaction{
			newCardTxn(t, "21H", day, "451", ""),
			newCardTxn(t, "", day, "300", ""),
			newCardTxn(t, "24H", day, "120", ""),
		}
	}

	first := engine.Reconcile(build(), candidates)
	second := engine.Reconcile(build(), candidates)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Status, second[i].Status, "classification %d must be stable", i)
	}
	assert.Equal(t, shared.ReconcileStatusReconciled, first[0].Status)
	assert.Equal(t, shared.ReconcileStatusPending, first[1].Status)
	assert.Equal(t, shared.ReconcileStatusUnmatched, first[2].Status)
}
