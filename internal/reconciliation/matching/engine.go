// Package matching pairs imported fuel-card transactions with internal
// diesel records using date, litres, fleet, and driver criteria.
package matching

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/fuelcard"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// minLitresWindow is the floor of the litres tolerance; the window widens to
// 5% of the transaction volume for large fills.
var minLitresWindow = decimal.NewFromInt(5)

var litresWindowFraction = decimal.RequireFromString("0.05")

// Engine classifies fuel-card transactions against the current diesel record
// population. It is pure and deterministic: identical inputs always yield
// identical classifications, and it persists nothing.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Reconcile classifies each transaction in place and returns the slice.
// Exactly one surviving candidate reconciles the transaction; zero leaves it
// unmatched; more than one marks it pending for manual resolution. There is
// no automatic tie-break between ambiguous candidates. Transactions already
// reconciled are returned untouched.
func (e *Engine) Reconcile(transactions []*fuelcard.Transaction, candidates []*diesel.Record) []*fuelcard.Transaction {
	for _, txn := range transactions {
		if txn.Status == shared.ReconcileStatusReconciled {
			continue
		}

		matched := e.matchCandidates(txn, candidates)

		switch len(matched) {
		case 1:
			if err := txn.MarkReconciled(matched[0].ID); err != nil {
				e.logger.Warn("Skipping reconcile on immutable transaction",
					"transaction_id", txn.ID.String(), "error", err)
				continue
			}
			e.logger.Info("Transaction reconciled",
				"transaction_id", txn.ID.String(),
				"record_id", matched[0].ID.String(),
			)
		case 0:
			txn.MarkUnmatched()
		default:
			txn.MarkPending()
			e.logger.Info("Ambiguous match left for manual resolution",
				"transaction_id", txn.ID.String(),
				"candidate_count", len(matched),
			)
		}
	}

	return transactions
}

// matchCandidates applies the narrowing criteria in order: same date and
// litres window, then fleet number, then driver name.
func (e *Engine) matchCandidates(txn *fuelcard.Transaction, candidates []*diesel.Record) []*diesel.Record {
	window := decimal.Max(minLitresWindow, txn.Litres.Mul(litresWindowFraction))

	var matched []*diesel.Record
	for _, rec := range candidates {
		if !sameDay(rec.Date, txn.Date) {
			continue
		}
		if rec.LitresFilled.Sub(txn.Litres).Abs().GreaterThanOrEqual(window) {
			continue
		}
		matched = append(matched, rec)
	}

	if txn.FleetNumber != "" {
		matched = filter(matched, func(rec *diesel.Record) bool {
			return rec.FleetNumber == txn.FleetNumber
		})
	}

	if txn.DriverName != "" {
		txnDriver := strings.ToLower(txn.DriverName)
		matched = filter(matched, func(rec *diesel.Record) bool {
			recDriver := strings.ToLower(rec.DriverName)
			if recDriver == "" {
				return false
			}
			return strings.Contains(recDriver, txnDriver) || strings.Contains(txnDriver, recDriver)
		})
	}

	return matched
}

// sameDay compares calendar days, ignoring the time-of-day component that
// card providers report inconsistently
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func filter(records []*diesel.Record, keep func(*diesel.Record) bool) []*diesel.Record {
	out := records[:0]
	for _, rec := range records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
