package efficiency

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/norm"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHorseRecord builds a horse unit whose km/L works out to distance/litres
func newHorseRecord(t *testing.T, litres string, distance float64) *diesel.Record {
	t.Helper()
	rec, err := diesel.NewRecord("21H", time.Now(), decimal.RequireFromString(litres), decimal.Zero, shared.CurrencyZAR)
	require.NoError(t, err)
	rec.PreviousKmReading = 100000
	rec.KmReading = 100000 + distance
	rec.Recompute()
	return rec
}

// newReeferRecord builds a reefer unit whose L/hr works out to litres/hours
func newReeferRecord(t *testing.T, litres string, hours float64) *diesel.Record {
	t.Helper()
	rec, err := diesel.NewRecord("R05", time.Now(), decimal.RequireFromString(litres), decimal.Zero, shared.CurrencyZAR)
	require.NoError(t, err)
	rec.IsReeferUnit = true
	rec.HoursOperated = hours
	rec.Recompute()
	return rec
}

func TestAnalyzer_Analyze_HorseDefaults(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	tests := []struct {
		name            string
		distance        float64
		expectedStatus  shared.EfficiencyStatus
		requiresDebrief bool
	}{
		{"PoorBelowToleranceBand", 200, shared.EfficiencyStatusPoor, true},
		{"NormalAtExpected", 300, shared.EfficiencyStatusNormal, false},
		{"NormalNearLowerBound", 280, shared.EfficiencyStatusNormal, false},
		{"ExcellentAboveToleranceBand", 360, shared.EfficiencyStatusExcellent, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := newHorseRecord(t, "100", tc.distance)

			res := analyzer.Analyze(rec, nil)

			assert.Equal(t, tc.expectedStatus, res.Status)
			assert.Equal(t, tc.requiresDebrief, res.RequiresDebrief)
			assert.InDelta(t, tc.distance/100, res.Metric, 0.001)
			assert.InDelta(t, norm.DefaultExpectedKmPerLitre, res.Expected, 0.001)
		})
	}
}

func TestAnalyzer_Analyze_ReeferDefaults(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	tests := []struct {
		name           string
		litres         string
		hours          float64
		expectedStatus shared.EfficiencyStatus
	}{
		// Higher consumption is worse: 4.5 L/hr breaches 3.5 +15%
		{"PoorAboveToleranceBand", "45", 10, shared.EfficiencyStatusPoor},
		{"NormalAtExpected", "35", 10, shared.EfficiencyStatusNormal},
		{"ExcellentBelowToleranceBand", "25", 10, shared.EfficiencyStatusExcellent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := newReeferRecord(t, tc.litres, tc.hours)

			res := analyzer.Analyze(rec, nil)

			assert.Equal(t, tc.expectedStatus, res.Status)
			assert.InDelta(t, norm.DefaultLitresPerHour, res.Expected, 0.001)
		})
	}
}

func TestAnalyzer_Analyze_FleetNormOverridesDefaults(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	n, err := norm.New("21H", 4.0, 0, 10)
	require.NoError(t, err)

	// 3.5 km/L is fine against the default norm but poor against 4.0 -10%
	rec := newHorseRecord(t, "100", 350)
	res := analyzer.Analyze(rec, n)

	assert.Equal(t, shared.EfficiencyStatusPoor, res.Status)
	assert.InDelta(t, 4.0, res.Expected, 0.001)
	assert.True(t, res.RequiresDebrief)
	assert.Less(t, res.VarianceRatio, 0.0)
}

func TestAnalyzer_Analyze_DebriefedRecordNeedsNoDebrief(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	rec := newHorseRecord(t, "100", 200)
	require.NoError(t, rec.ApplyDebrief(time.Now(), "D. Erasmus", "route through the pass"))

	res := analyzer.Analyze(rec, nil)

	assert.Equal(t, shared.EfficiencyStatusPoor, res.Status)
	assert.False(t, res.RequiresDebrief)
}
