package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pump-sentinel-sol/internal/sentinel/state"
)

func pctSeries(base time.Time, bundler, sniper, insider []float64) *state.TokenState {
	st := &state.TokenState{Address: "token", Holders: state.NewHolderTable()}
	for i := range bundler {
		st.History = append(st.History, state.MetricSample{
			Timestamp:         base.Add(time.Duration(i*30) * time.Second),
			BundlerHoldingPct: bundler[i],
			SniperHoldingPct:  sniper[i],
			InsiderHoldingPct: insider[i],
		})
	}
	return st
}

func TestBundlerSniperSync_ParallelMoves(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	// both cohorts shed ~2 points per step with near-identical magnitude
	st := pctSeries(base,
		[]float64{10, 8, 6},
		[]float64{9, 7.2, 5.4},
		[]float64{0, 0, 0})

	assert.True(t, d.BundlerSniperSync(st))
}

func TestBundlerSniperSync_IndependentMoves(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	// bundlers sell hard while snipers barely move
	st := pctSeries(base,
		[]float64{10, 8, 6},
		[]float64{5, 5.1, 5.0},
		[]float64{0, 0, 0})

	assert.False(t, d.BundlerSniperSync(st))
}

func TestBundlerSniperSync_TooFewSamples(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	st := pctSeries(base,
		[]float64{10, 8},
		[]float64{9, 7.2},
		[]float64{0, 0})

	assert.False(t, d.BundlerSniperSync(st))
}

func TestBundlerSniperSync_SniperAlreadyGone(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	// perfectly synchronized drops, but the sniper position has emptied
	// out: residual noise must not count as sync
	st := pctSeries(base,
		[]float64{1.8, 1.0, 0.2},
		[]float64{1.9, 1.1, 0.3},
		[]float64{0, 0, 0})

	assert.False(t, d.BundlerSniperSync(st))
}

func TestBundlerSniperSync_SniperRapidExitRelaxation(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	// sniper residue just above the hard floor, but the collapse from 9%
	// within the window counts as a rapid exit and suppresses the check
	st := pctSeries(base,
		[]float64{10, 5, 1},
		[]float64{9, 4.5, 0.9},
		[]float64{0, 0, 0})

	assert.False(t, d.BundlerSniperSync(st))
}

func TestSniperInsiderSync_SniperAlreadyGone(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	st := pctSeries(base,
		[]float64{0, 0, 0},
		[]float64{1.9, 1.1, 0.3},
		[]float64{2.0, 1.2, 0.4})

	assert.False(t, d.SniperInsiderSync(st))
}

func TestSniperInsiderSync(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	st := pctSeries(base,
		[]float64{0, 0, 0},
		[]float64{12, 9, 6},
		[]float64{8, 6.2, 4.1})

	assert.True(t, d.SniperInsiderSync(st))
}

func TestBundlerSniperExitSync_BothLeaving(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	st := pctSeries(base,
		[]float64{10, 8, 6},
		[]float64{9, 7.2, 5.4},
		[]float64{0, 0, 0})

	assert.True(t, d.BundlerSniperExitSync(st))
}

func TestBundlerSniperExitSync_SniperAlreadyGone(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	// snipers fully exited: residual noise must not count as sync
	st := pctSeries(base,
		[]float64{10, 8, 6},
		[]float64{1.2, 0.7, 0.3},
		[]float64{0, 0, 0})

	assert.False(t, d.BundlerSniperExitSync(st))
}

func TestBundlerSniperExitSync_BothRising(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	// correlated accumulation is the sync detector's job, not exit sync
	st := pctSeries(base,
		[]float64{6, 8, 10},
		[]float64{5.4, 7.2, 9},
		[]float64{0, 0, 0})

	assert.False(t, d.BundlerSniperExitSync(st))
}
