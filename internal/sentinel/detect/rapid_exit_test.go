package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pump-sentinel-sol/internal/sentinel/state"
)

func sniperSeries(base time.Time, points []struct {
	offsetSec int
	pct       float64
}) *state.TokenState {
	st := &state.TokenState{Address: "token", Holders: state.NewHolderTable()}
	for _, p := range points {
		st.History = append(st.History, state.MetricSample{
			Timestamp:        base.Add(time.Duration(p.offsetSec) * time.Second),
			SniperHoldingPct: p.pct,
		})
	}
	return st
}

func TestSniperRapidExit_DropWithinWindow(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	// 9% -> 2.5% within 90s, still low at the end
	st := sniperSeries(base, []struct {
		offsetSec int
		pct       float64
	}{
		{0, 9.0},
		{30, 9.0},
		{90, 2.5},
		{150, 2.5},
	})

	assert.True(t, d.SniperRapidExit(st))
}

func TestSniperRapidExit_DropTooLate(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	// first drop below v0/3 happens after the 120s window
	st := sniperSeries(base, []struct {
		offsetSec int
		pct       float64
	}{
		{0, 9.0},
		{30, 9.0},
		{130, 2.5},
		{150, 2.5},
	})

	assert.False(t, d.SniperRapidExit(st))
}

func TestSniperRapidExit_RecoveredNotAnExit(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	// drops fast but the position was rebuilt afterwards
	st := sniperSeries(base, []struct {
		offsetSec int
		pct       float64
	}{
		{0, 9.0},
		{60, 2.0},
		{120, 8.5},
	})

	assert.False(t, d.SniperRapidExit(st))
}

func TestSniperRapidExit_NeverPositive(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	st := sniperSeries(base, []struct {
		offsetSec int
		pct       float64
	}{
		{0, 0},
		{60, 0},
		{120, 0},
	})

	assert.False(t, d.SniperRapidExit(st))
}

func TestInsiderRapidExit(t *testing.T) {
	d := NewDetector(DefaultParams())
	base := time.Now()

	st := &state.TokenState{Address: "token", Holders: state.NewHolderTable()}
	for i, pct := range []float64{6.0, 6.0, 1.5, 1.5} {
		st.History = append(st.History, state.MetricSample{
			Timestamp:         base.Add(time.Duration(i*30) * time.Second),
			InsiderHoldingPct: pct,
		})
	}

	assert.True(t, d.InsiderRapidExit(st))
	assert.False(t, d.SniperRapidExit(st))
}
