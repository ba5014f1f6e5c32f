package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pump-sentinel-sol/internal/sentinel/state"
)

func snapState(snaps []state.HolderSnapshot) *state.TokenState {
	return &state.TokenState{
		Address:         "token",
		Holders:         state.NewHolderTable(),
		SnapshotHistory: snaps,
		History:         []state.MetricSample{{Timestamp: time.Now()}},
	}
}

func makeSnaps(n int, percentages []float64, top3Snipers int) []state.HolderSnapshot {
	base := time.Now()
	snaps := make([]state.HolderSnapshot, n)
	for i := range snaps {
		snaps[i] = state.HolderSnapshot{
			Timestamp:       base.Add(time.Duration(i*15) * time.Second),
			Percentages:     append([]float64(nil), percentages...),
			Top3SniperCount: top3Snipers,
		}
	}
	return snaps
}

func TestStableSniperPeriods_FrozenLargeHolders(t *testing.T) {
	d := NewDetector(DefaultParams())

	// a 5% holder that never moves across 25 snapshots
	st := snapState(makeSnaps(25, []float64{5.0, 4.0, 3.5}, 0))

	hit, checks := d.HolderPatternSuspicious(st)
	assert.True(t, hit)
	assert.True(t, checks["stable_sniper"])
	assert.False(t, checks["high_sniper_top3"])
}

func TestStableSniperPeriods_NaturalChurn(t *testing.T) {
	d := NewDetector(DefaultParams())

	// top holders move every interval, as organic buying does
	base := time.Now()
	snaps := make([]state.HolderSnapshot, 25)
	for i := range snaps {
		shift := float64(i%2) * 0.5
		snaps[i] = state.HolderSnapshot{
			Timestamp:   base.Add(time.Duration(i*15) * time.Second),
			Percentages: []float64{5.0 + shift, 4.0 + shift, 3.5 + shift},
		}
	}

	hit, checks := d.HolderPatternSuspicious(snapState(snaps))
	assert.False(t, checks["stable_sniper"])
	assert.False(t, hit)
}

func TestStableSniperPeriods_SingleLargeHolderNotEnough(t *testing.T) {
	d := NewDetector(DefaultParams())

	// one frozen 5% holder flanked by small ones: a lone whale is not
	// a sniper cohort, the period needs at least two large top-3 slots
	st := snapState(makeSnaps(25, []float64{5.0, 1.0, 1.0}, 0))

	_, checks := d.HolderPatternSuspicious(st)
	assert.False(t, checks["stable_sniper"])
}

func TestStableSniperPeriods_ThresholdOverFullWindow(t *testing.T) {
	d := NewDetector(DefaultParams())

	// a short frozen stretch at the end of an otherwise small-holder
	// window: 5 stable periods out of 40 snapshots is below 40*0.25,
	// even though every interval that has large holders is stable
	base := time.Now()
	snaps := make([]state.HolderSnapshot, 40)
	for i := range snaps {
		pcts := []float64{1.0, 0.8, 0.5}
		if i >= 34 {
			pcts = []float64{5.0, 4.0, 3.5}
		}
		snaps[i] = state.HolderSnapshot{
			Timestamp:   base.Add(time.Duration(i*15) * time.Second),
			Percentages: pcts,
		}
	}

	_, checks := d.HolderPatternSuspicious(snapState(snaps))
	assert.False(t, checks["stable_sniper"])
}

func TestStableSniperPeriods_NoLargeHolders(t *testing.T) {
	d := NewDetector(DefaultParams())

	// frozen but tiny positions never count as stable sniper periods
	st := snapState(makeSnaps(25, []float64{1.0, 0.8, 0.5}, 0))

	_, checks := d.HolderPatternSuspicious(st)
	assert.False(t, checks["stable_sniper"])
}

func TestHighSniperTop3(t *testing.T) {
	d := NewDetector(DefaultParams())

	// 2 of the top-3 flagged as snipers in every snapshot; keep the
	// holders churning so the stability check stays quiet
	base := time.Now()
	snaps := make([]state.HolderSnapshot, 25)
	for i := range snaps {
		shift := float64(i%2) * 0.5
		snaps[i] = state.HolderSnapshot{
			Timestamp:       base.Add(time.Duration(i*15) * time.Second),
			Percentages:     []float64{5.0 + shift, 4.0 + shift, 3.5 + shift},
			Top3SniperCount: 2,
		}
	}

	hit, checks := d.HolderPatternSuspicious(snapState(snaps))
	assert.True(t, hit)
	assert.True(t, checks["high_sniper_top3"])
}

func TestPumpDumpCycles(t *testing.T) {
	d := NewDetector(DefaultParams())

	// top-3 sum oscillating 6 -> 9 -> 6 every other snapshot
	base := time.Now()
	snaps := make([]state.HolderSnapshot, 25)
	for i := range snaps {
		pcts := []float64{2, 2, 2}
		if i%2 == 1 {
			pcts = []float64{3, 3, 3}
		}
		snaps[i] = state.HolderSnapshot{
			Timestamp:   base.Add(time.Duration(i*15) * time.Second),
			Percentages: pcts,
		}
	}

	hit, checks := d.HolderPatternSuspicious(snapState(snaps))
	assert.True(t, hit)
	assert.True(t, checks["pump_dump_cycles"])
}

func TestEarlyVsCurrent_LockedFirstHolder(t *testing.T) {
	d := NewDetector(DefaultParams())

	// first holder sits at ~6.5% early and ~6.0% now: only 0.5pt shed
	base := time.Now()
	snaps := make([]state.HolderSnapshot, 50)
	for i := range snaps {
		pcts := []float64{6.5, 4.0, 3.5}
		if i >= 40 {
			pcts = []float64{6.0, 3.0, 2.0}
		}
		snaps[i] = state.HolderSnapshot{
			Timestamp:   base.Add(time.Duration(i*15) * time.Second),
			Percentages: pcts,
		}
	}

	hit, checks := d.HolderPatternSuspicious(snapState(snaps))
	assert.True(t, hit)
	assert.True(t, checks["early_vs_current"])
}

func TestEarlyVsCurrent_NaturalDilution(t *testing.T) {
	d := NewDetector(DefaultParams())

	// early whales diluted well below the thresholds
	base := time.Now()
	snaps := make([]state.HolderSnapshot, 50)
	for i := range snaps {
		pcts := []float64{6.5, 4.0, 3.5}
		if i >= 40 {
			pcts = []float64{2.0, 1.5, 1.0}
		}
		snaps[i] = state.HolderSnapshot{
			Timestamp:   base.Add(time.Duration(i*15) * time.Second),
			Percentages: pcts,
		}
	}

	_, checks := d.HolderPatternSuspicious(snapState(snaps))
	assert.False(t, checks["early_vs_current"])
}

func TestHolderPattern_TooFewSnapshots(t *testing.T) {
	d := NewDetector(DefaultParams())

	hit, _ := d.HolderPatternSuspicious(snapState(makeSnaps(5, []float64{8, 7, 6}, 3)))
	assert.False(t, hit)
}
