package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sentinel-sol/internal/sentinel/protocol"
	"pump-sentinel-sol/internal/sentinel/types"
)

const testToken = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

func statsEvent(kind protocol.EventKind, payload map[string]any) protocol.ClassifiedEvent {
	return protocol.ClassifiedEvent{Kind: kind, Payload: types.FromAny(payload)}
}

func initPayload(extra map[string]any) map[string]any {
	snap := map[string]any{
		"baseTokenSymbol":      "PUMP",
		"baseTokenName":        "Pump Token",
		"basePriceInUsdUi":     0.001,
		"liquidityInUsdUi":     12000.0,
		"marketCapUsdUi":       50000.0,
		"baseTokenTotalSupply": 1_000_000.0,
		"totalHolders":         int64(40),
	}
	for k, v := range extra {
		snap[k] = v
	}
	return map[string]any{"type": "init", "snapshot": snap}
}

func TestStore_FastStatsInit(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(nil)), now)

	st, ok := s.Get(testToken)
	require.True(t, ok)
	assert.Equal(t, "PUMP", st.Symbol)
	assert.Equal(t, "Pump Token", st.Name)
	require.Len(t, st.History, 1)
	assert.Equal(t, 0.001, st.History[0].PriceUsd)
	assert.Equal(t, 12000.0, st.History[0].LiquidityUsd)
	assert.Equal(t, int64(40), st.History[0].TotalHolders)
}

func TestStore_InitResetsWindow(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(nil)), now)
	s.Apply(testToken, statsEvent(protocol.EventMarketStats, map[string]any{
		"type":   "update",
		"update": map[string]any{"totalHolders": int64(55)},
	}), now.Add(time.Second))

	st, _ := s.Get(testToken)
	require.Len(t, st.History, 2)

	// a replayed init must overwrite the window, not extend it
	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(nil)), now.Add(2*time.Second))
	assert.Len(t, st.History, 1)
}

func TestStore_UpdateMergesDelta(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(nil)), now)
	s.Apply(testToken, statsEvent(protocol.EventTokenStats, map[string]any{
		"type":   "update",
		"update": map[string]any{"basePriceInUsdUi": 0.002},
	}), now.Add(time.Second))

	st, _ := s.Get(testToken)
	latest := st.Latest()
	assert.Equal(t, 0.002, latest.PriceUsd)
	// untouched fields carry over from the previous sample
	assert.Equal(t, 12000.0, latest.LiquidityUsd)
	assert.Equal(t, int64(40), latest.TotalHolders)
	assert.Equal(t, 1_000_000.0, latest.TotalSupply)
}

func TestStore_HistoryPruning(t *testing.T) {
	s := NewStore(Config{RetentionSeconds: 300}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(nil)), now)
	s.Apply(testToken, statsEvent(protocol.EventMarketStats, map[string]any{
		"type":   "update",
		"update": map[string]any{"totalHolders": int64(60)},
	}), now.Add(100*time.Second))

	st, _ := s.Get(testToken)
	require.Len(t, st.History, 2)

	// a sample 400s after the first pushes the init sample out of the window
	s.Apply(testToken, statsEvent(protocol.EventMarketStats, map[string]any{
		"type":   "update",
		"update": map[string]any{"totalHolders": int64(70)},
	}), now.Add(400*time.Second))

	require.Len(t, st.History, 2)
	assert.Equal(t, int64(60), st.History[0].TotalHolders)
	assert.Equal(t, int64(70), st.History[1].TotalHolders)
}

func gazeUpdate(gaze map[string]any) map[string]any {
	return map[string]any{
		"type":   "update",
		"update": map[string]any{"pumpFunGaze": gaze},
	}
}

func TestStore_DevExitLatch(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(map[string]any{
		"pumpFunGaze": map[string]any{"devHoldingPcnt": 5.0},
	})), now)

	st, _ := s.Get(testToken)
	assert.False(t, st.DevExited)

	s.Apply(testToken, statsEvent(protocol.EventMarketStats,
		gazeUpdate(map[string]any{"devHoldingPcnt": 1.0})), now.Add(time.Second))
	assert.True(t, st.DevExited)

	// a later re-entry never clears the latch
	s.Apply(testToken, statsEvent(protocol.EventMarketStats,
		gazeUpdate(map[string]any{"devHoldingPcnt": 6.0})), now.Add(2*time.Second))
	assert.True(t, st.DevExited)
	assert.Equal(t, 6.0, st.MaxDevPct)
}

func TestStore_BundlerHighWaterSplit(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(map[string]any{
		"pumpFunGaze": map[string]any{"devHoldingPcnt": 5.0, "bundlesHoldingPcnt": 40.0},
	})), now)
	s.Apply(testToken, statsEvent(protocol.EventMarketStats,
		gazeUpdate(map[string]any{"devHoldingPcnt": 1.0, "bundlesHoldingPcnt": 35.0})), now.Add(time.Second))

	st, _ := s.Get(testToken)
	require.True(t, st.DevExited)

	s.Apply(testToken, statsEvent(protocol.EventMarketStats,
		gazeUpdate(map[string]any{"bundlesHoldingPcnt": 20.0})), now.Add(2*time.Second))

	assert.Equal(t, 40.0, st.MaxBundlerPctBeforeDevExit)
	assert.Equal(t, 35.0, st.MaxBundlerPctAfterDevExit)
}

func TestStore_BundlerPctObjectForm(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(map[string]any{
		"pumpFunGaze": map[string]any{
			"bundlesHoldingPcnt": map[string]any{"current": 22.5, "ath": 60.0},
		},
	})), now)

	st, _ := s.Get(testToken)
	assert.Equal(t, 22.5, st.Latest().BundlerHoldingPct)
}

func TestStore_MarketResolution(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)
	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(nil)), now)

	ev := protocol.ClassifiedEvent{
		Kind:      protocol.EventMarketResolution,
		HasStatus: true,
		Status:    protocol.StatusOK,
		Payload: types.FromAny(map[string]any{
			"markets": map[string]any{
				"SOLANA": map[string]any{
					testToken: []any{map[string]any{"marketId": "solana-Mkt111"}},
				},
			},
		}),
	}
	s.Apply(testToken, ev, now.Add(time.Second))

	st, _ := s.Get(testToken)
	assert.Equal(t, "Mkt111", st.MarketID)
	assert.Equal(t, "Mkt111", s.MarketIDOf(testToken))
}

func TestStore_MarketResolutionFailure(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	ev := protocol.ClassifiedEvent{
		Kind:      protocol.EventMarketResolution,
		HasStatus: true,
		Status:    500,
	}
	s.Apply(testToken, ev, now)

	st, _ := s.Get(testToken)
	assert.Equal(t, int64(1), st.ResolutionFailures)
	assert.Empty(t, s.MarketIDOf(testToken))
}

func TestStore_MintMetaSideChannel(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	s.SetMintMeta(types.MintMeta{
		Token:         testToken,
		TotalSupply:   2_000_000,
		MintAuthority: "deployer-wallet",
	})

	// a snapshot without supply falls back to the on-chain value
	s.Apply(testToken, statsEvent(protocol.EventMarketStats, map[string]any{
		"type": "init",
		"snapshot": map[string]any{
			"baseTokenSymbol": "PUMP",
			"totalHolders":    int64(10),
		},
	}), now)

	st, _ := s.Get(testToken)
	assert.Equal(t, 2_000_000.0, st.Latest().TotalSupply)
}

func TestStore_RemoveClearsEverything(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(nil)), now)
	s.SetDeployer(testToken, "deployer-wallet")
	require.Equal(t, 1, s.Size())

	s.Remove(testToken)
	assert.Equal(t, 0, s.Size())
	_, ok := s.Get(testToken)
	assert.False(t, ok)

	// a fresh track after removal starts from a clean state
	st := s.GetOrCreate(testToken, now.Add(time.Minute))
	assert.Empty(t, st.History)
}

func TestStore_LateEventsAfterRemoveDropped(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(nil)), now)
	s.Remove(testToken)

	// a frame still in flight when the worker was torn down must not
	// resurrect the state
	s.Apply(testToken, statsEvent(protocol.EventMarketStats, initPayload(nil)), now.Add(time.Second))

	assert.Equal(t, 0, s.Size())
	_, ok := s.Get(testToken)
	assert.False(t, ok)
}

func TestStore_MalformedPayloadsIgnored(t *testing.T) {
	s := NewStore(Config{}, nil)
	now := time.Now()
	s.GetOrCreate(testToken, now)

	s.Apply(testToken, protocol.ClassifiedEvent{
		Kind:    protocol.EventMarketStats,
		Payload: types.Str("not a map"),
	}, now)
	s.Apply(testToken, statsEvent(protocol.EventMarketStats, map[string]any{"type": "bogus"}), now)
	s.Apply(testToken, statsEvent(protocol.EventTopHolders, map[string]any{"type": "init"}), now)

	st, _ := s.Get(testToken)
	assert.Empty(t, st.History)
}
