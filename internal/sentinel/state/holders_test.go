package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sentinel-sol/internal/sentinel/types"
)

func makeRow(wallet string, balance types.Value, insider, bundler bool) types.Value {
	row := make([]types.Value, 16)
	for i := range row {
		row[i] = types.Null()
	}
	row[rowIdxWallet] = types.Str(wallet)
	row[rowIdxBalance] = balance
	row[rowIdxInsider] = types.Bool(insider)
	row[rowIdxBundler] = types.Bool(bundler)
	return types.Array(row...)
}

func TestHolderTable_FirstRowIsPool(t *testing.T) {
	tbl := NewHolderTable()
	now := time.Now()

	tbl.ApplyInit([]types.Value{
		makeRow("pool-vault", types.Float(800), false, false),
		makeRow("wallet-a", types.Float(100), false, false),
	}, now)
	tbl.Recompute(1000, nil, 30.0)

	assert.Equal(t, "pool-vault", tbl.PoolAddress())
	pct, ok := tbl.PoolPct()
	require.True(t, ok)
	assert.InDelta(t, 80.0, pct, 1e-9)
}

func TestHolderTable_PoolStickiness(t *testing.T) {
	tbl := NewHolderTable()
	now := time.Now()

	tbl.ApplyInit([]types.Value{
		makeRow("pool-vault", types.Float(500), false, false),
		makeRow("wallet-a", types.Float(100), false, false),
	}, now)
	tbl.Recompute(1000, nil, 30.0)

	// a whale outgrowing the pool must not steal the pool slot
	tbl.Upsert(makeRow("wallet-a", types.Float(600), false, false), now.Add(time.Second))
	tbl.Recompute(1000, nil, 30.0)

	assert.Equal(t, "pool-vault", tbl.PoolAddress())
}

func TestHolderTable_AllowListPool(t *testing.T) {
	tbl := NewHolderTable()
	now := time.Now()

	// init path skipped, rows arrive via updates only
	tbl.Upsert(makeRow("wallet-a", types.Float(100), false, false), now)
	tbl.Upsert(makeRow("amm-program", types.Float(50), false, false), now)
	tbl.Recompute(1000, map[string]struct{}{"amm-program": {}}, 30.0)

	assert.Equal(t, "amm-program", tbl.PoolAddress())
}

func TestHolderTable_SingleLargeHolderFallback(t *testing.T) {
	tbl := NewHolderTable()
	now := time.Now()

	tbl.Upsert(makeRow("wallet-a", types.Float(400), false, false), now)
	tbl.Upsert(makeRow("wallet-b", types.Float(50), false, false), now)
	tbl.Recompute(1000, nil, 30.0)

	// 40% of supply with no known pool: treat it as the pool
	assert.Equal(t, "wallet-a", tbl.PoolAddress())

	tbl = NewHolderTable()
	tbl.Upsert(makeRow("wallet-a", types.Float(200), false, false), now)
	tbl.Recompute(1000, nil, 30.0)
	assert.Empty(t, tbl.PoolAddress())
}

func TestHolderTable_StringBalances(t *testing.T) {
	tbl := NewHolderTable()
	now := time.Now()

	tbl.Upsert(makeRow("wallet-a", types.Str("123.5"), false, false), now)
	tbl.Recompute(1000, nil, 30.0)

	recs := tbl.Sorted()
	require.Len(t, recs, 1)
	assert.Equal(t, 123.5, recs[0].Balance)
	assert.InDelta(t, 12.35, recs[0].PercentOfSupply, 1e-9)
}

func TestHolderTable_UpsertAndDelete(t *testing.T) {
	tbl := NewHolderTable()
	now := time.Now()

	require.True(t, tbl.Upsert(makeRow("wallet-a", types.Float(10), false, false), now))
	assert.Equal(t, 1, tbl.Len())

	// rows without a wallet are rejected
	blank := make([]types.Value, 16)
	for i := range blank {
		blank[i] = types.Null()
	}
	assert.False(t, tbl.Upsert(types.Array(blank...), now))

	tbl.Delete(makeRow("wallet-a", types.Null(), false, false))
	assert.Equal(t, 0, tbl.Len())
}

func TestHolderTable_CleanTopPercentages(t *testing.T) {
	tbl := NewHolderTable()
	now := time.Now()

	tbl.ApplyInit([]types.Value{
		makeRow("pool-vault", types.Float(500), false, false),
		makeRow("dev-wallet", types.Float(90), false, false),
		makeRow("bundler-1", types.Float(80), false, true),
		makeRow("insider-1", types.Float(70), true, false),
		makeRow("wallet-a", types.Float(60), false, false),
		makeRow("wallet-b", types.Float(40), false, false),
	}, now)
	tbl.Recompute(1000, nil, 30.0)

	pcts := tbl.CleanTopPercentages("dev-wallet", 10)
	require.Len(t, pcts, 2)
	assert.InDelta(t, 6.0, pcts[0], 1e-9)
	assert.InDelta(t, 4.0, pcts[1], 1e-9)

	assert.Equal(t, 2, tbl.CleanHolderCount("dev-wallet"))
	assert.InDelta(t, 6.0, tbl.TopCleanHolderPct("dev-wallet"), 1e-9)

	// without a known deployer the dev wallet counts as clean
	assert.Equal(t, 3, tbl.CleanHolderCount(""))
}

func TestHolderTable_InitRebuildsTable(t *testing.T) {
	tbl := NewHolderTable()
	now := time.Now()

	tbl.ApplyInit([]types.Value{
		makeRow("pool-vault", types.Float(500), false, false),
		makeRow("wallet-a", types.Float(100), false, false),
	}, now)
	tbl.ApplyInit([]types.Value{
		makeRow("pool-vault", types.Float(500), false, false),
		makeRow("wallet-b", types.Float(100), false, false),
	}, now.Add(time.Second))

	assert.Equal(t, 2, tbl.Len())
	recs := tbl.Sorted()
	for _, rec := range recs {
		assert.NotEqual(t, "wallet-a", rec.Wallet)
	}
}
