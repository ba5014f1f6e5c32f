package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sentinel-sol/internal/sentinel/alert"
	"pump-sentinel-sol/internal/sentinel/detect"
	"pump-sentinel-sol/internal/sentinel/state"
	"pump-sentinel-sol/internal/sentinel/types"
)

const (
	validTokenA = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	validTokenB = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	validTokenC = "So11111111111111111111111111111111111111112"
)

type fakeSink struct {
	mu    sync.Mutex
	tasks []*types.AlertTask
}

func (f *fakeSink) EnqueueAlert(task *types.AlertTask) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
}

type fakeSubscriber struct {
	mu        sync.Mutex
	tracked   []string
	untracked []string
}

func (f *fakeSubscriber) TrackToken(req types.TrackRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = append(f.tracked, req.Token)
}

func (f *fakeSubscriber) UntrackToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.untracked = append(f.untracked, token)
}

func newTestManager(cfg Config, sub Subscriber) (*Manager, *state.Store) {
	store := state.NewStore(state.Config{}, nil)
	return NewManager(cfg, store, detect.NewDetector(detect.DefaultParams()), alert.Config{}, &fakeSink{}, sub), store
}

func TestManager_TrackRejectsInvalidAddress(t *testing.T) {
	m, _ := newTestManager(Config{}, nil)
	defer stopManager(m)

	m.Track(types.TrackRequest{Token: "not-a-solana-address"})
	m.Track(types.TrackRequest{Token: ""})
	m.Track(types.TrackRequest{Token: "short"})

	assert.Empty(t, m.Tracked())
}

func TestManager_TrackIsIdempotent(t *testing.T) {
	sub := &fakeSubscriber{}
	m, store := newTestManager(Config{}, sub)
	defer stopManager(m)

	m.Track(types.TrackRequest{Token: validTokenA, Symbol: "PUMP", Deployer: validTokenC})
	m.Track(types.TrackRequest{Token: validTokenA})

	require.Len(t, m.Tracked(), 1)
	assert.Equal(t, []string{validTokenA}, sub.tracked)

	st, ok := store.Get(validTokenA)
	require.True(t, ok)
	assert.Equal(t, "PUMP", st.Symbol)
}

func TestManager_TrackedCap(t *testing.T) {
	m, _ := newTestManager(Config{MaxTrackedTokens: 2}, nil)
	defer stopManager(m)

	m.Track(types.TrackRequest{Token: validTokenA})
	m.Track(types.TrackRequest{Token: validTokenB})
	m.Track(types.TrackRequest{Token: validTokenC})

	assert.Len(t, m.Tracked(), 2)
	assert.NotContains(t, m.Tracked(), validTokenC)
}

func TestManager_DispatchUnknownTokenIsNoop(t *testing.T) {
	m, _ := newTestManager(Config{}, nil)
	defer stopManager(m)

	assert.NotPanics(t, func() {
		m.Dispatch(validTokenA, []byte(`{"type":"init"}`))
	})
}

func TestManager_ExpireIdleWorkers(t *testing.T) {
	sub := &fakeSubscriber{}
	m, store := newTestManager(Config{ExpirySeconds: 600}, sub)
	defer stopManager(m)

	m.Track(types.TrackRequest{Token: validTokenA})
	require.Len(t, m.Tracked(), 1)

	// not idle long enough yet
	m.expireIdle(time.Now().Add(5 * time.Minute))
	assert.Len(t, m.Tracked(), 1)

	m.expireIdle(time.Now().Add(11 * time.Minute))
	assert.Empty(t, m.Tracked())
	assert.Equal(t, []string{validTokenA}, sub.untracked)

	_, ok := store.Get(validTokenA)
	assert.False(t, ok)
}

func TestManager_StartStop(t *testing.T) {
	m, _ := newTestManager(Config{CleanupIntervalSeconds: 1}, nil)

	done := make(chan struct{})
	go func() {
		m.Start()
		close(done)
	}()

	m.Track(types.TrackRequest{Token: validTokenA})
	m.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("manager did not stop")
	}
	assert.Empty(t, m.Tracked())

	// Stop is safe to call twice
	assert.NotPanics(t, m.Stop)
}

func stopManager(m *Manager) {
	go m.Start()
	m.Stop()
}
