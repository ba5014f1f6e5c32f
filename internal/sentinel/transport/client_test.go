package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sentinel-sol/internal/sentinel/types"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(string, []byte) {}

type nopResolver struct{}

func (nopResolver) MarketIDOf(string) string { return "" }

func TestNewClient_RequiresEndpoints(t *testing.T) {
	_, err := NewClient(Config{}, nopDispatcher{}, nopResolver{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no endpoints")
}

func TestNewClient_RejectsBadAuthBlob(t *testing.T) {
	cfg := Config{
		Endpoints: []string{"wss://example.invalid/ws"},
		AuthBlob:  "not base64 !!!",
	}
	_, err := NewClient(cfg, nopDispatcher{}, nopResolver{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth blob")
}

func TestNewClient_AppliesDefaults(t *testing.T) {
	c, err := NewClient(Config{Endpoints: []string{"wss://example.invalid/ws"}}, nopDispatcher{}, nopResolver{})
	require.NoError(t, err)
	defer c.Stop()

	def := DefaultConfig()
	assert.Equal(t, def.DialTimeoutSeconds, c.cfg.DialTimeoutSeconds)
	assert.Equal(t, def.ReadTimeoutSeconds, c.cfg.ReadTimeoutSeconds)
	assert.Equal(t, def.ReconnectMinMs, c.cfg.ReconnectMinMs)
	assert.Equal(t, def.ResolvePollSeconds, c.cfg.ResolvePollSeconds)
}

func TestClient_EndpointRoundRobin(t *testing.T) {
	c, err := NewClient(Config{
		Endpoints: []string{"wss://a.invalid/ws", "wss://b.invalid/ws"},
	}, nopDispatcher{}, nopResolver{})
	require.NoError(t, err)
	defer c.Stop()

	assert.Equal(t, "wss://a.invalid/ws", c.nextEndpoint())
	assert.Equal(t, "wss://b.invalid/ws", c.nextEndpoint())
	assert.Equal(t, "wss://a.invalid/ws", c.nextEndpoint())
}

func TestClient_TrackLifecycle(t *testing.T) {
	// an unroutable endpoint keeps the session in its dial-retry loop,
	// which is all this test needs
	c, err := NewClient(Config{
		Endpoints:      []string{"ws://127.0.0.1:1/ws"},
		ReconnectMinMs: 50,
		ReconnectMaxMs: 100,
	}, nopDispatcher{}, nopResolver{})
	require.NoError(t, err)

	c.TrackToken(types.TrackRequest{Token: "token-a"})
	c.TrackToken(types.TrackRequest{Token: "token-a"})
	c.TrackToken(types.TrackRequest{Token: "token-b"})
	assert.Equal(t, 2, c.SessionCount())

	c.UntrackToken("token-a")
	assert.Equal(t, 1, c.SessionCount())

	// unknown tokens are a no-op
	c.UntrackToken("token-a")
	assert.Equal(t, 1, c.SessionCount())

	c.Stop()
	assert.Equal(t, 0, c.SessionCount())

	// tracking after stop must not spawn sessions
	c.TrackToken(types.TrackRequest{Token: "token-c"})
	assert.Equal(t, 0, c.SessionCount())
}

func TestBackoffNext(t *testing.T) {
	min := 50 * time.Millisecond
	max := 400 * time.Millisecond

	cur := backoffNext(0, min, max)
	assert.Equal(t, min, cur)

	cur = backoffNext(cur, min, max)
	assert.Equal(t, 100*time.Millisecond, cur)

	cur = backoffNext(cur, min, max)
	assert.Equal(t, 200*time.Millisecond, cur)

	cur = backoffNext(cur, min, max)
	assert.Equal(t, max, cur)

	// capped once at the ceiling
	assert.Equal(t, max, backoffNext(cur, min, max))
}
