package protocol

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"pump-sentinel-sol/internal/sentinel/types"
)

func TestDecode_BinaryArrayFrame(t *testing.T) {
	frame, err := msgpack.Marshal([]any{int64(5), int64(43), map[string]any{"type": "init"}})
	require.NoError(t, err)

	msg := Decode(frame)
	require.Equal(t, MsgStructured, msg.Kind)
	assert.Equal(t, int64(5), msg.Value.At(0).IntOr(0))
	assert.Equal(t, "init", msg.Value.At(2).Field("type").StrOr(""))
}

func TestDecode_Base64WrappedBinary(t *testing.T) {
	frame, err := msgpack.Marshal([]any{int64(5), int64(38), map[string]any{"type": "update"}})
	require.NoError(t, err)
	wrapped := []byte(base64.StdEncoding.EncodeToString(frame))

	msg := Decode(wrapped)
	require.Equal(t, MsgStructured, msg.Kind)
	assert.Equal(t, int64(38), msg.Value.At(1).IntOr(0))
}

func TestDecode_PlainJSONObject(t *testing.T) {
	msg := Decode([]byte(`{"type": "init", "totalHolders": 42}`))
	require.Equal(t, MsgStructured, msg.Kind)
	assert.Equal(t, int64(42), msg.Value.Field("totalHolders").IntOr(0))
}

func TestDecode_EmbeddedJSONFragment(t *testing.T) {
	msg := Decode([]byte(`42/notice {"event": "resolved", "n": 7} trailing garbage`))
	require.Equal(t, MsgStructured, msg.Kind)
	assert.Equal(t, "resolved", msg.Value.Field("event").StrOr(""))
}

func TestDecode_Heartbeats(t *testing.T) {
	assert.Equal(t, MsgHeartbeat, Decode([]byte("ping")).Kind)
	assert.Equal(t, MsgHeartbeat, Decode([]byte("PONG")).Kind)
	assert.Equal(t, MsgHeartbeat, Decode([]byte("ok")).Kind)
}

func TestDecode_ReadableTextFallback(t *testing.T) {
	msg := Decode([]byte("subscription refused: over limit"))
	assert.Equal(t, MsgRawText, msg.Kind)
	assert.Contains(t, msg.Text, "refused")
}

func TestDecode_OpaqueBytesFallback(t *testing.T) {
	data := []byte{0xc1, 0xff, 0xfe, 0x00, 0x81, 0xc1, 0xff, 0xfe, 0x00, 0x81, 0xc1, 0xff}
	msg := Decode(data)
	assert.Equal(t, MsgRawBytes, msg.Kind)
	assert.Contains(t, msg.Text, "hex=")
}

func TestDecode_NeverPanics(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		{0x00},
		{0xc1},
		[]byte("{"),
		[]byte("{{{{"),
		[]byte("[1,2,"),
		[]byte("\xff\xfe\xfd\xfc\xfb\xfa\xf9\xf8\xf7\xf6\xf5"),
		make([]byte, 4096),
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Decode(in) })
	}
}

func TestDecode_ScalarBinaryNotStructured(t *testing.T) {
	// a bare msgpack integer must not be treated as a structured frame
	frame, err := msgpack.Marshal(int64(123))
	require.NoError(t, err)

	msg := Decode(frame)
	assert.NotEqual(t, MsgStructured, msg.Kind)
}

func classifyFrame(t *testing.T, parts []any) (ClassifiedEvent, bool) {
	t.Helper()
	frame, err := msgpack.Marshal(parts)
	require.NoError(t, err)
	return Classify(Decode(frame))
}

func TestClassify_StreamChannels(t *testing.T) {
	ev, ok := classifyFrame(t, []any{int64(5), int64(43), map[string]any{"type": "init"}})
	require.True(t, ok)
	assert.Equal(t, EventMarketStats, ev.Kind)

	ev, ok = classifyFrame(t, []any{int64(5), int64(1), map[string]any{"type": "update"}})
	require.True(t, ok)
	assert.Equal(t, EventTokenStats, ev.Kind)

	ev, ok = classifyFrame(t, []any{int64(5), int64(38), map[string]any{"type": "init"}})
	require.True(t, ok)
	assert.Equal(t, EventTopHolders, ev.Kind)
}

func TestClassify_MarketResolution(t *testing.T) {
	payload := map[string]any{"markets": map[string]any{"SOLANA": map[string]any{}}}
	ev, ok := classifyFrame(t, []any{int64(9), int64(45), int64(200), payload})
	require.True(t, ok)
	assert.Equal(t, EventMarketResolution, ev.Kind)
	assert.True(t, ev.HasStatus)
	assert.Equal(t, int64(200), ev.Status)
	assert.True(t, ev.Payload.IsMap())

	// failed resolution keeps the status but carries no payload
	ev, ok = classifyFrame(t, []any{int64(9), int64(45), int64(500)})
	require.True(t, ok)
	assert.Equal(t, int64(500), ev.Status)
	assert.True(t, ev.Payload.IsNull())
}

func TestClassify_UnknownChannelDropped(t *testing.T) {
	_, ok := classifyFrame(t, []any{int64(5), int64(99), map[string]any{}})
	assert.False(t, ok)

	_, ok = classifyFrame(t, []any{int64(7), int64(43), map[string]any{}})
	assert.False(t, ok)
}

func TestClassify_NonArrayRejected(t *testing.T) {
	_, ok := Classify(DecodedMessage{Kind: MsgStructured, Value: types.Map(nil)})
	assert.False(t, ok)

	_, ok = Classify(DecodedMessage{Kind: MsgHeartbeat})
	assert.False(t, ok)
}

func TestSubscribeFrames(t *testing.T) {
	frame, err := SubscribeTopHolders("TokenAddr111")
	require.NoError(t, err)

	var parts []any
	require.NoError(t, msgpack.Unmarshal(frame, &parts))
	require.Len(t, parts, 3)
	assert.EqualValues(t, 4, parts[0])
	assert.EqualValues(t, CodeTopHolders, parts[1])
	assert.Contains(t, parts[2], "TokenAddr111")

	frame, err = SubscribeTokenStats("market-1")
	require.NoError(t, err)
	var parts2 []any
	require.NoError(t, msgpack.Unmarshal(frame, &parts2))
	assert.EqualValues(t, CodeTokenStats, parts2[1])
	assert.Contains(t, parts2[2], "solana-market-1")
}

func TestRequestMarkets(t *testing.T) {
	frame, reqID, err := RequestMarkets("TokenAddr111")
	require.NoError(t, err)
	assert.NotEmpty(t, reqID)

	var parts []any
	require.NoError(t, msgpack.Unmarshal(frame, &parts))
	require.Len(t, parts, 5)
	assert.EqualValues(t, 8, parts[0])
	assert.EqualValues(t, CodeMarketsPerToken, parts[1])
	assert.Equal(t, reqID, parts[3])
}
