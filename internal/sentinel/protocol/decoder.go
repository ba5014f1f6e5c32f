package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"pump-sentinel-sol/internal/sentinel/types"

	"github.com/vmihailenco/msgpack/v5"
)

// MessageKind 解码结果类别
type MessageKind uint8

const (
	MsgStructured MessageKind = iota // 结构化取值树
	MsgRawText                       // 可读文本，但无法结构化
	MsgRawBytes                      // 无法解释的二进制
	MsgHeartbeat                     // ping / pong / 短帧
)

func (k MessageKind) String() string {
	switch k {
	case MsgStructured:
		return "structured"
	case MsgRawText:
		return "raw_text"
	case MsgRawBytes:
		return "raw_bytes"
	case MsgHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// DecodedMessage 帧解码结果
type DecodedMessage struct {
	Kind  MessageKind
	Value types.Value // Kind == MsgStructured 时有效
	Text  string      // RawText 的内容；RawBytes 的 hex/ascii 预览
	Raw   []byte      // RawBytes 的原始数据
}

const (
	heartbeatMaxLen = 10  // 小于该长度的帧视为心跳
	rawPreviewLen   = 64  // RawBytes 预览字节数
	maxBase64Len    = 1 << 20
)

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// Decode 把一个原始帧解码为 DecodedMessage。
// 上游协议在同一连接上混用自描述二进制、base64 包裹二进制和明文 JSON，
// 这里按优先级逐一尝试，任何输入都必须产出一个结果，绝不失败。
// 顺序：
//  1. 整帧按自描述二进制 map/array 解码
//  2. 整帧 base64 解码后重试二进制，再尝试 JSON 对象
//  3. 整帧按 UTF-8 JSON 对象解码
//  4. 按文本扫描，正则提取第一个 {...} JSON 对象
//  5. ping/pong 或短帧 → 心跳
//  6. 兜底 RawBytes，附 hex/ascii 预览
func Decode(data []byte) DecodedMessage {
	// 1. 自描述二进制
	if v, ok := tryBinary(data); ok {
		return DecodedMessage{Kind: MsgStructured, Value: v}
	}

	// 2. base64 包裹
	if decoded, ok := tryBase64(data); ok {
		if v, ok := tryBinary(decoded); ok {
			return DecodedMessage{Kind: MsgStructured, Value: v}
		}
		if v, ok := tryJSONObject(decoded); ok {
			return DecodedMessage{Kind: MsgStructured, Value: v}
		}
	}

	// 3. 明文 JSON 对象
	if v, ok := tryJSONObject(data); ok {
		return DecodedMessage{Kind: MsgStructured, Value: v}
	}

	// 4. 文本中内嵌的 JSON 片段
	text := lossyText(data)
	if frag := jsonObjectRe.FindString(text); frag != "" {
		if v, ok := tryJSONObject([]byte(frag)); ok {
			return DecodedMessage{Kind: MsgStructured, Value: v}
		}
	}

	// 5. 心跳
	trimmed := strings.TrimSpace(text)
	if strings.EqualFold(trimmed, "ping") || strings.EqualFold(trimmed, "pong") || len(data) < heartbeatMaxLen {
		return DecodedMessage{Kind: MsgHeartbeat, Text: trimmed}
	}

	// 6. 兜底
	if utf8.Valid(data) {
		return DecodedMessage{Kind: MsgRawText, Text: text}
	}
	return DecodedMessage{Kind: MsgRawBytes, Raw: data, Text: rawPreview(data)}
}

// tryBinary 尝试把整帧解码为自描述二进制。
// 只接受顶层 map/array：单字节 '{' 等标量在该编码下也是合法值，
// 放行标量会把明文 JSON 误吞成数字。同时要求整帧刚好消费完。
func tryBinary(data []byte) (types.Value, bool) {
	if len(data) == 0 {
		return types.Null(), false
	}

	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	raw, err := dec.DecodeInterface()
	if err != nil {
		return types.Null(), false
	}
	if r.Len() != 0 {
		// 有尾随字节，说明不是一个完整的单值帧
		return types.Null(), false
	}

	v := types.FromAny(raw)
	if !v.IsMap() && !v.IsArray() {
		return types.Null(), false
	}
	return v, true
}

func tryBase64(data []byte) ([]byte, bool) {
	if len(data) == 0 || len(data) > maxBase64Len || len(data)%4 != 0 {
		return nil, false
	}
	for _, b := range data {
		if !isBase64Char(b) {
			return nil, false
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil || len(decoded) == 0 {
		return nil, false
	}
	return decoded, true
}

func isBase64Char(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9' ||
		b == '+' || b == '/' || b == '='
}

func tryJSONObject(data []byte) (types.Value, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return types.Null(), false
	}
	var m map[string]any
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return types.Null(), false
	}
	return types.FromAny(m), true
}

// lossyText 宽松地把字节序列转成文本，非法 UTF-8 字节替换掉
func lossyText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

func rawPreview(data []byte) string {
	n := len(data)
	if n > rawPreviewLen {
		n = rawPreviewLen
	}
	var sb strings.Builder
	sb.WriteString("hex=")
	sb.WriteString(hex.EncodeToString(data[:n]))
	sb.WriteString(" ascii=")
	for _, b := range data[:n] {
		if b >= 0x20 && b < 0x7f {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
