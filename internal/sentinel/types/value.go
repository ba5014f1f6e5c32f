package types

import (
	"strconv"
)

// ValueKind 表示 Value 的具体类型
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindArray
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value 是解码后报文的统一取值树。
// 上游的 payload 没有固定 schema，所有字段访问都必须经过带默认值的
// 显式提取方法，缺失或类型不符一律回落默认值，不允许把 null 带进算术。
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	m    map[string]Value
}

var nullValue = Value{kind: KindNull}

func Null() Value             { return nullValue }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int(i int64) Value       { return Value{kind: KindInt, i: i} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func Str(s string) Value      { return Value{kind: KindStr, s: s} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// FromAny 把动态解码结果（msgpack / json 的 any 树）转换为 Value。
// msgpack 的 map key 可能不是 string，此时仅保留 string key。
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Int(int64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return Int(int64(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return Str(x)
	case []byte:
		return Str(string(x))
	case []any:
		arr := make([]Value, len(x))
		for i, e := range x {
			arr[i] = FromAny(e)
		}
		return Value{kind: KindArray, arr: arr}
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			m[k] = FromAny(e)
		}
		return Map(m)
	case map[any]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			if ks, ok := k.(string); ok {
				m[ks] = FromAny(e)
			}
		}
		return Map(m)
	default:
		return Null()
	}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) IsMap() bool     { return v.kind == KindMap }
func (v Value) IsArray() bool   { return v.kind == KindArray }

// BoolOr 取布尔值，非布尔类型返回默认值
func (v Value) BoolOr(def bool) bool {
	if v.kind == KindBool {
		return v.b
	}
	return def
}

// IntOr 取整数值，float 截断，其他类型返回默认值
func (v Value) IntOr(def int64) int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.f)
	case KindStr:
		if i, err := strconv.ParseInt(v.s, 10, 64); err == nil {
			return i
		}
		return def
	default:
		return def
	}
}

// FloatOr 取浮点值，整数与数字字符串均可转换，其他类型返回默认值。
// 上游部分字段（余额、百分比）以字符串形式下发。
func (v Value) FloatOr(def float64) float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return float64(v.i)
	case KindStr:
		if f, err := strconv.ParseFloat(v.s, 64); err == nil {
			return f
		}
		return def
	default:
		return def
	}
}

// StrOr 取字符串值，非字符串返回默认值
func (v Value) StrOr(def string) string {
	if v.kind == KindStr {
		return v.s
	}
	return def
}

// Len 返回数组长度，非数组返回 0
func (v Value) Len() int {
	if v.kind == KindArray {
		return len(v.arr)
	}
	return 0
}

// At 取数组下标元素，越界或非数组返回 Null
func (v Value) At(i int) Value {
	if v.kind == KindArray && i >= 0 && i < len(v.arr) {
		return v.arr[i]
	}
	return Null()
}

// Field 取 map 字段，缺失或非 map 返回 Null
func (v Value) Field(key string) Value {
	if v.kind == KindMap {
		if e, ok := v.m[key]; ok {
			return e
		}
	}
	return Null()
}

// Has 判断 map 字段是否存在
func (v Value) Has(key string) bool {
	if v.kind != KindMap {
		return false
	}
	_, ok := v.m[key]
	return ok
}

// Items 返回数组元素切片（只读约定），非数组返回 nil
func (v Value) Items() []Value {
	if v.kind == KindArray {
		return v.arr
	}
	return nil
}

// Fields 返回 map 内容（只读约定），非 map 返回 nil
func (v Value) Fields() map[string]Value {
	if v.kind == KindMap {
		return v.m
	}
	return nil
}
