package utils

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
)

// SafeJsonUnmarshal 安全反序列化 JSON，防止 panic
func SafeJsonUnmarshal[T any](data []byte, v *T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic recovered in SafeJsonUnmarshal: %v\nstacktrace:\n%s", r, debug.Stack())
		}
	}()
	return json.Unmarshal(data, v)
}

// SafeJsonMarshal 安全序列化 JSON，防止 panic
func SafeJsonMarshal[T any](v T) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic recovered in SafeJsonMarshal: %v\nstacktrace:\n%s", r, debug.Stack())
		}
	}()
	return json.Marshal(v)
}
