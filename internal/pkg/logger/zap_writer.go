package logger

import (
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"
)

// ZapWriter 将 go-zero logx 的输出桥接到 zap
type ZapWriter struct{}

var _ logx.Writer = ZapWriter{}

func (ZapWriter) Alert(v any)  { sugar.Error(v) }
func (ZapWriter) Close() error { return log.Sync() }

func (ZapWriter) Debug(v any, fields ...logx.LogField) {
	sugar.Debug(mergeFields(v, fields))
}

func (ZapWriter) Error(v any, fields ...logx.LogField) {
	sugar.Error(mergeFields(v, fields))
}

func (ZapWriter) Info(v any, fields ...logx.LogField) {
	sugar.Info(mergeFields(v, fields))
}

func (ZapWriter) Severe(v any) { sugar.Error(v) }

func (ZapWriter) Slow(v any, fields ...logx.LogField) {
	sugar.Warn(mergeFields(v, fields))
}

func (ZapWriter) Stack(v any) { sugar.Error(v) }

func (ZapWriter) Stat(v any, fields ...logx.LogField) {
	sugar.Info(mergeFields(v, fields))
}

func mergeFields(v any, fields []logx.LogField) string {
	if len(fields) == 0 {
		return fmt.Sprint(v)
	}
	s := fmt.Sprint(v)
	for _, f := range fields {
		s += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	return s
}
