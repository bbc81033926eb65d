package logging

import (
	"go.uber.org/zap/zapcore"

	"github.com/John-Robertt/mediaci/internal/redact"
)

// redactCore 在写出前替换消息与字符串/错误字段中的敏感值。
type redactCore struct {
	zapcore.Core
	set *redact.Set
}

// NewRedactCore 用 set 包装 core。
func NewRedactCore(core zapcore.Core, set *redact.Set) zapcore.Core {
	return &redactCore{Core: core, set: set}
}

func (c *redactCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactCore{Core: c.Core.With(c.scrub(fields)), set: c.set}
}

func (c *redactCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = c.set.Scrub(ent.Message)
	return c.Core.Write(ent, c.scrub(fields))
}

func (c *redactCore) scrub(fields []zapcore.Field) []zapcore.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		switch f.Type {
		case zapcore.StringType:
			f.String = c.set.Scrub(f.String)
		case zapcore.ErrorType:
			if err, ok := f.Interface.(error); ok && err != nil {
				f = zapcore.Field{Key: f.Key, Type: zapcore.StringType, String: c.set.Scrub(err.Error())}
			}
		case zapcore.StringerType:
			if s, ok := f.Interface.(interface{ String() string }); ok && s != nil {
				f = zapcore.Field{Key: f.Key, Type: zapcore.StringType, String: c.set.Scrub(s.String())}
			}
		}
		out[i] = f
	}
	return out
}
