package log

import (
	"time"

	"go.uber.org/zap"
)

type Field = zap.Field

var (
	String   = zap.String
	Bool     = zap.Bool
	Int      = zap.Int
	Int32    = zap.Int32
	Int64    = zap.Int64
	Uint32   = zap.Uint32
	Uint64   = zap.Uint64
	Float32  = zap.Float32
	Float64  = zap.Float64
	Any      = zap.Any
	Duration = zap.Duration
)

func Time(key string, val time.Time) Field {
	return zap.Time(key, val)
}

func ErrorField(err error) Field {
	return zap.Error(err)
}
