package logger

import (
	"context"
	"strconv"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// GormBridge adapts Logger to gorm/logger.Interface, the same role
// the teacher's storage.GormLogger plays for internal/logger.Logger.
// The Store (internal/classifier/store) is the only GORM consumer in
// this module, but the bridge lives here so any future GORM-backed
// component can reuse it without re-deriving the slow-query/threshold
// logic.
type GormBridge struct {
	Logger
	LogLevel gormlogger.LogLevel
}

// NewGormBridge wraps l at the default Info verbosity.
func NewGormBridge(l Logger) *GormBridge {
	return &GormBridge{Logger: l, LogLevel: gormlogger.Info}
}

func (g *GormBridge) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *g
	newLogger.LogLevel = level
	return &newLogger
}

func (g *GormBridge) Info(_ context.Context, msg string, data ...any) {
	if g.LogLevel >= gormlogger.Info {
		g.Logger.Info(msg, flatten(data)...)
	}
}

func (g *GormBridge) Warn(_ context.Context, msg string, data ...any) {
	if g.LogLevel >= gormlogger.Warn {
		g.Logger.Warn(msg, flatten(data)...)
	}
}

func (g *GormBridge) Error(_ context.Context, msg string, data ...any) {
	if g.LogLevel >= gormlogger.Error {
		g.Logger.Error(msg, flatten(data)...)
	}
}

func (g *GormBridge) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	kv := []any{"sql", sql, "rows", rows, "timeMs", float64(elapsed.Nanoseconds()) / 1e6}

	switch {
	case err != nil && g.LogLevel >= gormlogger.Error:
		g.Logger.Error("store query error", append(kv, "error", err)...)
	case elapsed > time.Second && g.LogLevel >= gormlogger.Warn:
		g.Logger.Warn("slow store query", append(kv, "threshold", "1s")...)
	case g.LogLevel == gormlogger.Info:
		g.Logger.Debug("store query", kv...)
	}
}

func flatten(data []any) []any {
	out := make([]any, 0, len(data)*2)
	for i, d := range data {
		out = append(out, "arg"+strconv.Itoa(i), d)
	}
	return out
}
