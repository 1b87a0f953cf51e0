// Package logger provides the module's ambient structured-logging
// interface, backed by zerolog the way the teacher's internal/logger
// backed internal/storage.GormLogger. A small interface keeps the
// Solver, the classifier pipeline, and GORM's own query logger
// decoupled from any one logging library.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the minimal structured-logging surface consumed
// throughout the module. kv is an alternating key/value list, as in
// zerolog/zap-style structured logging.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Config controls where log output goes, mirroring the teacher's
// config.Config.Log{Level, Writer}.
type Config struct {
	Level  string   // "debug", "info", "warn", "error"
	Writer []string // any of "console", "file"
	Path   string   // file path when "file" is in Writer
}

type zlog struct {
	l zerolog.Logger
}

// New builds a Logger from Config. An empty Writer list defaults to
// console-only, matching the teacher's NewConfig() default of
// []string{"console", "file"} loosened to "at least console".
func New(cfg Config) Logger {
	var writers []io.Writer
	for _, w := range cfg.Writer {
		switch w {
		case "console":
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		case "file":
			path := cfg.Path
			if path == "" {
				path = "cookiesolver.log"
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   path,
				MaxSize:    50, // MB
				MaxBackups: 5,
				MaxAge:     28, // days
				Compress:   true,
			})
		}
	}
	if len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	level := parseLevel(cfg.Level)
	base := zerolog.New(io.MultiWriter(writers...)).Level(level).With().Timestamp().Logger()
	return &zlog{l: base}
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func (z *zlog) event(e *zerolog.Event, msg string, kv ...any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}

func (z *zlog) Debug(msg string, kv ...any) { z.event(z.l.Debug(), msg, kv...) }
func (z *zlog) Info(msg string, kv ...any)  { z.event(z.l.Info(), msg, kv...) }
func (z *zlog) Warn(msg string, kv ...any)  { z.event(z.l.Warn(), msg, kv...) }
func (z *zlog) Error(msg string, kv ...any) { z.event(z.l.Error(), msg, kv...) }

// nop is a Logger that discards everything, used as a safe default
// the way the teacher's session.Manager falls back to logger.NewNop().
type nop struct{}

func NewNop() Logger { return nop{} }

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}
