// Package logger is a zerolog wrapper with typed fields and an optional
// collector that aggregates error lines for shipping to Kafka.
package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const modulePath = "RiskPulse"

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr or a file path
	TimeFormat string
	Service    string
}

type Logger struct {
	zl   zerolog.Logger
	base []Field
	slot *collectorSlot
}

// collectorSlot is shared by a logger and all of its With children so that
// attaching or removing a collector affects the whole family.
type collectorSlot struct {
	mu sync.RWMutex
	c  *LogCollector
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat}
	}

	zctx := zerolog.New(out).With().Timestamp().CallerWithSkipFrameCount(3)
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}
	return &Logger{zl: zctx.Logger(), slot: &collectorSlot{}}, nil
}

func openOutput(name string) (io.Writer, error) {
	switch name {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// NewWithWriter builds a JSON logger writing to w.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger(), slot: &collectorSlot{}}
}

func Nop() *Logger {
	return &Logger{zl: zerolog.Nop(), slot: &collectorSlot{}}
}

// With returns a child that stamps fields on every line.
func (l *Logger) With(fields ...Field) *Logger {
	zctx := l.zl.With()
	for _, f := range fields {
		zctx = zctx.Interface(f.Key, f.plain())
	}
	base := append(append(make([]Field, 0, len(l.base)+len(fields)), l.base...), fields...)
	return &Logger{zl: zctx.Logger(), base: base, slot: l.slot}
}

func (l *Logger) Debug(msg string, fields ...Field) { write(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { write(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { write(l.zl.Warn(), msg, fields) }

// Error logs and, when a collector is attached, records the line for
// aggregation.
func (l *Logger) Error(msg string, fields ...Field) {
	write(l.zl.Error(), msg, fields)
	l.collect("error", msg, fields)
}

func write(ev *zerolog.Event, msg string, fields []Field) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		f.apply(ev)
	}
	ev.Msg(msg)
}

func (l *Logger) collect(level, msg string, fields []Field) {
	l.slot.mu.RLock()
	c := l.slot.c
	l.slot.mu.RUnlock()
	if c == nil {
		return
	}

	caller := "unknown"
	// collect <- Error <- caller
	if _, file, line, ok := runtime.Caller(2); ok {
		if i := strings.LastIndex(file, modulePath); i >= 0 {
			file = file[i+len(modulePath):]
		}
		caller = fmt.Sprintf("%s:%d", file, line)
	}

	kv := make(map[string]interface{}, len(l.base)+len(fields))
	for _, f := range l.base {
		kv[f.Key] = f.plain()
	}
	for _, f := range fields {
		kv[f.Key] = f.plain()
	}
	c.AddLog(level, msg, kv, caller)
}

// AddCollector attaches a collector to this logger and its relatives,
// replacing and flushing any previous one.
func (l *Logger) AddCollector(cfg *CollectionConfig) {
	l.swapCollector(NewLogCollector(cfg))
}

// RemoveCollector detaches the collector and flushes what it holds.
func (l *Logger) RemoveCollector() { l.swapCollector(nil) }

func (l *Logger) swapCollector(next *LogCollector) {
	l.slot.mu.Lock()
	prev := l.slot.c
	l.slot.c = next
	l.slot.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}
