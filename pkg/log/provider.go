package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo)
)

func init() {
	errors.SetZerologWarnFunc(routeWarning)
}

// SetProvider replaces the process-wide provider. Loggers obtained earlier
// keep writing to the previous provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	defaultProvider = p
}

func provider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider
}

// GetLogger returns the default logger.
func GetLogger() Logger {
	return provider().GetLogger()
}

// GetLoggerWithName returns a logger tagged with the component name.
func GetLoggerWithName(name string) Logger {
	return provider().GetLoggerWithName(name)
}

// SetLevel sets the minimum level of the default provider.
func SetLevel(level Level) {
	provider().SetLevel(level)
}

// SetOutput replaces the default provider with a zerolog provider writing to
// w at the given level.
func SetOutput(w io.Writer, level Level) {
	SetProvider(NewZerologProvider(w, level))
}

// routeWarning sends warnings raised through errors.Warn to the default
// provider. Warnings that implement zerolog.LogObjectMarshaler keep their
// structured fields when the provider is zerolog based.
func routeWarning(w error) {
	p := provider()
	if zp, ok := p.(*ZerologProvider); ok {
		zp.warning(w)
		return
	}
	p.GetLoggerWithName("warnings").Warn(w.Error(), ErrorTypeKey, fmt.Sprintf("%T", w))
}

// ZerologProvider is the default LoggerProvider. All loggers it hands out
// share one level, so SetLevel also affects loggers created earlier.
type ZerologProvider struct {
	base  zerolog.Logger
	level *atomic.Int64
}

// NewZerologProvider creates a provider writing JSON lines to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	lvl := &atomic.Int64{}
	lvl.Store(int64(level))
	return &ZerologProvider{
		base:  zerolog.New(w).With().Timestamp().Logger().Level(zerolog.TraceLevel),
		level: lvl,
	}
}

// NewConsoleProvider creates a provider with zerolog's human readable output.
func NewConsoleProvider(w io.Writer, level Level) *ZerologProvider {
	p := NewZerologProvider(w, level)
	p.base = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	return p
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{zl: p.base, level: p.level}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger(), level: p.level}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Store(int64(level))
}

func (p *ZerologProvider) warning(w error) {
	if Level(p.level.Load()) > LevelWarn {
		return
	}
	ev := p.base.Warn()
	if obj, ok := w.(zerolog.LogObjectMarshaler); ok {
		ev = ev.EmbedObject(obj)
	}
	ev.Msg(w.Error())
}

type zerologLogger struct {
	zl    zerolog.Logger
	level *atomic.Int64
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	if l.allows(LevelDebug) {
		emit(l.zl.Debug(), msg, fields)
	}
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	if l.allows(LevelInfo) {
		emit(l.zl.Info(), msg, fields)
	}
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	if l.allows(LevelWarn) {
		emit(l.zl.Warn(), msg, fields)
	}
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	if l.allows(LevelError) {
		emit(l.zl.Error(), msg, fields)
	}
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fields[i+1])
	}
	return &zerologLogger{zl: ctx.Logger(), level: l.level}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.allows(level)
}

func (l *zerologLogger) allows(level Level) bool {
	return level >= Level(l.level.Load())
}

func emit(ev *zerolog.Event, msg string, fields []any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case float64:
			ev = ev.Float64(key, v)
		case []float64:
			ev = ev.Floats64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case error:
			ev = ev.AnErr(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}
