package logging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// callerSkip points zap's caller lookup past write and the exported method that called it.
const callerSkip = 2

// outputs is the set of appenders shared by a logger and every sublogger derived from it.
type outputs struct {
	inUTC bool

	mu        sync.RWMutex
	appenders []Appender
}

func (o *outputs) add(appender Appender) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.appenders = append(o.appenders, appender)
}

// fanoutCore is the zap core behind every logger. Levels are checked by the logger, so the core
// accepts everything it is handed and copies it to each appender.
type fanoutCore struct {
	out    *outputs
	fields []zapcore.Field
}

func (c *fanoutCore) Enabled(zapcore.Level) bool {
	return true
}

func (c *fanoutCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	return &fanoutCore{out: c.out, fields: append(merged, fields...)}
}

func (c *fanoutCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return checked.AddCore(entry, c)
}

func (c *fanoutCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if c.out.inUTC {
		entry.Time = entry.Time.UTC()
	}
	if len(c.fields) > 0 {
		fields = append(append([]zapcore.Field{}, c.fields...), fields...)
	}

	c.out.mu.RLock()
	defer c.out.mu.RUnlock()
	var err error
	for _, appender := range c.out.appenders {
		err = multierr.Append(err, appender.Write(entry, fields))
	}
	return err
}

func (c *fanoutCore) Sync() error {
	c.out.mu.RLock()
	defer c.out.mu.RUnlock()
	var err error
	for _, appender := range c.out.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

// logger is the Logger implementation. Subloggers share the level and the outputs of their root.
type logger struct {
	level AtomicLevel
	out   *outputs
	zl    *zap.Logger
}

func newLogger(name string, level Level, inUTC bool, appenders ...Appender) *logger {
	out := &outputs{inUTC: inUTC, appenders: appenders}
	zl := zap.New(&fanoutCore{out: out}, zap.AddCaller(), zap.AddCallerSkip(callerSkip))
	return &logger{level: NewAtomicLevelAt(level), out: out, zl: zl.Named(name)}
}

func (l *logger) Sublogger(subname string) Logger {
	return &logger{level: l.level, out: l.out, zl: l.zl.Named(subname)}
}

func (l *logger) SetLevel(level Level) {
	l.level.Set(level)
}

func (l *logger) GetLevel() Level {
	return l.level.Get()
}

func (l *logger) AddAppender(appender Appender) {
	l.out.add(appender)
}

func (l *logger) Sync() error {
	return l.zl.Sync()
}

func (l *logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.write(context.Background(), DEBUG, msg, keysAndValues)
}

func (l *logger) Infow(msg string, keysAndValues ...interface{}) {
	l.write(context.Background(), INFO, msg, keysAndValues)
}

func (l *logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.write(context.Background(), WARN, msg, keysAndValues)
}

func (l *logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.write(context.Background(), ERROR, msg, keysAndValues)
}

func (l *logger) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.write(ctx, DEBUG, msg, keysAndValues)
}

func (l *logger) CWarnw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.write(ctx, WARN, msg, keysAndValues)
}

// write logs msg at level when the logger's level allows it, or when ctx is in debug mode, in
// which case the entry is tagged with the context's debug tag.
func (l *logger) write(ctx context.Context, level Level, msg string, keysAndValues []interface{}) {
	tag := debugTag(ctx)
	if level < l.level.Get() && tag == "" {
		return
	}
	checked := l.zl.Check(level.AsZap(), msg)
	if checked == nil {
		return
	}
	fields := fieldsOf(keysAndValues)
	if tag != "" {
		fields = append(fields, zap.String(debugTagKey, tag))
	}
	checked.Write(fields...)
}

// fieldsOf pairs alternating keys and values into zap fields. A trailing key without a value
// is kept with an error in place of the value.
func fieldsOf(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.NamedError(key, errors.New("unpaired log key")))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
