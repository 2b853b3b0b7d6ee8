package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

// testAppender hands console-formatted entries to a test's Log method so they print with the test
// that produced them.
type testAppender struct {
	tb      testing.TB
	encoder zapcore.Encoder
}

// NewTestAppender returns an appender logging through tb.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb: tb, encoder: zapcore.NewConsoleEncoder(consoleEncoderConfig(false))}
}

func (a *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	a.tb.Helper()
	buf, err := a.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	a.tb.Log(strings.TrimSuffix(buf.String(), "\n"))
	return nil
}

func (a *testAppender) Sync() error {
	return nil
}
