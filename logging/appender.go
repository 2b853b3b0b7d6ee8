package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the time format used by every appender.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. A `zapcore.Core` satisfies this interface, which is
// how test observers are attached.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

// ConsoleAppender writes tab separated, human readable entries to an io.Writer.
type ConsoleAppender struct {
	mu      sync.Mutex
	writer  io.Writer
	encoder zapcore.Encoder
}

// NewStdoutAppender creates a console appender that writes to stdout with colored levels.
func NewStdoutAppender() *ConsoleAppender {
	return &ConsoleAppender{
		writer:  os.Stdout,
		encoder: zapcore.NewConsoleEncoder(consoleEncoderConfig(true)),
	}
}

// NewWriterAppender creates a console appender over an arbitrary writer, without colors.
func NewWriterAppender(writer io.Writer) *ConsoleAppender {
	return &ConsoleAppender{
		writer:  writer,
		encoder: zapcore.NewConsoleEncoder(consoleEncoderConfig(false)),
	}
}

// Write outputs the log entry.
func (appender *ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := appender.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()

	appender.mu.Lock()
	defer appender.mu.Unlock()
	_, err = appender.writer.Write(buf.Bytes())
	return err
}

// Sync is a no-op unless the writer can be synced.
func (appender *ConsoleAppender) Sync() error {
	if syncer, ok := appender.writer.(interface{ Sync() error }); ok && appender.writer != os.Stdout {
		return syncer.Sync()
	}
	return nil
}

// FileAppender writes JSON entries to a size-rotated log file.
type FileAppender struct {
	*ConsoleAppender
	rotator *lumberjack.Logger
}

// NewFileAppender returns an appender writing JSON lines to filename, rotating at maxSizeMB
// and keeping maxBackups compressed old files.
func NewFileAppender(filename string, maxSizeMB, maxBackups int) *FileAppender {
	rotator := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	encoderConfig := consoleEncoderConfig(false)
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return &FileAppender{
		ConsoleAppender: &ConsoleAppender{
			writer:  rotator,
			encoder: zapcore.NewJSONEncoder(encoderConfig),
		},
		rotator: rotator,
	}
}

// Close closes the underlying file.
func (appender *FileAppender) Close() error {
	return appender.rotator.Close()
}
