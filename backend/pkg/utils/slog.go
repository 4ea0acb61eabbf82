package utils

import (
	"log/slog"
	"strings"
	"time"
)

// ErrAttr returns the attribute every component uses to attach an error to a log line.
func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}

// SlogReplacer renders time and duration attributes as compact strings.
func SlogReplacer(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindTime:
		return slog.String(a.Key, a.Value.Time().Format(time.DateTime))
	case slog.KindDuration:
		return slog.String(a.Key, a.Value.Duration().String())
	default:
		return a
	}
}

// LogOnError calls fn and logs msg if it fails. Meant for deferred Close calls.
func LogOnError(l *slog.Logger, fn func() error, msg string) {
	if err := fn(); err != nil {
		l.Error(msg, ErrAttr(err))
	}
}

// LogWriter adapts a slog.Logger to io.Writer, one record per write.
type LogWriter struct {
	logger *slog.Logger
}

// NewSlogWriter returns a writer that logs every non-empty write at info level.
func NewSlogWriter(l *slog.Logger) *LogWriter {
	return &LogWriter{logger: l}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.logger.Info(msg)
	}

	return len(p), nil
}
