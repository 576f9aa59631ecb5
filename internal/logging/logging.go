// Package logging configures structured logging for the broker and wraps
// errors with stack traces before they reach the log.
package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdobak/go-xerrors"
)

// SessionAttrs holds the fields attached to every log line emitted while
// handling a particular session so broker logs can be correlated by
// identity without threading a logger instance through every call site.
type SessionAttrs struct {
	Identity string
	PeerAddr string
	Topic    string
}

// stackFrame represents a single frame in a stack trace.
type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

// Initialize sets up the global slog with a JSON handler and stack-trace
// formatting for wrapped errors. It reads the log level from the
// BROKER_LOGGING_LEVEL environment variable (debug, info, warn, error;
// defaults to info).
func Initialize() {
	levelStr := strings.ToLower(os.Getenv("BROKER_LOGGING_LEVEL"))
	level := decodeLogLevel(levelStr)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	})
	slog.SetDefault(slog.New(handler))
}

// decodeLogLevel converts a string to slog.Level.
func decodeLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// replaceAttr automatically formats errors with stack traces.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			a.Value = fmtErr(v)
		}
	}
	return a
}

// marshalStack extracts stack frames from the error.
func marshalStack(err error) []stackFrame {
	trace := xerrors.StackTrace(err)
	if len(trace) == 0 {
		return nil
	}

	frames := trace.Frames()
	s := make([]stackFrame, len(frames))

	for i, v := range frames {
		s[i] = stackFrame{
			Source: filepath.Join(
				filepath.Base(filepath.Dir(v.File)),
				filepath.Base(v.File),
			),
			Func: filepath.Base(v.Function),
			Line: v.Line,
		}
	}

	return s
}

// fmtErr returns a slog.Value with keys `msg` and `trace`.
func fmtErr(err error) slog.Value {
	var groupValues []slog.Attr

	groupValues = append(groupValues, slog.String("msg", err.Error()))

	frames := marshalStack(err)
	if frames != nil {
		groupValues = append(groupValues, slog.Any("trace", frames))
	}

	return slog.GroupValue(groupValues...)
}

// WrapError wraps an error with a message and captures a stack trace.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := xerrors.WithStackTrace(err, 1)
	return xerrors.Newf("%s: %v", msg, wrapped)
}

// Fields renders SessionAttrs as slog attributes, omitting empty ones.
func (a SessionAttrs) Fields() []any {
	if a.Identity == "" && a.PeerAddr == "" && a.Topic == "" {
		return nil
	}
	var fields []any
	if a.Identity != "" {
		fields = append(fields, slog.String("identity", a.Identity))
	}
	if a.PeerAddr != "" {
		fields = append(fields, slog.String("peer_addr", a.PeerAddr))
	}
	if a.Topic != "" {
		fields = append(fields, slog.String("topic", a.Topic))
	}
	return fields
}

// LogDispatchError logs an ERROR-level message for a dispatcher-level
// failure (bind, decode, or I/O error), wrapping the cause with a stack
// trace first.
func LogDispatchError(msg string, err error, attrs SessionAttrs) {
	wrapped := WrapError(err, msg)
	fields := append(attrs.Fields(), slog.Any("error", wrapped))
	slog.Error(msg, fields...)
}
