package testutil

import (
	"maps"
	"sync"
	"time"

	"github.com/gaborage/go-bricks-authclient/logger"
)

// LoggedEvent is one message captured by RecordingLogger.
type LoggedEvent struct {
	Level   string
	Fields  map[string]any
	Message string
}

// RecordingLogger implements logger.Logger and keeps every message in memory.
// It is safe for concurrent use.
type RecordingLogger struct {
	mu     sync.Mutex
	events []LoggedEvent
	fields map[string]any
	parent *RecordingLogger
}

var _ logger.Logger = (*RecordingLogger)(nil)

// NewRecordingLogger creates an empty recording logger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) root() *RecordingLogger {
	if l.parent != nil {
		return l.parent
	}
	return l
}

func (l *RecordingLogger) newEvent(level string) logger.LogEvent {
	fields := maps.Clone(l.fields)
	if fields == nil {
		fields = make(map[string]any)
	}
	return &recordingEvent{logger: l.root(), level: level, fields: fields}
}

func (l *RecordingLogger) Info() logger.LogEvent  { return l.newEvent("info") }
func (l *RecordingLogger) Error() logger.LogEvent { return l.newEvent("error") }
func (l *RecordingLogger) Debug() logger.LogEvent { return l.newEvent("debug") }
func (l *RecordingLogger) Warn() logger.LogEvent  { return l.newEvent("warn") }

func (l *RecordingLogger) WithContext(_ any) logger.Logger {
	return l
}

func (l *RecordingLogger) WithFields(fields map[string]any) logger.Logger {
	merged := maps.Clone(l.fields)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	maps.Copy(merged, fields)
	return &RecordingLogger{fields: merged, parent: l.root()}
}

// Events returns a copy of all captured events.
func (l *RecordingLogger) Events() []LoggedEvent {
	r := l.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LoggedEvent(nil), r.events...)
}

// EventsByLevel returns captured events of one level.
func (l *RecordingLogger) EventsByLevel(level string) []LoggedEvent {
	var out []LoggedEvent
	for _, e := range l.Events() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// EventsByMessage returns captured events with the given message.
func (l *RecordingLogger) EventsByMessage(msg string) []LoggedEvent {
	var out []LoggedEvent
	for _, e := range l.Events() {
		if e.Message == msg {
			out = append(out, e)
		}
	}
	return out
}

func (l *RecordingLogger) record(e LoggedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

type recordingEvent struct {
	logger *RecordingLogger
	level  string
	fields map[string]any
}

func (e *recordingEvent) Msg(msg string) {
	e.logger.record(LoggedEvent{Level: e.level, Fields: maps.Clone(e.fields), Message: msg})
}

// Msgf records the format string as the message.
func (e *recordingEvent) Msgf(format string, _ ...any) {
	e.Msg(format)
}

func (e *recordingEvent) set(key string, v any) logger.LogEvent {
	e.fields[key] = v
	return e
}

func (e *recordingEvent) Err(err error) logger.LogEvent {
	return e.set("error", err)
}

func (e *recordingEvent) Str(key, value string) logger.LogEvent {
	return e.set(key, value)
}

func (e *recordingEvent) Int(key string, value int) logger.LogEvent {
	return e.set(key, value)
}

func (e *recordingEvent) Int64(key string, value int64) logger.LogEvent {
	return e.set(key, value)
}

func (e *recordingEvent) Uint64(key string, value uint64) logger.LogEvent {
	return e.set(key, value)
}

func (e *recordingEvent) Bool(key string, value bool) logger.LogEvent {
	return e.set(key, value)
}

func (e *recordingEvent) Dur(key string, d time.Duration) logger.LogEvent {
	return e.set(key, d)
}

func (e *recordingEvent) Interface(key string, i any) logger.LogEvent {
	return e.set(key, i)
}

func (e *recordingEvent) Bytes(key string, val []byte) logger.LogEvent {
	return e.set(key, val)
}
