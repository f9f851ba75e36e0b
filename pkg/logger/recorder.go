package logger

import (
	"context"
	"sync"
)

// Nop returns a Logger that discards everything.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...Field)  {}
func (nopLogger) Error(context.Context, string, ...Field) {}
func (nopLogger) Debug(context.Context, string, ...Field) {}
func (nopLogger) Warn(context.Context, string, ...Field)  {}
func (nopLogger) Fatal(context.Context, string, ...Field) {}
func (n nopLogger) Named(string) Logger                   { return n }

// Entry is one recorded log line.
type Entry struct {
	Level   string
	Name    string
	Message string
	Fields  map[string]any
}

// Recorder keeps entries in memory. Used by tests to assert what was logged.
type Recorder struct {
	name    string
	entries *[]Entry
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{entries: &[]Entry{}}
}

func (r *Recorder) Info(_ context.Context, msg string, fields ...Field) {
	r.add("info", msg, fields)
}

func (r *Recorder) Error(_ context.Context, msg string, fields ...Field) {
	r.add("error", msg, fields)
}

func (r *Recorder) Debug(_ context.Context, msg string, fields ...Field) {
	r.add("debug", msg, fields)
}

func (r *Recorder) Warn(_ context.Context, msg string, fields ...Field) {
	r.add("warn", msg, fields)
}

func (r *Recorder) Fatal(_ context.Context, msg string, fields ...Field) {
	r.add("fatal", msg, fields)
}

// Named returns a recorder sharing the same entry list.
func (r *Recorder) Named(name string) Logger {
	return &Recorder{name: name, entries: r.entries}
}

func (r *Recorder) add(level, msg string, fields []Field) {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	recorderMu.Lock()
	defer recorderMu.Unlock()
	*r.entries = append(*r.entries, Entry{Level: level, Name: r.name, Message: msg, Fields: m})
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	recorderMu.Lock()
	defer recorderMu.Unlock()
	out := make([]Entry, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// Count returns how many entries were recorded at level.
func (r *Recorder) Count(level string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// recorderMu guards the shared entry slice across Named children.
var recorderMu sync.Mutex
