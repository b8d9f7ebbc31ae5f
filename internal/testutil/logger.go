package testutil

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger captures log entries for assertions
type TestLogger struct {
	logs *observer.ObservedLogs
	core zapcore.Core
}

// NewTestLogger captures entries at debug level and above
func NewTestLogger() *TestLogger {
	core, logs := observer.New(zapcore.DebugLevel)
	return &TestLogger{logs: logs, core: core}
}

// Logger returns a logger writing to the capture
func (l *TestLogger) Logger() *zap.SugaredLogger {
	return zap.New(l.core).Sugar()
}

// Messages returns every captured message in order
func (l *TestLogger) Messages() []string {
	entries := l.logs.All()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}

// Entries returns entries whose message is msg
func (l *TestLogger) Entries(msg string) []observer.LoggedEntry {
	return l.logs.FilterMessage(msg).All()
}

// HasLevel reports whether any entry was logged at level
func (l *TestLogger) HasLevel(level zapcore.Level) bool {
	return l.logs.FilterLevelExact(level).Len() > 0
}

// Clear drops captured entries
func (l *TestLogger) Clear() {
	l.logs.TakeAll()
}

// TestingT is the subset of testing.T used by WaitFor
type TestingT interface {
	Helper()
	Errorf(format string, args ...any)
}

// WaitFor polls condition until it returns true or timeout passes
func WaitFor(t TestingT, condition func() bool, timeout time.Duration, msgAndArgs ...any) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}

	if condition() {
		return true
	}
	if len(msgAndArgs) > 0 {
		if format, ok := msgAndArgs[0].(string); ok {
			t.Errorf("condition not met within %v: "+format, append([]any{timeout}, msgAndArgs[1:]...)...)
			return false
		}
	}
	t.Errorf("condition not met within %v", timeout)
	return false
}
