package testlog

import (
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"pest-spread/internal/logging"
)

type tWriter struct{ t testing.TB }

func (w tWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// New returns a debug logger that routes output through t.Log.
func New(t testing.TB) *log.Logger {
	t.Helper()
	logger := logging.New(tWriter{t: t}, logging.DefaultOptions(logging.ProfileTest))
	logger.Debug("test", "name", t.Name())
	return logger
}
