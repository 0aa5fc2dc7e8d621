package testutil

import (
	"io"
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger writing to stdout that is silenced once the
// test finishes, so goroutines outliving the test do not write to it.
func TestLogger(t testing.TB) *log.Logger {
	logger := log.New(os.Stdout, "[test] ", log.LstdFlags|log.Lmsgprefix)
	t.Cleanup(func() {
		logger.SetOutput(io.Discard)
	})
	return logger
}
