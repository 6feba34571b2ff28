package testutil

import (
	"io"
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger prefixed with the test name. Output is
// discarded once the test finishes.
func TestLogger(t *testing.T) *log.Logger {
	logger := log.New(os.Stdout, "["+t.Name()+"] ", log.LstdFlags|log.Lmsgprefix)
	t.Cleanup(func() {
		logger.SetOutput(io.Discard)
	})
	return logger
}
