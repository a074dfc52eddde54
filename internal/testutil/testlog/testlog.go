package testlog

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/danmuck/mgmtd/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("test start")
}

// Buffer is a goroutine-safe sink for captured log lines.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns captured JSON log lines.
func (b *Buffer) Lines() []string {
	raw := strings.TrimSpace(b.String())
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

// Count returns how many lines contain every fragment.
func (b *Buffer) Count(fragments ...string) int {
	n := 0
	for _, line := range b.Lines() {
		match := true
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}

// Capture redirects the global logger to a JSON buffer until the test ends.
func Capture(t *testing.T) *Buffer {
	t.Helper()
	Start(t)
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	buf := &Buffer{}
	log.Logger = zerolog.New(buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
	return buf
}
