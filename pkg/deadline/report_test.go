package deadline_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/snehjoshi/deadline/pkg/deadline"
	"github.com/snehjoshi/deadline/pkg/wake"
)

// syncBuffer is a bytes.Buffer safe for the timer goroutine to write to.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestLogReporter_LogsPanicWithScheduledTime(t *testing.T) {
	var out syncBuffer
	logger := slog.New(slog.NewJSONHandler(&out, nil))
	s := deadline.New(deadline.WithBus(wake.NewBus()), deadline.WithLogger(logger))

	before := time.Now().Add(-time.Millisecond)
	s.After(func() { panic("boom") }, 0)
	after := time.Now().Add(time.Millisecond)

	if !waitFor(t, 2*time.Second, func() bool { return len(out.Bytes()) > 0 }) {
		t.Fatal("nothing logged for a panicking callback")
	}

	var line struct {
		Level       string    `json:"level"`
		Msg         string    `json:"msg"`
		ID          string    `json:"id"`
		ScheduledAt time.Time `json:"scheduled_at"`
		Panic       string    `json:"panic"`
		Stack       string    `json:"stack"`
	}
	if err := json.Unmarshal(bytes.SplitN(out.Bytes(), []byte("\n"), 2)[0], &line); err != nil {
		t.Fatalf("decode log line: %v\n%s", err, out.Bytes())
	}
	if line.Level != "ERROR" || line.Msg != "deadline callback panicked" {
		t.Errorf("unexpected record: level=%q msg=%q", line.Level, line.Msg)
	}
	if line.Panic != "boom" || line.Stack == "" || len(line.ID) != 26 {
		t.Errorf("incomplete record: panic=%q id=%q stack=%d bytes", line.Panic, line.ID, len(line.Stack))
	}
	if line.ScheduledAt.Before(before) || line.ScheduledAt.After(after) {
		t.Errorf("scheduled_at %v outside [%v, %v]", line.ScheduledAt, before, after)
	}
}
