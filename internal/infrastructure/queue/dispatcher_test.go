package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

type recordingWriter struct {
	mu     sync.Mutex
	writes map[string][]time.Time
	err    error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{writes: make(map[string][]time.Time)}
}

func (w *recordingWriter) UpdateLastLogin(_ context.Context, role domain.Role, id string, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes[string(role)+":"+id] = append(w.writes[string(role)+":"+id], at)
	return w.err
}

func TestDispatcher_DrainsOnClose(t *testing.T) {
	w := newRecordingWriter()
	d := NewDispatcher(3, w, zerolog.Nop())
	d.Start()

	base := time.Now()
	d.Record(context.Background(),
		ports.LastLoginUpdate{Role: domain.RoleClient, ID: "c1", At: base},
		ports.LastLoginUpdate{Role: domain.RoleTrader, ID: "t1", At: base},
	)
	d.Close()

	if len(w.writes["CLIENT:c1"]) != 1 || len(w.writes["TRADER:t1"]) != 1 {
		t.Fatalf("expected both updates written, got %v", w.writes)
	}
}

func TestDispatcher_PreservesOrderPerIdentity(t *testing.T) {
	w := newRecordingWriter()
	d := NewDispatcher(4, w, zerolog.Nop())
	d.Start()

	base := time.Now()
	for i := 0; i < 50; i++ {
		d.Record(context.Background(), ports.LastLoginUpdate{Role: domain.RoleAdmin, ID: "a1", At: base.Add(time.Duration(i) * time.Second)})
	}
	d.Close()

	got := w.writes["ADMIN:a1"]
	if len(got) != 50 {
		t.Fatalf("expected 50 writes, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Before(got[i-1]) {
			t.Fatalf("writes out of order at %d", i)
		}
	}
}

func TestDispatcher_WriteErrorsDoNotStopWorker(t *testing.T) {
	w := newRecordingWriter()
	w.err = errors.New("mongo down")
	d := NewDispatcher(1, w, zerolog.Nop())
	d.Start()

	d.Record(context.Background(),
		ports.LastLoginUpdate{Role: domain.RoleClient, ID: "c1", At: time.Now()},
		ports.LastLoginUpdate{Role: domain.RoleClient, ID: "c2", At: time.Now()},
	)
	d.Close()

	if len(w.writes) != 2 {
		t.Fatalf("expected both writes attempted, got %v", w.writes)
	}
}

func TestDispatcher_RecordAfterCloseIsDropped(t *testing.T) {
	w := newRecordingWriter()
	d := NewDispatcher(1, w, zerolog.Nop())
	d.Start()
	d.Close()
	d.Close()

	d.Record(context.Background(), ports.LastLoginUpdate{Role: domain.RoleClient, ID: "c1", At: time.Now()})
	if len(w.writes) != 0 {
		t.Fatalf("expected no writes after close, got %v", w.writes)
	}
}
