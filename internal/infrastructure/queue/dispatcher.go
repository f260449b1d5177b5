package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/api/metrics"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// LastLoginWriter is the single store operation the dispatcher needs.
type LastLoginWriter interface {
	UpdateLastLogin(ctx context.Context, role domain.Role, id string, at time.Time) error
}

// Dispatcher moves last-login writes off the login path. Updates are sharded
// by identity so writes for one identity are applied in arrival order.
type Dispatcher struct {
	workers []chan ports.LastLoginUpdate
	writer  LastLoginWriter
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, writer LastLoginWriter, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.LastLoginUpdate, numWorkers),
		writer:  writer,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.LastLoginUpdate, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. They exit once Close has drained them.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Record enqueues updates. It blocks only while a shard is full, and gives up
// on an update when ctx ends first.
func (d *Dispatcher) Record(ctx context.Context, updates ...ports.LastLoginUpdate) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Int("updates", len(updates)).Msg("dispatcher closed, dropping last-login updates")
		return
	}

	for _, u := range updates {
		idx := d.shardIndex(u)
		select {
		case d.workers[idx] <- u:
			metrics.LastLoginQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		case <-ctx.Done():
			d.log.Warn().Str("role", string(u.Role)).Str("id", u.ID).Msg("last-login update dropped: request ended")
		}
	}
}

// Close stops accepting updates and waits for queued ones to be written.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps an identity deterministically to a worker index.
func (d *Dispatcher) shardIndex(u ports.LastLoginUpdate) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(u.Role))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(u.ID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(id int, ch <-chan ports.LastLoginUpdate) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for u := range ch {
		metrics.LastLoginQueueDepth.WithLabelValues(label).Dec()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := d.writer.UpdateLastLogin(ctx, u.Role, u.ID, u.At)
		cancel()
		if err != nil {
			metrics.LastLoginWriteErrorsTotal.Inc()
			d.log.Error().Err(err).
				Str("role", string(u.Role)).
				Str("id", u.ID).
				Int("worker_id", id).
				Msg("last-login update failed")
		}
	}
}
