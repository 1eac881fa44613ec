package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/api/metrics"
	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// AuditDispatcher moves audit writes off the request path through a fixed set
// of workers, sharded by correlation id so one request's records stay ordered.
// Persistence failures are logged and counted, never surfaced: audit is
// best-effort relative to the primary response.
type AuditDispatcher struct {
	workers []chan *domain.AuditRecord
	repo    ports.AuditRepository
	log     zerolog.Logger
}

// NewAuditDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewAuditDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers: make([]chan *domain.AuditRecord, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan *domain.AuditRecord, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *AuditDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Record enqueues one audit record. When the target worker's queue is full
// the record is dropped rather than blocking the request.
func (d *AuditDispatcher) Record(_ context.Context, rec *domain.AuditRecord) {
	ch := d.workers[d.shardIndex(rec.CorrelationID)]
	select {
	case ch <- rec:
	default:
		metrics.AuditDropped.Inc()
		d.log.Warn().
			Str("correlation_id", rec.CorrelationID).
			Str("action", rec.Action).
			Msg("audit queue full, record dropped")
	}
}

// shardIndex maps a correlation id deterministically to a worker index.
func (d *AuditDispatcher) shardIndex(correlationID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(correlationID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *AuditDispatcher) runWorker(ctx context.Context, id int, ch <-chan *domain.AuditRecord) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-ch:
			if !ok {
				return
			}
			// Persist with a background context: the originating request may
			// already be gone, the record still has to land.
			if err := d.repo.Append(context.Background(), rec); err != nil {
				d.log.Error().Err(err).
					Str("correlation_id", rec.CorrelationID).
					Int("worker_id", id).
					Msg("audit record persistence failed")
			}
		}
	}
}
