package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sweetshop/inventory-service/internal/api/metrics"
	"github.com/sweetshop/inventory-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes stock events to a fixed set of workers using consistent
// hashing on the item ID, so events for one item are recorded in the order
// they were published.
type Dispatcher struct {
	workers []chan ports.StockEventInput
	service ports.StockEventService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.StockEventService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.StockEventInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.StockEventInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Publish hands an event to the worker responsible for its item. It never
// blocks the caller: when that worker's buffer is full the event is dropped.
func (d *Dispatcher) Publish(event ports.StockEventInput) {
	idx := d.shardIndex(event.ItemID)
	select {
	case d.workers[idx] <- event:
		metrics.StockEventQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.StockEventsDroppedTotal.Inc()
		d.log.Warn().
			Str("item_id", event.ItemID).
			Str("kind", event.Kind).
			Int("worker_id", idx).
			Msg("stock event dropped: queue full")
	}
}

// shardIndex maps an item ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(itemID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(itemID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.StockEventInput) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			metrics.StockEventQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.service.Record(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("item_id", event.ItemID).
					Int("worker_id", id).
					Msg("stock event recording failed")
			}
		}
	}
}
