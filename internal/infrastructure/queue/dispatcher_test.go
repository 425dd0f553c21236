package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweetshop/inventory-service/internal/core/ports"
)

type recordingService struct {
	mu     sync.Mutex
	events []ports.StockEventInput
	err    error
	done   chan struct{}
	want   int
}

func newRecordingService(want int) *recordingService {
	return &recordingService{done: make(chan struct{}), want: want}
}

func (s *recordingService) Record(_ context.Context, e ports.StockEventInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if len(s.events) == s.want {
		close(s.done)
	}
	return s.err
}

func (s *recordingService) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %d events", s.want)
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, newRecordingService(0), zerolog.Nop())
	for _, id := range []string{"a", "65f1c2", "item-42"} {
		first := d.shardIndex(id)
		for i := 0; i < 10; i++ {
			if got := d.shardIndex(id); got != first {
				t.Fatalf("shardIndex(%q) changed: %d then %d", id, first, got)
			}
		}
		if first < 0 || first >= 8 {
			t.Fatalf("shardIndex(%q) = %d out of range", id, first)
		}
	}
}

func TestDispatcher_DefaultWorkers(t *testing.T) {
	d := NewDispatcher(0, newRecordingService(0), zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
}

func TestDispatcher_PreservesPerItemOrder(t *testing.T) {
	const n = 50
	svc := newRecordingService(n)
	d := NewDispatcher(4, svc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 0; i < n; i++ {
		d.Publish(ports.StockEventInput{ItemID: "item-1", Kind: "purchase", Quantity: n - i})
	}
	svc.wait(t)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for i, e := range svc.events {
		if e.Quantity != n-i {
			t.Fatalf("event %d out of order: quantity %d", i, e.Quantity)
		}
	}
}

func TestDispatcher_RecordErrorDoesNotStopWorker(t *testing.T) {
	svc := newRecordingService(3)
	svc.err = errors.New("store down")
	d := NewDispatcher(1, svc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 0; i < 3; i++ {
		d.Publish(ports.StockEventInput{ItemID: strconv.Itoa(i), Kind: "restock"})
	}
	svc.wait(t)
}

func TestDispatcher_PublishDropsWhenFull(t *testing.T) {
	svc := newRecordingService(0)
	d := NewDispatcher(1, svc, zerolog.Nop())

	// Workers are not started, so the buffer fills up.
	for i := 0; i < channelBuffer+10; i++ {
		d.Publish(ports.StockEventInput{ItemID: "x", Kind: "purchase"})
	}
	if got := len(d.workers[0]); got != channelBuffer {
		t.Fatalf("expected buffer of %d, got %d", channelBuffer, got)
	}
}

func TestDispatcher_StopsOnCancel(t *testing.T) {
	d := NewDispatcher(2, newRecordingService(0), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop after cancel")
	}
}
