package orchestrator

import (
	"sync"
	"sync/atomic"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// eventSubscriberQueueSize bounds one subscriber's buffered channel;
// beyond this, new events replace the oldest unread one rather than
// blocking the publisher (spec.md §4.7's drop-oldest overflow policy).
const eventSubscriberQueueSize = 64

// subscription is one reader's view of the broadcast channel.
type subscription struct {
	id      uint64
	jobID   string // empty means "all jobs"
	ch      chan models.ScanEvent
	dropped uint64
}

// eventBus is the single-writer/many-reader broadcast channel the
// orchestrator publishes every ScanEvent onto. Slow subscribers never
// back-pressure the publisher: their queue overflows by dropping the
// oldest buffered event and incrementing an observable counter.
type eventBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscription
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[uint64]*subscription)}
}

// Subscribe returns a channel that receives every ScanEvent for jobID
// (or every job, if jobID is empty), and an unsubscribe function.
func (b *eventBus) Subscribe(jobID string) (<-chan models.ScanEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := atomic.AddUint64(&b.nextID, 1)
	sub := &subscription{id: id, jobID: jobID, ch: make(chan models.ScanEvent, eventSubscriberQueueSize)}
	b.subs[id] = sub

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			close(s.ch)
			delete(b.subs, id)
		}
	}
	return sub.ch, unsubscribe
}

// Publish fans event out to every matching subscriber. A full
// subscriber channel has its oldest event dropped to make room; the
// publisher itself never blocks.
func (b *eventBus) Publish(event models.ScanEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.jobID != "" && sub.jobID != event.JobID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			select {
			case <-sub.ch:
				atomic.AddUint64(&sub.dropped, 1)
			default:
			}
			select {
			case sub.ch <- event:
			default:
			}
		}
	}
}

// DroppedCount reports how many events have been dropped across every
// active subscriber, for observability.
func (b *eventBus) DroppedCount() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total uint64
	for _, s := range b.subs {
		total += atomic.LoadUint64(&s.dropped)
	}
	return total
}
