package aggregator

import (
	"sync"

	"github.com/Redish03/StepCounter/internal/domain"
)

// Broadcaster fans step updates out to in-process observers. Delivery is
// fire-and-forget: a slow observer sees the latest value, not every
// intermediate one.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan domain.StepUpdate
	next int
}

// NewBroadcaster constructs an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan domain.StepUpdate)}
}

// Subscribe registers an observer. The returned cancel func releases it.
func (b *Broadcaster) Subscribe() (<-chan domain.StepUpdate, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan domain.StepUpdate, 1)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the update without blocking. A full observer channel is
// drained first so it always holds the most recent count.
func (b *Broadcaster) Publish(update domain.StepUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
}
