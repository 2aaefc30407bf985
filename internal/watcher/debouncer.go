package watcher

import (
	"sync"
	"time"
)

// BatchDebouncer collects events and emits them as one batch once no new
// event has arrived for the delay. Repeated events for a path keep only
// the latest, at the position of the first.
type BatchDebouncer struct {
	delay time.Duration
	emit  func([]Event)

	mu      sync.Mutex
	pending map[string]Event
	order   []string
	timer   *time.Timer
	// gen invalidates timers that fire after Add, Cancel or Flush moved on.
	gen uint64
}

// NewBatchDebouncer creates a debouncer that passes each batch to emit.
func NewBatchDebouncer(delay time.Duration, emit func([]Event)) *BatchDebouncer {
	return &BatchDebouncer{
		delay:   delay,
		emit:    emit,
		pending: make(map[string]Event),
	}
}

// Add queues event and restarts the quiet period.
func (b *BatchDebouncer) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, seen := b.pending[event.Path]; !seen {
		b.order = append(b.order, event.Path)
	}
	b.pending[event.Path] = event

	b.stopLocked()
	gen := b.gen
	b.timer = time.AfterFunc(b.delay, func() { b.fire(gen) })
}

func (b *BatchDebouncer) fire(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	events := b.takeLocked()
	b.mu.Unlock()

	b.send(events)
}

// Cancel drops pending events without emitting them.
func (b *BatchDebouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()
	b.takeLocked()
}

// Flush emits pending events now.
func (b *BatchDebouncer) Flush() {
	b.mu.Lock()
	b.stopLocked()
	events := b.takeLocked()
	b.mu.Unlock()

	b.send(events)
}

// EventCount returns the number of pending events.
func (b *BatchDebouncer) EventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

func (b *BatchDebouncer) stopLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
}

func (b *BatchDebouncer) takeLocked() []Event {
	events := make([]Event, 0, len(b.order))
	for _, p := range b.order {
		events = append(events, b.pending[p])
	}
	b.pending = make(map[string]Event)
	b.order = nil
	return events
}

func (b *BatchDebouncer) send(events []Event) {
	if len(events) > 0 && b.emit != nil {
		b.emit(events)
	}
}
