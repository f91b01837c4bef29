package launcher

import (
	"log"
	"sync"
)

// maxPendingEvents bounds the events held while the controller is busy.
const maxPendingEvents = 256

// EventQueue carries UI events from the GTK main loop to the controller.
// Push never blocks, so a controller stuck on the backend cannot freeze the
// window. While events wait, consecutive InputChanged events collapse into
// the newest one.
type EventQueue struct {
	mu      sync.Mutex
	pending []UIEvent

	wake      chan struct{}
	out       chan UIEvent
	done      chan struct{}
	closeOnce sync.Once
}

func NewEventQueue() *EventQueue {
	q := &EventQueue{
		wake: make(chan struct{}, 1),
		out:  make(chan UIEvent),
		done: make(chan struct{}),
	}
	go q.forward()
	return q
}

// Push queues evt for the controller.
func (q *EventQueue) Push(evt UIEvent) {
	q.mu.Lock()
	n := len(q.pending)
	switch {
	case n > 0 && evt.Kind == InputChanged && q.pending[n-1].Kind == InputChanged:
		q.pending[n-1] = evt
	case n >= maxPendingEvents && evt.Kind != Escape && evt.Kind != FocusLost:
		q.mu.Unlock()
		log.Printf("[EVENTS] Controller is not keeping up, dropping %s", evt.Kind)
		return
	default:
		q.pending = append(q.pending, evt)
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Events is the stream the controller reads. It is never closed.
func (q *EventQueue) Events() <-chan UIEvent {
	return q.out
}

// Close stops delivery. Events still pending are discarded.
func (q *EventQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

func (q *EventQueue) pop() (UIEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return UIEvent{}, false
	}
	evt := q.pending[0]
	q.pending = q.pending[1:]
	return evt, true
}

func (q *EventQueue) forward() {
	for {
		select {
		case <-q.wake:
		case <-q.done:
			return
		}

		for {
			evt, ok := q.pop()
			if !ok {
				break
			}
			select {
			case q.out <- evt:
			case <-q.done:
				return
			}
		}
	}
}
