package verification

import "sync"

// Events fans completion events out to subscribers. Handlers, the
// notification service and tests all consume the same signal instead of
// registering ad hoc callbacks.
type Events struct {
	mu   sync.Mutex
	subs []chan CompletionEvent
}

func NewEvents() *Events {
	return &Events{}
}

// Subscribe returns a channel that receives every subsequent completion
// event. Slow subscribers drop events rather than block the reconciler.
func (e *Events) Subscribe() <-chan CompletionEvent {
	ch := make(chan CompletionEvent, 16)
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	return ch
}

func (e *Events) publish(ev CompletionEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
