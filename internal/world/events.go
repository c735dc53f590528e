package world

import (
	"fleet-agent-service/internal/domain"
	"sync"
	"time"
)

// eventLog is the fleet-wide event ring. It assigns sequence numbers, so events
// from different trucks can be merged in emission order.
type eventLog struct {
	mu   sync.Mutex
	seq  uint64
	ring history[domain.Event]
}

func newEventLog(limit int) *eventLog {
	return &eventLog{ring: newHistory[domain.Event](limit)}
}

func (l *eventLog) append(ev domain.Event) domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	ev.Seq = l.seq
	l.ring.push(ev)
	return ev
}

// recent returns up to n newest events, oldest first. n <= 0 returns all retained.
func (l *eventLog) recent(n int, keep func(domain.Event) bool) []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Event
	for i := len(l.ring.buf) - 1; i >= 0; i-- {
		if n > 0 && len(out) == n {
			break
		}
		if ev := l.ring.buf[i]; keep == nil || keep(ev) {
			out = append(out, ev)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// RecentEvents returns up to n of the newest fleet events, oldest first.
func (w *World) RecentEvents(n int) []domain.Event {
	return w.events.recent(n, nil)
}

// emit records an event on the fleet log only.
func (w *World) emit(ev domain.Event) domain.Event {
	if ev.At.IsZero() {
		ev.At = w.Now()
	}
	return w.events.append(ev)
}

// emitTruck records an event on both the fleet log and the truck's own ring.
// Caller holds e.mu.
func (w *World) emitTruck(e *truckEntry, ev domain.Event) {
	ev.TruckID = e.truck.TruckID
	ev = w.emit(ev)
	e.events.push(ev)
}

func (w *World) emitTruckAt(e *truckEntry, at time.Time, ev domain.Event) {
	ev.At = at
	w.emitTruck(e, ev)
}
