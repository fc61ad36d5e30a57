package monitoring

import (
	"sync"
	"time"

	"conduit/pkg/models"
)

const minLogCapacity = 64

// eventLog keeps the most recent events in arrival order, bounded by count
// and age. Events live in a ring; appends never copy the retained window.
type eventLog struct {
	mu        sync.RWMutex
	buf       []models.Event
	head      int
	size      int
	maxEvents int
	retention time.Duration
}

func newEventLog(maxEvents int, retention time.Duration) *eventLog {
	return &eventLog{maxEvents: maxEvents, retention: retention}
}

func (l *eventLog) at(i int) *models.Event {
	return &l.buf[(l.head+i)%len(l.buf)]
}

func (l *eventLog) popFront() {
	l.buf[l.head] = models.Event{}
	l.head = (l.head + 1) % len(l.buf)
	l.size--
}

// grow doubles the ring, capped at maxEvents, and unrolls it so head is 0.
func (l *eventLog) grow() {
	capacity := 2 * len(l.buf)
	if capacity < minLogCapacity {
		capacity = minLogCapacity
	}
	if l.maxEvents > 0 && capacity > l.maxEvents {
		capacity = l.maxEvents
	}
	buf := make([]models.Event, capacity)
	for i := 0; i < l.size; i++ {
		buf[i] = *l.at(i)
	}
	l.buf = buf
	l.head = 0
}

func (l *eventLog) append(e models.Event, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxEvents > 0 && l.size == l.maxEvents {
		l.popFront()
	}
	if l.size == len(l.buf) {
		l.grow()
	}
	*l.at(l.size) = e
	l.size++

	if l.retention > 0 {
		cutoff := now.Add(-l.retention)
		for l.size > 0 && l.at(0).Timestamp.Before(cutoff) {
			l.popFront()
		}
	}
}

// window returns the events with from <= Timestamp < to that match keep.
func (l *eventLog) window(from, to time.Time, keep func(*models.Event) bool) []models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.Event
	for i := 0; i < l.size; i++ {
		e := l.at(i)
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		if keep != nil && !keep(e) {
			continue
		}
		out = append(out, *e)
	}
	return out
}

func (l *eventLog) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}
