package queue

import (
	"container/heap"
	"time"

	"conduit/pkg/models"
)

// entry is a live message plus its position in whichever heap holds it.
type entry struct {
	msg   *models.Message
	seq   uint64
	index int
}

// readyHeap orders eligible messages by priority (highest first), then by
// enqueue sequence.
type readyHeap []*entry

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority > h[j].msg.Priority
	}
	return h[i].seq < h[j].seq
}

func (h readyHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *readyHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// delayedHeap orders messages waiting out a backoff by the time they become
// eligible.
type delayedHeap []*entry

func (h delayedHeap) Len() int { return len(h) }

func (h delayedHeap) Less(i, j int) bool {
	if !h[i].msg.NextAttemptAt.Equal(h[j].msg.NextAttemptAt) {
		return h[i].msg.NextAttemptAt.Before(h[j].msg.NextAttemptAt)
	}
	return h[i].seq < h[j].seq
}

func (h delayedHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayedHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// channel is the state of one named queue. All access goes through the
// orchestrator lock.
type channel struct {
	name    string
	ready   readyHeap
	delayed delayedHeap

	processing   int
	failed       int
	deadLettered int

	// wake is closed and replaced whenever a message may have become
	// available, releasing every waiting Dequeue.
	wake chan struct{}
}

func newChannel(name string) *channel {
	return &channel{name: name, wake: make(chan struct{})}
}

func (c *channel) broadcast() {
	close(c.wake)
	c.wake = make(chan struct{})
}

// push places e in the ready heap when it is eligible at now, otherwise in
// the delayed heap.
func (c *channel) push(e *entry, now time.Time) {
	if e.msg.Eligible(now) {
		heap.Push(&c.ready, e)
	} else {
		heap.Push(&c.delayed, e)
	}
	c.broadcast()
}

// promote moves every delayed message whose backoff has elapsed into the
// ready heap.
func (c *channel) promote(now time.Time) {
	for c.delayed.Len() > 0 && c.delayed[0].msg.Eligible(now) {
		e := heap.Pop(&c.delayed).(*entry)
		heap.Push(&c.ready, e)
	}
}

func (c *channel) popReady() *entry {
	if c.ready.Len() == 0 {
		return nil
	}
	return heap.Pop(&c.ready).(*entry)
}

// nextDeadline is the earliest time a delayed message becomes eligible.
func (c *channel) nextDeadline() (time.Time, bool) {
	if c.delayed.Len() == 0 {
		return time.Time{}, false
	}
	return c.delayed[0].msg.NextAttemptAt, true
}

// remove takes a waiting entry out of whichever heap holds it.
func (c *channel) remove(e *entry) {
	switch {
	case e.index < 0:
	case e.index < c.ready.Len() && c.ready[e.index] == e:
		heap.Remove(&c.ready, e.index)
	case e.index < c.delayed.Len() && c.delayed[e.index] == e:
		heap.Remove(&c.delayed, e.index)
	}
}

func (c *channel) waiting() []*entry {
	out := make([]*entry, 0, c.ready.Len()+c.delayed.Len())
	out = append(out, c.ready...)
	out = append(out, c.delayed...)
	return out
}
