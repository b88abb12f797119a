// Package queue holds the session's pending work: a FIFO of posted
// functions and a list of actions due at a later instant.
package queue

import (
	"sort"
	"sync"
	"time"
)

// Queue is a goroutine-safe FIFO. Producers Push from any goroutine; the
// owning loop drains it with Drain.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends items.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain returns every queued item in push order and empties the queue.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

type entry[T any] struct {
	due time.Time
	seq uint64
	v   T
}

// Delayed releases values once their due time has passed. Values due at
// the same instant come out in push order.
type Delayed[T any] struct {
	mu      sync.Mutex
	seq     uint64
	entries []entry[T]
}

// NewDelayed creates an empty delay queue.
func NewDelayed[T any]() *Delayed[T] {
	return &Delayed[T]{}
}

// Push schedules v for release at due.
func (d *Delayed[T]) Push(due time.Time, v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	d.entries = append(d.entries, entry[T]{due: due, seq: d.seq, v: v})
	sort.SliceStable(d.entries, func(i, j int) bool {
		return d.entries[i].due.Before(d.entries[j].due)
	})
}

// PopDue removes and returns every value due at or before now.
func (d *Delayed[T]) PopDue(now time.Time) []T {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for n < len(d.entries) && !d.entries[n].due.After(now) {
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]T, n)
	for i := range n {
		out[i] = d.entries[i].v
	}
	d.entries = append(d.entries[:0], d.entries[n:]...)
	return out
}

// Len returns the number of scheduled values.
func (d *Delayed[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Clear drops everything scheduled.
func (d *Delayed[T]) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = nil
}
