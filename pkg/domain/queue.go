package domain

import (
	list "github.com/bahlo/generic-list-go"
)

// Queue is a FIFO of fiber references that also supports front insertion.
// The zero value is an empty queue ready to use.
type Queue struct {
	l list.List[*Fiber]
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// PushBack appends f to the tail.
func (q *Queue) PushBack(f *Fiber) {
	q.l.PushBack(f)
}

// PushFront inserts f at the head, ahead of already queued fibers.
func (q *Queue) PushFront(f *Fiber) {
	q.l.PushFront(f)
}

// PopFront removes and returns the head, or nil when the queue is empty.
func (q *Queue) PopFront() *Fiber {
	e := q.l.Front()
	if e == nil {
		return nil
	}
	return q.l.Remove(e)
}

// Len reports the number of queued fibers.
func (q *Queue) Len() int {
	return q.l.Len()
}

// Each calls fn for every queued fiber, head first.
func (q *Queue) Each(fn func(*Fiber)) {
	for e := q.l.Front(); e != nil; e = e.Next() {
		fn(e.Value)
	}
}
