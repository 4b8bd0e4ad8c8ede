package main

// queue is a fixed size ring buffer. One slot is always left unused so that
// head == tail means empty and head+1 == tail means full; a queue of size n
// holds at most n-1 items. Pushing onto a full queue drops the new item.
type queue[T any] struct {
	buf        []T
	head, tail int
}

func newQueue[T any](n int) queue[T] {
	return queue[T]{buf: make([]T, n)}
}

func (q *queue[T]) empty() bool { return q.head == q.tail }
func (q *queue[T]) full() bool  { return (q.head+1)%len(q.buf) == q.tail }

// len returns the number of items held.
func (q *queue[T]) len() int {
	return (q.head - q.tail + len(q.buf)) % len(q.buf)
}

// push appends v, reporting false if the queue was full and v was dropped.
func (q *queue[T]) push(v T) bool {
	if q.full() {
		return false
	}
	q.buf[q.head] = v
	q.head = (q.head + 1) % len(q.buf)
	return true
}

// pop removes the oldest item. On an empty queue it returns the zero value
// and false.
func (q *queue[T]) pop() (T, bool) {
	var zero T
	if q.empty() {
		return zero, false
	}
	v := q.buf[q.tail]
	q.buf[q.tail] = zero
	q.tail = (q.tail + 1) % len(q.buf)
	return v, true
}

func (q *queue[T]) reset() {
	clear(q.buf)
	q.head, q.tail = 0, 0
}
