package eventqueue

import "errors"

var ErrFull = errors.New("eventqueue: queue is full")

// Queue is a bounded FIFO ring. Its backing buffer is a power of two so
// positions wrap with a mask, but it never holds more than Cap events.
//
// Queue is single-writer; it is owned by one auction instruction at a time.
type Queue struct {
	head uint64
	tail uint64
	buf  []Event
	mask uint64
	cap  int
}

func New(capacity int) *Queue {
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}
	return &Queue{buf: make([]Event, size), mask: size - 1, cap: capacity}
}

// PushBack appends an event, failing with ErrFull at capacity.
func (q *Queue) PushBack(e Event) error {
	if q.Len() >= q.cap {
		return ErrFull
	}
	q.buf[q.head&q.mask] = e
	q.head++
	return nil
}

// Peek returns the i-th oldest event without removing it.
func (q *Queue) Peek(i int) (Event, bool) {
	if i < 0 || i >= q.Len() {
		return Event{}, false
	}
	return q.buf[(q.tail+uint64(i))&q.mask], true
}

// PopN drops up to n of the oldest events and reports how many it dropped.
func (q *Queue) PopN(n int) int {
	if l := q.Len(); n > l {
		n = l
	}
	for i := 0; i < n; i++ {
		q.buf[q.tail&q.mask] = Event{}
		q.tail++
	}
	return n
}

// Len returns the number of events currently stored.
func (q *Queue) Len() int { return int(q.head - q.tail) }

// Cap returns the maximum number of events.
func (q *Queue) Cap() int { return q.cap }

func (q *Queue) IsEmpty() bool { return q.head == q.tail }

func (q *Queue) IsFull() bool { return q.Len() >= q.cap }

// Events copies the stored events oldest first.
func (q *Queue) Events() []Event {
	out := make([]Event, 0, q.Len())
	for i := 0; i < q.Len(); i++ {
		e, _ := q.Peek(i)
		out = append(out, e)
	}
	return out
}

// Restore rebuilds a queue holding events oldest first.
func Restore(capacity int, events []Event) (*Queue, error) {
	q := New(capacity)
	for _, e := range events {
		if err := q.PushBack(e); err != nil {
			return nil, err
		}
	}
	return q, nil
}
