// Package queue implements the bounded, blocking, timed message queue that
// decouples sensor producers from the fusion engine consumer.
//
// It reproduces the original ring-buffer design from queue.c: one mutex
// plus two condition variables (not_empty, not_full), a non-blocking push,
// and a pop that honours timeout_ms = -1 (block indefinitely), 0 (return
// immediately) and >0 (bounded wait with a computed deadline, re-checking
// the predicate on every wakeup to absorb spurious wakeups).
package queue

import (
	"sync"
	"time"

	"mec-fusion-go/internal/mecerr"
	"mec-fusion-go/internal/trackbuf"
)

// Message is one unit of producer output: a sensor id, its detections, and
// the timestamp the batch was produced at.
type Message struct {
	SensorID  int
	Tracks    *trackbuf.Buffer
	Timestamp int64
}

// Queue is a bounded FIFO ring buffer of Messages.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buffer   []Message
	capacity int
	head     int
	tail     int
	count    int
	closed   bool
}

// New creates a queue with the given capacity (the spec's default is 50).
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &Queue{
		buffer:   make([]Message, capacity),
		capacity: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push is non-blocking. It returns mecerr.ErrQueueFull if the queue is at
// capacity, or mecerr.ErrQueueClosed after Destroy. On success the queue
// retains the embedded track buffer (co-ownership with the producer) and
// signals any pop blocked on not_empty.
func (q *Queue) Push(msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return mecerr.ErrQueueClosed
	}
	if q.count >= q.capacity {
		return mecerr.ErrQueueFull
	}

	if msg.Tracks != nil {
		msg.Tracks.Retain()
	}
	q.buffer[q.head] = msg
	q.head = (q.head + 1) % q.capacity
	q.count++
	q.notEmpty.Signal()
	return nil
}

// Pop blocks up to timeoutMs milliseconds waiting for a message.
//
//	timeoutMs <  0: block indefinitely.
//	timeoutMs == 0: return immediately (mecerr.ErrQueueTimeout if empty).
//	timeoutMs >  0: block until a message arrives or the deadline passes.
//
// On success ownership of the track-buffer reference transfers to the
// caller: the queue does not Release it, the caller must.
func (q *Queue) Pop(timeoutMs int) (Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if timeoutMs == 0 {
		if q.count == 0 {
			if q.closed {
				return Message{}, mecerr.ErrQueueClosed
			}
			return Message{}, mecerr.ErrQueueTimeout
		}
		return q.popLocked(), nil
	}

	if timeoutMs < 0 {
		for q.count == 0 && !q.closed {
			q.notEmpty.Wait()
		}
		if q.count == 0 {
			return Message{}, mecerr.ErrQueueClosed
		}
		return q.popLocked(), nil
	}

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for q.count == 0 && !q.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Message{}, mecerr.ErrQueueTimeout
		}
		// sync.Cond has no timed wait; emulate the deadline with a timer
		// that broadcasts not_empty when it passes and re-check, mirroring the
		// pthread_cond_timedwait retry-on-spurious-wakeup loop.
		timer := time.AfterFunc(remaining, func() {
			q.mu.Lock()
			q.notEmpty.Broadcast()
			q.mu.Unlock()
		})
		q.notEmpty.Wait()
		timer.Stop()
	}
	if q.count == 0 {
		if q.closed {
			return Message{}, mecerr.ErrQueueClosed
		}
		return Message{}, mecerr.ErrQueueTimeout
	}
	return q.popLocked(), nil
}

// popLocked must be called with q.mu held and q.count > 0.
func (q *Queue) popLocked() Message {
	msg := q.buffer[q.tail]
	q.buffer[q.tail] = Message{}
	q.tail = (q.tail + 1) % q.capacity
	q.count--
	q.notFull.Signal()
	return msg
}

// Size returns a consistent point-in-time count of enqueued messages.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Destroy drains any remaining messages, releasing their track buffers,
// marks the queue closed, and wakes any blocked waiters.
func (q *Queue) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count > 0 {
		msg := q.popLocked()
		if msg.Tracks != nil {
			msg.Tracks.Release()
		}
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
