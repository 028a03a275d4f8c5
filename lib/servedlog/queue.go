package servedlog

import (
	"runtime"
	"sync/atomic"
)

// queueNode is a single element of the queue
type queueNode[T any] struct {
	value T
	next  atomic.Pointer[queueNode[T]]
}

// mpscQueue is an unbounded lock-free multi-producer single-consumer queue.
//
// Producers append to a linked list with CAS operations and never block on
// each other. A single consumer goroutine moves values to the channel returned
// by recv. Under concurrent pushes the order is the order in which the CAS
// operations complete.
type mpscQueue[T any] struct {
	head   atomic.Pointer[queueNode[T]]
	tail   atomic.Pointer[queueNode[T]]
	out    chan T
	closed atomic.Bool

	// pushes that passed the closed check but may not be linked yet
	inflight atomic.Int64

	// wakes the consumer when it waits for new values (capacity 1)
	wake chan struct{}
}

// newMPSCQueue creates a queue and starts its consumer goroutine
func newMPSCQueue[T any]() *mpscQueue[T] {
	sentinel := &queueNode[T]{}

	q := &mpscQueue[T]{
		out:  make(chan T),
		wake: make(chan struct{}, 1),
	}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.consume()

	return q
}

// push appends a value. It returns false if the queue is closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *mpscQueue[T]) push(value T) bool {
	q.inflight.Add(1)
	defer func() {
		q.inflight.Add(-1)
		q.signal()
	}()

	if q.closed.Load() {
		return false
	}

	newNode := &queueNode[T]{value: value}
	var backoff uint8

	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()

		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// may fail if another producer already moved the tail, which is fine
				q.tail.CompareAndSwap(tailNode, newNode)
				return true
			}
		} else {
			// help a producer that appended but did not move the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// exponential backoff under contention
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// consume moves values from the linked list to the output channel
func (q *mpscQueue[T]) consume() {
	defer close(q.out)

	var zero T
	for {
		hasItems := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			hasItems = true

			value := next.value
			q.head.Store(next)
			q.out <- value

			// the node is the new sentinel, drop its value for the gc
			next.value = zero
		}

		// a push that saw the queue open is linked before inflight drops to zero
		if !hasItems && q.closed.Load() && q.inflight.Load() == 0 {
			if q.head.Load().next.Load() == nil {
				return
			}
			continue
		}

		if !hasItems {
			// a push after the check above leaves a token in wake
			<-q.wake
		}
	}
}

// recv returns the channel the consumer delivers values on. The channel is
// closed after close was called and all pending values were delivered.
func (q *mpscQueue[T]) recv() <-chan T {
	return q.out
}

// close stops accepting new values. Values already pushed are still delivered.
func (q *mpscQueue[T]) close() {
	q.closed.Store(true)
	q.signal()
}

// signal wakes the consumer without blocking
func (q *mpscQueue[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// len counts the values waiting in the list. This is O(n), use it for debugging only.
func (q *mpscQueue[T]) len() int {
	count := 0
	for current := q.head.Load().next.Load(); current != nil; current = current.next.Load() {
		count++
	}
	return count
}
