package pool

import "sync"

// taskQueue is the FIFO of tasks waiting for a worker. Workers pop from it
// concurrently; the mutex makes pop-front-if-nonempty a single step.
type taskQueue struct {
	mu    sync.Mutex
	items []queuedTask
	head  int
}

func newTaskQueue() *taskQueue {
	return &taskQueue{}
}

// push appends fn and returns its submission index.
func (q *taskQueue) push(fn Task) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := len(q.items)
	q.items = append(q.items, queuedTask{index: idx, fn: fn})
	return idx
}

func (q *taskQueue) pop() (queuedTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.items) {
		return queuedTask{}, false
	}

	t := q.items[q.head]
	q.items[q.head] = queuedTask{} // release the closure
	q.head++
	return t, true
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
