package sync

import "github.com/sdejongh/drivesync/pkg/models"

// WorkQueue holds the containers still to be expanded during one run
type WorkQueue struct {
	order models.QueueOrder
	items []models.WorkItem
	head  int // first live item in fifo mode
}

// NewWorkQueue creates an empty queue with the given discipline
func NewWorkQueue(order models.QueueOrder) *WorkQueue {
	if order == "" {
		order = models.QueueStack
	}
	return &WorkQueue{order: order}
}

// Push adds a pending container
func (q *WorkQueue) Push(item models.WorkItem) {
	q.items = append(q.items, item)
}

// Pop removes the next container: the newest for a stack, the oldest for fifo
func (q *WorkQueue) Pop() (models.WorkItem, bool) {
	if q.Len() == 0 {
		return models.WorkItem{}, false
	}

	if q.order == models.QueueFIFO {
		item := q.items[q.head]
		q.items[q.head] = models.WorkItem{}
		q.head++
		if q.head == len(q.items) {
			q.items = q.items[:0]
			q.head = 0
		}
		return item, true
	}

	last := len(q.items) - 1
	item := q.items[last]
	q.items = q.items[:last]
	return item, true
}

// Len returns the number of pending containers
func (q *WorkQueue) Len() int {
	return len(q.items) - q.head
}
