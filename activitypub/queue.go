package activitypub

import (
	"log"
)

const inboxQueueDepth = 1024

// InboxQueue decouples inbox HTTP handlers from activity processing.
// One worker drains a single FIFO, so activities apply in arrival
// order across all senders and handlers never race each other.
type InboxQueue struct {
	processor *Processor
	items     chan *InboxItem
}

func NewInboxQueue(processor *Processor) *InboxQueue {
	return &InboxQueue{
		processor: processor,
		items:     make(chan *InboxItem, inboxQueueDepth),
	}
}

// Start launches the single processing worker.
func (q *InboxQueue) Start() {
	go func() {
		for item := range q.items {
			if err := q.processor.Process(item); err != nil {
				log.Printf("Inbox: processing %s failed: %v", item.Activity.ID, err)
			}
		}
	}()
}

// Enqueue hands validated activities to the worker. When the queue is
// full the caller blocks, which backpressures the sending server.
func (q *InboxQueue) Enqueue(items []*InboxItem) {
	for _, item := range items {
		q.items <- item
	}
}
