package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
)

// Compile-time check that Queue implements outbound.QueueConsumer
var _ outbound.QueueConsumer = (*Queue)(nil)

// Queue is a FIFO queue. Received messages stay in flight until deleted and are
// redelivered by Requeue.
type Queue struct {
	mu       sync.Mutex
	pending  []outbound.QueueMessage
	inFlight []outbound.QueueMessage
	deleted  []string
	seq      int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push enqueues body and returns its message ID.
func (q *Queue) Push(body string) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	id := fmt.Sprintf("msg-%d", q.seq)
	q.pending = append(q.pending, outbound.QueueMessage{
		MessageID:     id,
		ReceiptHandle: "handle-" + id,
		Body:          body,
	})
	return id
}

func (q *Queue) ReceiveMessages(ctx context.Context, maxMessages int) ([]outbound.QueueMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(max(maxMessages, 1), len(q.pending))
	out := make([]outbound.QueueMessage, n)
	copy(out, q.pending[:n])
	q.pending = q.pending[n:]
	q.inFlight = append(q.inFlight, out...)
	return out, nil
}

func (q *Queue) DeleteMessage(ctx context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, msg := range q.inFlight {
		if msg.ReceiptHandle == receiptHandle {
			q.inFlight = append(q.inFlight[:i], q.inFlight[i+1:]...)
			q.deleted = append(q.deleted, msg.MessageID)
			return nil
		}
	}
	return fmt.Errorf("unknown receipt handle %q", receiptHandle)
}

// Requeue returns every in-flight message to the front of the queue, as a
// visibility timeout would.
func (q *Queue) Requeue() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.inFlight, q.pending...)
	q.inFlight = nil
}

// Deleted returns the IDs of deleted messages in deletion order.
func (q *Queue) Deleted() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deleted...)
}

// Pending returns the number of messages waiting to be received.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) Close() error {
	return nil
}
