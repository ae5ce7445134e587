// Where: internal/cache/local/queue.go
// What: In-process revalidation queue.
// Why: Local development has no queue trigger, so messages are delivered directly.
package local

import (
	"context"

	"github.com/poruru-code/opennext-azure/internal/cache"
)

// Deliver handles one revalidation message.
type Deliver func(ctx context.Context, msg cache.Message) error

// DirectQueue calls Deliver synchronously for each message.
type DirectQueue struct {
	deliver Deliver
}

// NewDirectQueue wraps deliver. A nil deliver drops messages.
func NewDirectQueue(deliver Deliver) *DirectQueue {
	return &DirectQueue{deliver: deliver}
}

// Send delivers msg.
func (q *DirectQueue) Send(ctx context.Context, msg cache.Message) error {
	if q.deliver == nil {
		return nil
	}
	return q.deliver(ctx, msg)
}
