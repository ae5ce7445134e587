// Where: internal/cache/queue.go
// What: Revalidation queue front.
// Why: Enqueue failures must not fail the response that triggered them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"go.uber.org/zap"
)

// RevalidationQueue sends revalidation requests to a Queue.
type RevalidationQueue struct {
	queue Queue
	log   *zap.Logger
}

// NewRevalidationQueue wires a Queue.
func NewRevalidationQueue(queue Queue, log *zap.Logger) *RevalidationQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &RevalidationQueue{queue: queue, log: log.Named("queue")}
}

// NewMessage builds a message whose dedup id is stable for one page version.
func NewMessage(host, url string, lastModified int64) Message {
	sum := sha256.Sum256([]byte(url + "-" + strconv.FormatInt(lastModified, 10)))
	return Message{
		MessageBody:            MessageBody{Host: host, URL: url},
		MessageDeduplicationID: hex.EncodeToString(sum[:])[:32],
		MessageGroupID:         url,
	}
}

// Send enqueues msg. Failures are logged.
func (q *RevalidationQueue) Send(ctx context.Context, msg Message) {
	if err := q.queue.Send(ctx, msg); err != nil {
		q.log.Error("revalidation enqueue failed",
			zap.String("host", msg.MessageBody.Host),
			zap.String("url", msg.MessageBody.URL),
			zap.Error(err))
	}
}
