// Where: internal/cache/azure/queue.go
// What: Azure Queue Storage revalidation queue.
// Why: The queue-triggered revalidation function consumes these messages.
package azure

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/poruru-code/opennext-azure/internal/cache"
)

// QueueStore implements cache.Queue on one storage queue.
type QueueStore struct {
	client *azqueue.QueueClient
}

// NewQueueStore binds a service client to a queue.
func NewQueueStore(service *azqueue.ServiceClient, queue string) *QueueStore {
	return &QueueStore{client: service.NewQueueClient(queue)}
}

// Send enqueues msg as base64 JSON, the encoding Functions queue triggers expect.
func (s *QueueStore) Send(ctx context.Context, msg cache.Message) error {
	content, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueMessage(ctx, content, nil); err != nil {
		return fmt.Errorf("enqueue revalidation %s: %w", msg.MessageBody.URL, err)
	}
	return nil
}

// EncodeMessage renders msg the way it is stored on the queue.
func EncodeMessage(msg cache.Message) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode revalidation message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// EnsureQueue creates a queue when missing.
func EnsureQueue(ctx context.Context, service *azqueue.ServiceClient, name string) error {
	if _, err := service.CreateQueue(ctx, name, nil); err != nil {
		if hasErrorCode(err, "QueueAlreadyExists") {
			return nil
		}
		return fmt.Errorf("create queue %s: %w", name, err)
	}
	return nil
}
