package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

// Message is one dequeued inbound message.
type Message struct {
	ID           string
	PopReceipt   string
	Text         string
	DequeueCount int64
}

// Queue wraps the Azure queue carrying inbound activity events.
type Queue struct {
	client *azqueue.QueueClient
	name   string
}

// NewQueue creates a Queue client for the named queue.
func NewQueue(connStr, name string) (*Queue, error) {
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Minute,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	client, err := azqueue.NewQueueClientFromConnectionString(connStr, name, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Queue{client: client, name: name}, nil
}

// Dequeue retrieves a single message, or nil when the queue is empty. The message
// stays invisible for visibility and reappears unless deleted.
func (q *Queue) Dequeue(ctx context.Context, visibility time.Duration) (*Message, error) {
	var opts *azqueue.DequeueMessageOptions
	if visibility > 0 {
		secs := int32(visibility / time.Second)
		opts = &azqueue.DequeueMessageOptions{VisibilityTimeout: &secs}
	}
	resp, err := q.client.DequeueMessage(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	m := resp.Messages[0]
	msg := &Message{}
	if m.MessageID != nil {
		msg.ID = *m.MessageID
	}
	if m.PopReceipt != nil {
		msg.PopReceipt = *m.PopReceipt
	}
	if m.MessageText != nil {
		msg.Text = *m.MessageText
	}
	if m.DequeueCount != nil {
		msg.DequeueCount = *m.DequeueCount
	}
	return msg, nil
}

// Delete removes a processed message from the queue.
func (q *Queue) Delete(ctx context.Context, msg *Message) error {
	_, err := q.client.DeleteMessage(ctx, msg.ID, msg.PopReceipt, nil)
	return err
}

// Enqueue sends one message.
func (q *Queue) Enqueue(ctx context.Context, text string) error {
	_, err := q.client.EnqueueMessage(ctx, text, nil)
	return err
}

// Ensure creates the queue, ignoring a queue that already exists.
func (q *Queue) Ensure(ctx context.Context) error {
	_, err := q.client.Create(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists") {
			return err
		}
	}
	return nil
}

// Pending reports the approximate number of messages waiting.
func (q *Queue) Pending(ctx context.Context) (int32, error) {
	resp, err := q.client.GetProperties(ctx, nil)
	if err != nil {
		return 0, err
	}
	if resp.ApproximateMessagesCount == nil {
		return 0, nil
	}
	return *resp.ApproximateMessagesCount, nil
}

func (q *Queue) Name() string { return q.name }
