package fs

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
	_ "github.com/viant/afs/mem"
)

type payload struct {
	Value string `json:"value"`
}

func newTestQueue(t *testing.T, name string) *Queue[payload] {
	queue, err := NewQueue[payload](afs.New(), Config{
		BasePath:   fmt.Sprintf("mem://localhost/autonomy/%s", name),
		MaxRetries: 1,
	})
	assert.Nil(t, err)
	return queue
}

func TestQueue_RequiresBasePath(t *testing.T) {
	_, err := NewQueue[payload](afs.New(), Config{})
	assert.NotNil(t, err)
}

func TestQueue_PublishConsumeAck(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t, "ack")

	assert.Nil(t, queue.Publish(ctx, &payload{Value: "audit-entry"}))

	msg, err := queue.Consume(ctx)
	assert.Nil(t, err)
	if !assert.NotNil(t, msg) {
		return
	}
	assert.Equal(t, "audit-entry", msg.T().Value)
	assert.Nil(t, msg.Ack())

	// the claim removed the message from pending
	empty, err := queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Nil(t, empty)
}

func TestQueue_ConsumeOldestFirst(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t, "order")

	for i := 0; i < 3; i++ {
		assert.Nil(t, queue.Publish(ctx, &payload{Value: fmt.Sprintf("entry-%d", i)}))
	}

	// listing order is storage-dependent; the timestamped names decide
	for i := 0; i < 3; i++ {
		msg, err := queue.Consume(ctx)
		assert.Nil(t, err)
		if !assert.NotNil(t, msg) {
			return
		}
		assert.Equal(t, fmt.Sprintf("entry-%d", i), msg.T().Value)
		assert.Nil(t, msg.Ack())
	}
}

func TestQueue_EmptyConsume(t *testing.T) {
	queue := newTestQueue(t, "empty")
	msg, err := queue.Consume(context.Background())
	assert.Nil(t, err)
	assert.Nil(t, msg)
}

func TestQueue_NackRequeues(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t, "nack")

	assert.Nil(t, queue.Publish(ctx, &payload{Value: "flaky"}))

	msg, err := queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Nil(t, msg.Nack(fmt.Errorf("transient failure")))

	// first nack returns the message to pending
	msg, err = queue.Consume(ctx)
	assert.Nil(t, err)
	if !assert.NotNil(t, msg) {
		return
	}
	assert.Equal(t, "flaky", msg.T().Value)

	// second nack exceeds MaxRetries and dead-letters it
	assert.Nil(t, msg.Nack(fmt.Errorf("permanent failure")))
	msg, err = queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Nil(t, msg)
}

func TestQueue_NilPayload(t *testing.T) {
	queue := newTestQueue(t, "nil")
	assert.NotNil(t, queue.Publish(context.Background(), nil))
}
