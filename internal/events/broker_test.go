package events

import (
	"context"
	"testing"

	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker(t *testing.T) {
	b := NewBroker(nil)
	event := NewTaskEvent(TypeTaskCreated, &domain.Task{ID: 1})

	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	assert.Equal(t, 2, b.Subscribers())

	require.NoError(t, b.HandleEvent(context.Background(), event))
	assert.Same(t, event, <-ch1)
	assert.Same(t, event, <-ch2)

	cancel1()
	cancel1()
	assert.Equal(t, 1, b.Subscribers())
	_, open := <-ch1
	assert.False(t, open, "cancel closes the channel")

	require.NoError(t, b.HandleEvent(context.Background(), event))
	assert.Same(t, event, <-ch2)
	cancel2()
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker(nil)
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, b.HandleEvent(context.Background(), NewTaskEvent(TypeTaskUpdated, &domain.Task{ID: int64(i)})))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestBrokerWithEmitter(t *testing.T) {
	emitter := NewInMemoryEventEmitter(nil)
	b := NewBroker(nil)
	emitter.RegisterHandler(b)

	ch, cancel := b.Subscribe()
	defer cancel()

	event := NewTaskEvent(TypeTaskClaimed, &domain.Task{ID: 3})
	require.NoError(t, emitter.EmitEvent(context.Background(), event))
	assert.Equal(t, int64(3), (<-ch).Task.ID)
}
