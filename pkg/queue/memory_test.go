package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue_ReadAllMessages(t *testing.T) {
	q := NewInMemoryQueue(8)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	assert.Equal(t, 5, q.Size())

	got, err := q.ReadAllMessages()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{0, 1, 2, 3, 4}, got)
	assert.Equal(t, 0, q.Size())

	got, err = q.ReadAllMessages()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInMemoryQueue_Full(t *testing.T) {
	q := NewInMemoryQueue(2)
	require.NoError(t, q.Enqueue("a"))
	require.NoError(t, q.Enqueue("b"))
	assert.ErrorIs(t, q.Enqueue("c"), ErrQueueFull)

	q.ClearQueue()
	assert.Equal(t, 0, q.Size())
	assert.NoError(t, q.Enqueue("d"))
}

func TestInMemoryQueue_ConcurrentProducers(t *testing.T) {
	q := NewInMemoryQueue(1000)
	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = q.Enqueue(i)
			}
		}()
	}
	wg.Wait()

	got, err := q.ReadAllMessages()
	require.NoError(t, err)
	assert.Len(t, got, 1000)
}
