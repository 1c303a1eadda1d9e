package task

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue(t *testing.T) {
	t.Parallel() // Enable parallel execution

	t.Run("enqueue and read", func(t *testing.T) {
		t.Parallel() // Enable parallel execution
		q := NewTaskQueue(2, discardLogger())
		task := newFakeTask(nil)
		require.NoError(t, q.Enqueue(task))
		assert.Equal(t, 1, q.Len())
		assert.Same(t, task, <-q.GetChannel())
	})

	t.Run("full queue", func(t *testing.T) {
		t.Parallel() // Enable parallel execution
		q := NewTaskQueue(1, discardLogger())
		require.NoError(t, q.Enqueue(newFakeTask(nil)))
		assert.ErrorIs(t, q.Enqueue(newFakeTask(nil)), ErrQueueFull)
	})

	t.Run("closed queue", func(t *testing.T) {
		t.Parallel() // Enable parallel execution
		q := NewTaskQueue(1, nil)
		q.Close()
		q.Close()
		assert.ErrorIs(t, q.Enqueue(newFakeTask(nil)), ErrQueueClosed)
		_, ok := <-q.GetChannel()
		assert.False(t, ok)
	})

	t.Run("concurrent enqueue and close", func(t *testing.T) {
		t.Parallel() // Enable parallel execution
		q := NewTaskQueue(100, discardLogger())
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = q.Enqueue(newFakeTask(nil))
			}()
		}
		q.Close()
		wg.Wait()
		assert.ErrorIs(t, q.Enqueue(newFakeTask(nil)), ErrQueueClosed)
	})
}
