package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFIFOOrdering(t *testing.T) {
	q := New()
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c"))

	var got []string
	for !q.Empty() {
		front, ok := q.Front()
		assert.True(t, ok)
		got = append(got, string(front))
		q.Pop()
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestPopOnEmptyIsNoop(t *testing.T) {
	q := New()
	assert.NotPanics(t, func() { q.Pop() })
	assert.True(t, q.Empty())
}

func TestDrainReturnsAllInOrder(t *testing.T) {
	q := New()
	for _, p := range []string{"x", "y", "z"} {
		q.Push([]byte(p))
	}
	drained := q.Drain()
	require := assert.New(t)
	require.Len(drained, 3)
	require.Equal([]byte("x"), drained[0])
	require.Equal([]byte("z"), drained[2])
	require.True(q.Empty())
}

func TestConcurrentPushSize(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Push([]byte{byte(i)})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, q.Size())
}
