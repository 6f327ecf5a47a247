package utility

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUtility_ProcessID(t *testing.T) {
	id1 := ProcessID()
	id2 := ProcessID()

	assert.Equal(t, id1, id2)
	assert.EqualValues(t, 7, id1.Version())
}

func TestUtility_NewExecutionID(t *testing.T) {
	id1 := NewExecutionID()
	id2 := NewExecutionID()

	assert.NotEqual(t, id1, id2)
	assert.NotEqual(t, ProcessID(), id1)
	assert.EqualValues(t, 7, id2.Version())
}

func TestUtility_ProcessIDConcurrent(t *testing.T) {
	const goroutines = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)

	results := make([]ExecutionID, goroutines)
	for i := 0; i < goroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			results[idx] = ProcessID()
		}(i)
	}
	wg.Wait()

	for i, id := range results {
		assert.Equal(t, results[0], id, "goroutine %d got different id", i)
	}
}

func BenchmarkUtility_NewExecutionID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewExecutionID()
	}
}
