package serial

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialIsNoOlderThan(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Serial
		wants bool
	}{
		{name: "equal", a: 5, b: 5, wants: true},
		{name: "newer", a: 6, b: 5, wants: true},
		{name: "older", a: 5, b: 6, wants: false},
		{name: "newer across wrap", a: 2, b: 0xfffffffe, wants: true},
		{name: "older across wrap", a: 0xfffffffe, b: 2, wants: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wants, tt.a.IsNoOlderThan(tt.b))
		})
	}
}

func TestCounter(t *testing.T) {
	t.Run("starts at one", func(t *testing.T) {
		c := NewCounter()
		assert.Equal(t, Serial(0), c.Last())
		assert.Equal(t, Serial(1), c.Next())
		assert.Equal(t, Serial(2), c.Next())
		assert.Equal(t, Serial(2), c.Last())
	})

	t.Run("unique under concurrency", func(t *testing.T) {
		c := NewCounter()
		const workers, perWorker = 8, 250

		var mu sync.Mutex
		seen := make(map[Serial]bool)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					s := c.Next()
					mu.Lock()
					seen[s] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Len(t, seen, workers*perWorker)
		assert.Equal(t, Serial(workers*perWorker), c.Last())
	})
}
