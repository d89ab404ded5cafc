package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsLeastRecent(t *testing.T) {
	c := New(2)
	c.Add("a", 1)
	c.Add("b", 2)
	_, _ = c.Get("a") // a becomes MRU
	c.Add("c", 3)     // evicts b

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUReplace(t *testing.T) {
	c := New(2)
	c.Add("a", 1)
	c.Add("a", 9)
	v, _ := c.Get("a")
	assert.Equal(t, 9, v)
	assert.Equal(t, 1, c.Len())
}

func TestLRUConcurrent(t *testing.T) {
	c := New(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add(j%32, j)
				c.Get(j % 32)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}

func TestNewPanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New(0) })
}
