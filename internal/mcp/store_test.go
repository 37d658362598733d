package mcp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetOrCreate(t *testing.T) {
	store := NewStore()

	mgr1 := store.GetOrCreate("session-1")
	require.NotNil(t, mgr1)

	// Same session returns the same manager.
	mgr2 := store.GetOrCreate("session-1")
	assert.Equal(t, mgr1, mgr2)

	mgr3 := store.GetOrCreate("session-2")
	assert.True(t, mgr1 != mgr3, "different sessions should have different managers")

	assert.Equal(t, 2, store.Count())
}

func TestStore_Get(t *testing.T) {
	store := NewStore()

	assert.Nil(t, store.Get("nonexistent"))

	mgr := store.GetOrCreate("session-1")
	assert.Equal(t, mgr, store.Get("session-1"))
}

func TestStore_Remove(t *testing.T) {
	store := NewStore()

	store.GetOrCreate("session-1")
	store.GetOrCreate("session-2")
	assert.Equal(t, 2, store.Count())

	store.Remove("session-1")
	assert.Equal(t, 1, store.Count())
	assert.Nil(t, store.Get("session-1"))
	assert.NotNil(t, store.Get("session-2"))

	// Removing an unknown session is safe.
	store.Remove("nonexistent")
	assert.Equal(t, 1, store.Count())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sessionID := "session-odd"
			if id%2 == 0 {
				sessionID = "session-even"
			}
			assert.NotNil(t, store.GetOrCreate(sessionID))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, store.Count())

	wg = sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if id%3 == 0 {
				store.Remove("session-even")
			} else {
				store.Get("session-odd")
			}
		}(i)
	}
	wg.Wait()
}
