package dedup

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeen_FirstThenDuplicate(t *testing.T) {
	c := New()

	assert.False(t, c.Seen("msg-1"))
	assert.True(t, c.Seen("msg-1"))
	assert.False(t, c.Seen("msg-2"))
	assert.Equal(t, 2, c.Len())
}

func TestSeen_EmptyIDNeverDuplicate(t *testing.T) {
	c := New()

	assert.False(t, c.Seen(""))
	assert.False(t, c.Seen(""))
	assert.Equal(t, 0, c.Len())
}

func TestSeen_SweepTriggeredByBound(t *testing.T) {
	clock := time.Unix(1000, 0)
	c := &Cache{
		entries:    make(map[string]time.Time),
		maxEntries: 3,
		retention:  10 * time.Second,
		now:        func() time.Time { return clock },
	}

	c.Seen("a")
	c.Seen("b")
	c.Seen("c")
	assert.Equal(t, 3, c.Len())

	// Crossing the bound sweeps the now-stale earlier entries.
	clock = clock.Add(time.Minute)
	c.Seen("d")
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Seen("d"))
	assert.False(t, c.Seen("a"))
}

func TestSweep_KeepsYoungDropsOld(t *testing.T) {
	now := time.Unix(2000, 0)
	entries := map[string]time.Time{
		"old":   now.Add(-15 * time.Minute),
		"young": now.Add(-1 * time.Minute),
		"edge":  now.Add(-10 * time.Minute),
	}

	kept := Sweep(entries, now, 10*time.Minute)

	assert.Len(t, kept, 1)
	assert.Contains(t, kept, "young")
}

func TestSweep_DoesNotMutateInput(t *testing.T) {
	now := time.Unix(3000, 0)
	entries := map[string]time.Time{
		"old": now.Add(-time.Hour),
		"new": now,
	}

	_ = Sweep(entries, now, time.Minute)

	assert.Len(t, entries, 2)
}

func TestSeen_ManyIDsStayBounded(t *testing.T) {
	clock := time.Unix(4000, 0)
	c := &Cache{
		entries:    make(map[string]time.Time),
		maxEntries: 50,
		retention:  time.Second,
		now:        func() time.Time { return clock },
	}

	for i := 0; i < 500; i++ {
		clock = clock.Add(100 * time.Millisecond)
		c.Seen(fmt.Sprintf("msg-%d", i))
	}
	assert.LessOrEqual(t, c.Len(), 51)
}
