package qcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetMissOnEmpty(t *testing.T) {
	c := New(time.Minute)
	_, ok := c.Get("recent_24_1000")
	require.False(t, ok)
}

func TestPutGetWithinTTL(t *testing.T) {
	now := time.Date(2025, 9, 11, 12, 0, 0, 0, time.UTC)
	c := NewWithClock(time.Minute, func() time.Time { return now })

	c.Put("stats_24", 42)
	v, ok := c.Get("stats_24")
	require.True(t, ok)
	require.Equal(t, 42, v)

	// One second before expiry: still a hit.
	now = now.Add(59 * time.Second)
	_, ok = c.Get("stats_24")
	require.True(t, ok)
}

func TestStaleEntryIsAMiss(t *testing.T) {
	now := time.Date(2025, 9, 11, 12, 0, 0, 0, time.UTC)
	c := NewWithClock(time.Minute, func() time.Time { return now })

	c.Put("stats_24", 42)
	now = now.Add(time.Minute)
	_, ok := c.Get("stats_24")
	require.False(t, ok)

	// A fresh Put overwrites the stale entry.
	c.Put("stats_24", 43)
	v, ok := c.Get("stats_24")
	require.True(t, ok)
	require.Equal(t, 43, v)
}

func TestInvalidateAll(t *testing.T) {
	c := New(time.Minute)
	c.Put("recent_24_1000", 1)
	c.Put("stats_24", 2)
	c.InvalidateAll()

	_, ok := c.Get("recent_24_1000")
	require.False(t, ok)
	_, ok = c.Get("stats_24")
	require.False(t, ok)
}

func TestZeroTTLDefaults(t *testing.T) {
	c := New(0)
	c.Put("k", "v")
	_, ok := c.Get("k")
	require.True(t, ok)
}
