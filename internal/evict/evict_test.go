package evict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsLeastRecentlyTouched(t *testing.T) {
	s := NewLRU[string]()
	s.OnSet("a", ItemMeta{})
	s.OnSet("b", ItemMeta{})
	s.OnSet("c", ItemMeta{})
	s.OnAccess("a", ItemMeta{})
	s.OnSet("d", ItemMeta{})

	key, ok := s.SelectEvictionKey(nil)
	require.True(t, ok)
	assert.Equal(t, "b", key)
}

func TestLRU_OnDeleteSplicesOut(t *testing.T) {
	s := NewLRU[string]()
	s.OnSet("a", ItemMeta{})
	s.OnSet("b", ItemMeta{})
	s.OnDelete("a")

	key, ok := s.SelectEvictionKey(nil)
	require.True(t, ok)
	assert.Equal(t, "b", key)
}

func TestLFU_EvictsSmallestAccessCount(t *testing.T) {
	s := NewLFU[string]()
	meta := map[string]ItemMeta{
		"a": {AccessCount: 5},
		"b": {AccessCount: 1},
		"c": {AccessCount: 3},
	}
	key, ok := s.SelectEvictionKey(meta)
	require.True(t, ok)
	assert.Equal(t, "b", key)
}

func TestFIFO_EvictsOldestCreatedAt(t *testing.T) {
	s := NewFIFO[string]()
	now := time.Now()
	meta := map[string]ItemMeta{
		"a": {CreatedAt: now.Add(2 * time.Second)},
		"b": {CreatedAt: now},
		"c": {CreatedAt: now.Add(time.Second)},
	}
	key, ok := s.SelectEvictionKey(meta)
	require.True(t, ok)
	assert.Equal(t, "b", key)
}

func TestTTL_PrefersAlreadyExpired(t *testing.T) {
	s := NewTTL[string]()
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Minute)
	meta := map[string]ItemMeta{
		"a": {ExpiresAt: &future},
		"b": {ExpiresAt: &past},
	}
	key, ok := s.SelectEvictionKey(meta)
	require.True(t, ok)
	assert.Equal(t, "b", key)
}

func TestTTL_FallsBackToSoonestExpiry(t *testing.T) {
	s := NewTTL[string]()
	now := time.Now()
	soon := now.Add(time.Second)
	later := now.Add(time.Minute)
	meta := map[string]ItemMeta{
		"a": {ExpiresAt: &later},
		"b": {ExpiresAt: &soon},
	}
	key, ok := s.SelectEvictionKey(meta)
	require.True(t, ok)
	assert.Equal(t, "b", key)
}

func TestTTL_NoExpiryReturnsFalse(t *testing.T) {
	s := NewTTL[string]()
	meta := map[string]ItemMeta{"a": {}, "b": {}}
	_, ok := s.SelectEvictionKey(meta)
	assert.False(t, ok)
}

func TestRandom_PicksFromMeta(t *testing.T) {
	s := NewRandom[string]()
	meta := map[string]ItemMeta{"a": {}, "b": {}, "c": {}}
	key, ok := s.SelectEvictionKey(meta)
	require.True(t, ok)
	assert.Contains(t, []string{"a", "b", "c"}, key)
}

func TestRandom_EmptyMeta(t *testing.T) {
	s := NewRandom[string]()
	_, ok := s.SelectEvictionKey(map[string]ItemMeta{})
	assert.False(t, ok)
}

func TestNew_DefaultsToLRU(t *testing.T) {
	s := New[string]("bogus")
	_, ok := s.(*LRU[string])
	assert.True(t, ok)
}

func TestNew_AllKinds(t *testing.T) {
	assert.IsType(t, &LRU[string]{}, New[string](KindLRU))
	assert.IsType(t, &LFU[string]{}, New[string](KindLFU))
	assert.IsType(t, &FIFO[string]{}, New[string](KindFIFO))
	assert.IsType(t, &TTL[string]{}, New[string](KindTTL))
	assert.IsType(t, &Random[string]{}, New[string](KindRandom))
}
