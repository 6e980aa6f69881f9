package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)}
	c, err := NewCache(clock.Now)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, clock
}

type cachedBlock struct {
	Hash   string `json:"hash"`
	Height int64  `json:"height"`
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Set(CFBlocks, "840000", &cachedBlock{Hash: "00ab", Height: 840000}, time.Hour))

	var got cachedBlock
	ok, err := c.Get(CFBlocks, "840000", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cachedBlock{Hash: "00ab", Height: 840000}, got)
}

func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	var height int64
	ok, err := c.Get(CFTip, "height", &height)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_ColumnFamiliesAreIsolated(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Set(CFTip, "k", int64(1), time.Minute))

	var v int64
	ok, err := c.Get(CFFees, "k", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c, clock := newTestCache(t)
	require.NoError(t, c.Set(CFTip, "height", int64(866000), 30*time.Second))

	clock.Advance(29 * time.Second)
	var height int64
	ok, err := c.Get(CFTip, "height", &height)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(866000), height)

	clock.Advance(time.Second)
	ok, err = c.Get(CFTip, "height", &height)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_ZeroTTLStoresNothing(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Set(CFPrices, "usd", 1.0, 0))

	var v float64
	ok, err := c.Get(CFPrices, "usd", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_UnknownColumnFamily(t *testing.T) {
	c, _ := newTestCache(t)
	assert.Error(t, c.Set("nope", "k", 1, time.Minute))

	var v int
	_, err := c.Get("nope", "k", &v)
	assert.Error(t, err)
}

func TestCache_PurgeExpired(t *testing.T) {
	c, clock := newTestCache(t)
	require.NoError(t, c.Set(CFTip, "height", int64(1), time.Second))
	require.NoError(t, c.Set(CFMempool, "summary", "x", time.Second))
	require.NoError(t, c.Set(CFBlocks, "1", "y", time.Hour))

	n, err := c.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	clock.Advance(2 * time.Second)
	n, err = c.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var s string
	ok, err := c.Get(CFBlocks, "1", &s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "y", s)
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c, err := NewCache(nil)
	require.NoError(t, err)
	c.StartJanitor(time.Hour, nil)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("tip;"), prefixUpperBound([]byte("tip:")))
	assert.Equal(t, []byte{0x02}, prefixUpperBound([]byte{0x01, 0xff}))
	assert.Nil(t, prefixUpperBound([]byte{0xff}))
	assert.Nil(t, prefixUpperBound(nil))
}
