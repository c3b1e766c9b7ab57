package db

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stock = map[uint32]string{
	Hash("EventFlow/PictureMemory.bfevfl"): "EventFlow/PictureMemory.bfevfl",
}

func TestNameTableFlushWritesOnlyAddedNames(t *testing.T) {
	overlay := filepath.Join(t.TempDir(), "wildbits", "names.json")
	names := NewNameTable(stock, overlay)

	hash := names.AddName("My/New/Thing.bfres")
	assert.Equal(t, Hash("My/New/Thing.bfres"), hash)
	names.Insert("EventFlow/PictureMemory.bfevfl")

	got, ok := names.Lookup(hash)
	require.True(t, ok)
	assert.Equal(t, "My/New/Thing.bfres", got)

	require.NoError(t, names.Flush())
	data, err := os.ReadFile(overlay)
	require.NoError(t, err)
	assert.JSONEq(t, `{"`+itoa(hash)+`": "My/New/Thing.bfres"}`, string(data))

	// a new session picks the overlay up
	again := NewNameTable(stock, overlay)
	got, ok = again.Lookup(hash)
	require.True(t, ok)
	assert.Equal(t, "My/New/Thing.bfres", got)
	assert.Equal(t, 2, again.Len())
}

func TestNameTableMalformedOverlay(t *testing.T) {
	overlay := filepath.Join(t.TempDir(), "names.json")
	require.NoError(t, os.WriteFile(overlay, []byte("not json"), 0644))

	names := NewNameTable(stock, overlay)
	assert.Equal(t, len(stock), names.Len())
	assert.Empty(t, names.Added())
}

func TestNameTableSkipsBadKeys(t *testing.T) {
	overlay := filepath.Join(t.TempDir(), "names.json")
	require.NoError(t, os.WriteFile(overlay, []byte(`{"abc": "x", "12": "y"}`), 0644))

	names := NewNameTable(stock, overlay)
	got, ok := names.Lookup(12)
	require.True(t, ok)
	assert.Equal(t, "y", got)
	assert.Len(t, names.Added(), 1)
}

func TestScanCache(t *testing.T) {
	dir := t.TempDir()
	pdb, err := NewPersistentDB(filepath.Join(dir, "wildbits.db"))
	require.NoError(t, err)
	defer pdb.Close()
	cache := NewScanCache(pdb)

	file := filepath.Join(dir, "Map.pack")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0644))
	info, err := os.Stat(file)
	require.NoError(t, err)

	_, ok := cache.Get(file, info)
	assert.False(t, ok)

	require.NoError(t, cache.Put(file, info, []string{"Map/A.mubin", "Map/B.mubin"}))
	names, ok := cache.Get(file, info)
	require.True(t, ok)
	assert.Equal(t, []string{"Map/A.mubin", "Map/B.mubin"}, names)
	assert.Equal(t, 1, cache.Len())

	// a changed file misses
	require.NoError(t, os.WriteFile(file, []byte("version 2"), 0644))
	require.NoError(t, os.Chtimes(file, time.Now(), time.Now().Add(time.Hour)))
	info, err = os.Stat(file)
	require.NoError(t, err)
	_, ok = cache.Get(file, info)
	assert.False(t, ok)

	require.NoError(t, cache.Clear())
	assert.Equal(t, 0, cache.Len())
}

func TestNilScanCache(t *testing.T) {
	var cache *ScanCache
	_, ok := cache.Get("x", nil)
	assert.False(t, ok)
	assert.NoError(t, cache.Put("x", nil, nil))
	assert.Zero(t, cache.Len())
}

func itoa(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
