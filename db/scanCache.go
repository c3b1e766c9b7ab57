package db

import (
	"fmt"
	"os"
)

// ScanCache remembers the resource names found in a file, keyed by the path,
// size and modification time of that file.
type ScanCache struct {
	db *PersistentDB
}

func NewScanCache(db *PersistentDB) *ScanCache {
	return &ScanCache{db: db}
}

func cacheKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
}

// Get returns the names cached for the current version of the file.
func (c *ScanCache) Get(path string, info os.FileInfo) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	var names []string
	found, err := c.db.GetEntry(SCAN_CACHE_TABLENAME, cacheKey(path, info), &names)
	if err != nil || !found {
		return nil, false
	}
	return names, true
}

func (c *ScanCache) Put(path string, info os.FileInfo, names []string) error {
	if c == nil {
		return nil
	}
	return c.db.AddEntry(SCAN_CACHE_TABLENAME, cacheKey(path, info), names)
}

func (c *ScanCache) Len() int {
	if c == nil {
		return 0
	}
	return c.db.Count(SCAN_CACHE_TABLENAME)
}

func (c *ScanCache) Clear() error {
	if c == nil {
		return nil
	}
	return c.db.ClearTable(SCAN_CACHE_TABLENAME)
}
