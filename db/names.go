package db

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strconv"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// NameTable maps CRC32 hashes of resource paths back to the paths. It is made
// of the stock names of the game, a user overlay persisted on disk and
// whatever the session adds. It is not safe for concurrent use.
type NameTable struct {
	stock       map[uint32]string
	session     map[uint32]string
	overlayPath string
}

// NewNameTable builds a table from stock and the overlay file at overlayPath.
// A missing or malformed overlay is logged and ignored.
func NewNameTable(stock map[uint32]string, overlayPath string) *NameTable {
	t := &NameTable{
		stock:       stock,
		session:     make(map[uint32]string, len(stock)),
		overlayPath: overlayPath,
	}
	for k, v := range stock {
		t.session[k] = v
	}
	t.loadOverlay()
	return t
}

func (t *NameTable) loadOverlay() {
	if t.overlayPath == "" {
		return
	}
	data, err := os.ReadFile(t.overlayPath)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.S().Warnf("failed to read name overlay %v - %v", t.overlayPath, err)
		}
		return
	}
	var overlay map[string]string
	if err := json.Unmarshal(data, &overlay); err != nil {
		zap.S().Warnf("malformed name overlay %v, using stock names only - %v", t.overlayPath, err)
		return
	}
	for key, name := range overlay {
		hash, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			zap.S().Warnf("skipping overlay entry %q - %v", key, err)
			continue
		}
		t.session[uint32(hash)] = name
	}
}

// Hash is the CRC32 of path.
func Hash(path string) uint32 {
	return crc32.ChecksumIEEE([]byte(path))
}

func (t *NameTable) Lookup(hash uint32) (string, bool) {
	name, ok := t.session[hash]
	return name, ok
}

func (t *NameTable) Insert(path string) {
	t.session[Hash(path)] = path
}

// AddName inserts path and returns its hash.
func (t *NameTable) AddName(path string) uint32 {
	hash := Hash(path)
	t.session[hash] = path
	return hash
}

func (t *NameTable) Len() int {
	return len(t.session)
}

// Added returns the names known to the session but not to the stock table.
func (t *NameTable) Added() map[uint32]string {
	return lo.PickBy(t.session, func(hash uint32, _ string) bool {
		_, stock := t.stock[hash]
		return !stock
	})
}

// Flush rewrites the overlay file with exactly the names added on top of the
// stock table.
func (t *NameTable) Flush() error {
	if t.overlayPath == "" {
		return nil
	}
	added := lo.MapKeys(t.Added(), func(_ string, hash uint32) string {
		return strconv.FormatUint(uint64(hash), 10)
	})
	data, err := json.Marshal(added)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(t.overlayPath), os.ModePerm); err != nil {
		return fmt.Errorf("create name overlay folder: %w", err)
	}
	if err := os.WriteFile(t.overlayPath, data, 0644); err != nil {
		return fmt.Errorf("write name overlay: %w", err)
	}
	zap.S().Debugf("flushed %v names to %v", len(added), t.overlayPath)
	return nil
}
