package botw

import (
	_ "embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// The bundled tables are the fallback for installs without a game dump; the
// tables generated from a dump are read from the data dir.

//go:embed data/stock_names.txt
var stockNamesText string

//go:embed data/hashes_wiiu.json
var wiiuHashes []byte

//go:embed data/hashes_switch.json
var switchHashes []byte

const StockNamesFile = "stock_names.txt"

var (
	dataDir        string
	stockNamesOnce sync.Once
	stockNames     map[uint32]string
)

// UseDataDir makes the stock tables generated into dir take precedence over
// the bundled ones. It must be called before any table is loaded.
func UseDataDir(dir string) {
	dataDir = dir
}

// readDataFile returns the generated file name, or nil when there is none.
func readDataFile(name string) []byte {
	if dataDir == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(dataDir, name))
	if err != nil {
		return nil
	}
	return data
}

func addStockNames(names map[uint32]string, text string) {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names[crc32.ChecksumIEEE([]byte(line))] = line
		}
	}
}

// StockNames returns the resource names of the unmodified game keyed by their
// CRC32: the bundled list plus the generated one. The map is shared and must
// not be modified.
func StockNames() map[uint32]string {
	stockNamesOnce.Do(func() {
		stockNames = map[uint32]string{}
		addStockNames(stockNames, stockNamesText)
		addStockNames(stockNames, string(readDataFile(StockNamesFile)))
	})
	return stockNames
}

// FormatStockNames renders names the way StockNames reads them.
func FormatStockNames(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\n") + "\n"
}

type Platform int

const (
	WiiU Platform = iota
	Switch
)

// PlatformFor maps a byte order to the console that uses it.
func PlatformFor(order binary.ByteOrder) Platform {
	if order == binary.BigEndian {
		return WiiU
	}
	return Switch
}

func (p Platform) String() string {
	if p == WiiU {
		return "wiiu"
	}
	return "switch"
}

// HashesFile is the name of the stock hash table of p.
func (p Platform) HashesFile() string {
	return "hashes_" + p.String() + ".json"
}

// StockHashTable holds the content hashes of every stock file of a platform.
type StockHashTable struct {
	hashes map[string]map[uint64]bool
}

// NewEmptyStockHashTable creates a table that knows no stock file.
func NewEmptyStockHashTable() *StockHashTable {
	return &StockHashTable{hashes: map[string]map[uint64]bool{}}
}

// NewStockHashTable loads the table of platform, the generated one when
// present.
func NewStockHashTable(p Platform) (*StockHashTable, error) {
	raw := readDataFile(p.HashesFile())
	if raw == nil {
		raw = switchHashes
		if p == WiiU {
			raw = wiiuHashes
		}
	}
	t := NewEmptyStockHashTable()
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("stock hashes for %s: %w", p, err)
	}
	return t, nil
}

// UnmarshalJSON reads a dump of canonical name to hex encoded hashes.
func (t *StockHashTable) UnmarshalJSON(data []byte) error {
	var dump map[string][]string
	if err := json.Unmarshal(data, &dump); err != nil {
		return err
	}
	for name, list := range dump {
		for _, h := range list {
			v, err := strconv.ParseUint(h, 16, 64)
			if err != nil {
				return fmt.Errorf("stock hash of %s: %w", name, err)
			}
			t.Add(name, v)
		}
	}
	return nil
}

// MarshalJSON writes the dump UnmarshalJSON reads, hashes sorted.
func (t *StockHashTable) MarshalJSON() ([]byte, error) {
	dump := make(map[string][]string, len(t.hashes))
	for name, known := range t.hashes {
		values := make([]uint64, 0, len(known))
		for h := range known {
			values = append(values, h)
		}
		sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
		list := make([]string, len(values))
		for i, h := range values {
			list[i] = fmt.Sprintf("%016x", h)
		}
		dump[name] = list
	}
	return json.Marshal(dump)
}

// Len is the number of files the table knows.
func (t *StockHashTable) Len() int {
	return len(t.hashes)
}

// Add records hash as a stock version of the canonical name.
func (t *StockHashTable) Add(name string, hash uint64) {
	if t.hashes == nil {
		t.hashes = map[string]map[uint64]bool{}
	}
	if t.hashes[name] == nil {
		t.hashes[name] = map[uint64]bool{}
	}
	t.hashes[name][hash] = true
}

// AddData records data as a stock version of the canonical name.
func (t *StockHashTable) AddData(name string, data []byte) {
	t.Add(name, xxhash.Sum64(data))
}

// IsFileModded reports whether data differs from every stock version of name.
// Files missing from the table are reported as modded when flagNew is set.
func (t *StockHashTable) IsFileModded(name string, data []byte, flagNew bool) bool {
	known, ok := t.hashes[name]
	if !ok {
		return flagNew
	}
	return !known[xxhash.Sum64(data)]
}
