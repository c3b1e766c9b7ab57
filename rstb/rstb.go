package rstb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"sort"

	"github.com/wildbits/wildbits/yaz0"
)

const (
	Magic = "RSTB"

	nameSize       = 128
	crcEntrySize   = 8
	nameEntrySize  = nameSize + 4
	fullHeaderSize = 12
)

var ErrCorrupt = errors.New("corrupt resource size table")

// Table maps resources to the memory the game reserves for them. Names are
// only stored for resources whose CRC32 collides with another resource.
type Table struct {
	CRC   map[uint32]uint32
	Names map[string]uint32
}

// New creates an empty table.
func New() *Table {
	return &Table{
		CRC:   make(map[uint32]uint32),
		Names: make(map[string]uint32),
	}
}

// Hash is the key of name in the CRC map.
func Hash(name string) uint32 {
	return crc32.ChecksumIEEE([]byte(name))
}

// Parse reads a table in the given byte order. Yaz0 wrapped tables are
// decompressed first. A buffer without the magic is read as a CRC-only table.
func Parse(data []byte, order binary.ByteOrder) (*Table, error) {
	if yaz0.IsCompressed(data) {
		var err error
		if data, err = yaz0.Decompress(data); err != nil {
			return nil, err
		}
	}

	t := New()
	crcCount, nameCount := 0, 0
	pos := 0
	if len(data) >= 4 && string(data[:4]) == Magic {
		if len(data) < fullHeaderSize {
			return nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
		}
		crcCount = int(order.Uint32(data[4:8]))
		nameCount = int(order.Uint32(data[8:12]))
		pos = fullHeaderSize
	} else {
		if len(data)%crcEntrySize != 0 {
			return nil, fmt.Errorf("%w: size is not a multiple of an entry", ErrCorrupt)
		}
		crcCount = len(data) / crcEntrySize
	}

	if pos+crcCount*crcEntrySize+nameCount*nameEntrySize > len(data) {
		return nil, fmt.Errorf("%w: entries out of bounds", ErrCorrupt)
	}

	for i := 0; i < crcCount; i++ {
		t.CRC[order.Uint32(data[pos:])] = order.Uint32(data[pos+4:])
		pos += crcEntrySize
	}
	for i := 0; i < nameCount; i++ {
		raw := data[pos : pos+nameSize]
		if n := bytes.IndexByte(raw, 0); n >= 0 {
			raw = raw[:n]
		}
		t.Names[string(raw)] = order.Uint32(data[pos+nameSize:])
		pos += nameEntrySize
	}

	return t, nil
}

// GetSize looks name up in the name map first and then by its CRC32.
func (t *Table) GetSize(name string) (uint32, bool) {
	if size, ok := t.Names[name]; ok {
		return size, true
	}
	size, ok := t.CRC[Hash(name)]
	return size, ok
}

// IsInTable reports whether name has an entry.
func (t *Table) IsInTable(name string) bool {
	_, ok := t.GetSize(name)
	return ok
}

// SetSize updates the name entry when one exists, otherwise the CRC entry.
func (t *Table) SetSize(name string, size uint32) {
	if _, ok := t.Names[name]; ok {
		t.Names[name] = size
		return
	}
	t.CRC[Hash(name)] = size
}

// Delete removes the entry of name, preferring the name map.
func (t *Table) Delete(name string) {
	if _, ok := t.Names[name]; ok {
		delete(t.Names, name)
		return
	}
	delete(t.CRC, Hash(name))
}

// Bytes serialises the table; CRC entries sorted by hash, names by name.
func (t *Table) Bytes(order binary.ByteOrder) []byte {
	crcs := make([]uint32, 0, len(t.CRC))
	for crc := range t.CRC {
		crcs = append(crcs, crc)
	}
	sort.Slice(crcs, func(i, j int) bool { return crcs[i] < crcs[j] })

	names := make([]string, 0, len(t.Names))
	for name := range t.Names {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]byte, fullHeaderSize+len(crcs)*crcEntrySize+len(names)*nameEntrySize)
	copy(out, Magic)
	order.PutUint32(out[4:], uint32(len(crcs)))
	order.PutUint32(out[8:], uint32(len(names)))

	pos := fullHeaderSize
	for _, crc := range crcs {
		order.PutUint32(out[pos:], crc)
		order.PutUint32(out[pos+4:], t.CRC[crc])
		pos += crcEntrySize
	}
	for _, name := range names {
		// the field keeps its terminator
		copy(out[pos:pos+nameSize-1], name)
		order.PutUint32(out[pos+nameSize:], t.Names[name])
		pos += nameEntrySize
	}

	return out
}
