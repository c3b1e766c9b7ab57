package sarc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	Magic = "SARC"

	headerSize     = 0x14
	sfatHeaderSize = 0xC
	sfatNodeSize   = 0x10
	sfntHeaderSize = 0x8

	// HashMultiplier is the key used by every archive shipped with the game.
	HashMultiplier = 0x65

	minAlignment = 4
)

var (
	ErrInvalidHeader = errors.New("invalid SARC header")
	ErrCorrupt       = errors.New("corrupt SARC archive")
)

// File is a named entry of an archive.
type File struct {
	Name string
	Data []byte
}

// Sarc is a parsed, read-only archive. File data aliases the parsed buffer.
type Sarc struct {
	order      binary.ByteOrder
	dataOffset uint32
	files      []File
	starts     []uint32
	index      map[string]int
	// entries stored without a name, keyed by the name they are listed under
	unnamed map[string]uint32
}

// IsSarc reports whether data starts with the SARC magic.
func IsSarc(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == Magic
}

// IsArchive reports whether data is an archive, either plain or wrapped in a
// Yaz0 stream.
func IsArchive(data []byte) bool {
	if IsSarc(data) {
		return true
	}
	return len(data) >= 0x15 && string(data[:4]) == "Yaz0" && string(data[0x11:0x15]) == Magic
}

// NameHash is the SFAT hash of name.
func NameHash(name string, multiplier uint32) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*multiplier + uint32(int32(int8(name[i])))
	}
	return h
}

func byteOrder(bom []byte) (binary.ByteOrder, bool) {
	switch {
	case bom[0] == 0xFE && bom[1] == 0xFF:
		return binary.BigEndian, true
	case bom[0] == 0xFF && bom[1] == 0xFE:
		return binary.LittleEndian, true
	}
	return nil, false
}

// Parse reads an uncompressed archive.
func Parse(data []byte) (*Sarc, error) {
	if len(data) < headerSize+sfatHeaderSize || !IsSarc(data) {
		return nil, ErrInvalidHeader
	}
	order, ok := byteOrder(data[6:8])
	if !ok {
		return nil, fmt.Errorf("%w: bad byte order mark", ErrInvalidHeader)
	}
	if order.Uint16(data[4:6]) != headerSize {
		return nil, fmt.Errorf("%w: bad header size", ErrInvalidHeader)
	}

	dataOffset := order.Uint32(data[0x0C:0x10])
	if int(dataOffset) > len(data) {
		return nil, fmt.Errorf("%w: data offset out of bounds", ErrCorrupt)
	}

	sfat := data[headerSize:]
	if string(sfat[:4]) != "SFAT" {
		return nil, fmt.Errorf("%w: missing SFAT", ErrCorrupt)
	}
	count := int(order.Uint16(sfat[6:8]))
	nodesEnd := headerSize + sfatHeaderSize + count*sfatNodeSize
	if nodesEnd+sfntHeaderSize > int(dataOffset) {
		return nil, fmt.Errorf("%w: node table out of bounds", ErrCorrupt)
	}
	sfnt := data[nodesEnd:]
	if string(sfnt[:4]) != "SFNT" {
		return nil, fmt.Errorf("%w: missing SFNT", ErrCorrupt)
	}
	names := data[nodesEnd+sfntHeaderSize : dataOffset]

	s := &Sarc{
		order:      order,
		dataOffset: dataOffset,
		files:      make([]File, 0, count),
		starts:     make([]uint32, 0, count),
		index:      make(map[string]int, count),
		unnamed:    map[string]uint32{},
	}
	for i := 0; i < count; i++ {
		node := data[headerSize+sfatHeaderSize+i*sfatNodeSize:]
		hash := order.Uint32(node[0:4])
		attr := order.Uint32(node[4:8])
		start := int(dataOffset) + int(order.Uint32(node[8:12]))
		end := int(dataOffset) + int(order.Uint32(node[12:16]))
		if start > end || end > len(data) {
			return nil, fmt.Errorf("%w: entry %d out of bounds", ErrCorrupt, i)
		}

		var name string
		if attr&0xFF000000 == 0 {
			name = fmt.Sprintf("%08x.bin", hash)
			s.unnamed[name] = hash
		} else {
			off := int(attr&0x00FFFFFF) * 4
			if off >= len(names) {
				return nil, fmt.Errorf("%w: entry %d name out of bounds", ErrCorrupt, i)
			}
			n := bytes.IndexByte(names[off:], 0)
			if n < 0 {
				return nil, fmt.Errorf("%w: entry %d name not terminated", ErrCorrupt, i)
			}
			name = string(names[off : off+n])
		}

		s.index[name] = len(s.files)
		s.files = append(s.files, File{Name: name, Data: data[start:end:end]})
		s.starts = append(s.starts, uint32(start))
	}

	return s, nil
}

// Endian is the byte order of the archive.
func (s *Sarc) Endian() binary.ByteOrder {
	return s.order
}

// Len is the number of files.
func (s *Sarc) Len() int {
	return len(s.files)
}

// Files lists entries in node order.
func (s *Sarc) Files() []File {
	return append([]File(nil), s.files...)
}

// GetFile returns the data of the named entry.
func (s *Sarc) GetFile(name string) ([]byte, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.files[i].Data, true
}

// GuessMinAlignment derives the alignment the archive was packed with from the
// offsets of its files. Files aligned by their content say nothing about it
// and are skipped, and at least two other files are needed for a guess above
// the default.
func (s *Sarc) GuessMinAlignment() int {
	alignment, plain := 0, 0
	for i, start := range s.starts {
		if contentAlignment(s.files[i].Data) != 0 {
			continue
		}
		alignment = gcd(alignment, int(start))
		plain++
	}
	if plain < 2 || alignment < minAlignment || alignment&(alignment-1) != 0 {
		return minAlignment
	}
	return alignment
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
