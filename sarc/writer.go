package sarc

import (
	"encoding/binary"
	"sort"
)

// Writer builds a new archive from a set of named files.
type Writer struct {
	Files map[string][]byte

	order        binary.ByteOrder
	minAlignment int
	unnamed      map[string]uint32
}

// NewWriter creates an empty writer for the given byte order.
func NewWriter(order binary.ByteOrder) *Writer {
	return &Writer{
		Files:        make(map[string][]byte),
		order:        order,
		minAlignment: minAlignment,
		unnamed:      map[string]uint32{},
	}
}

// NewWriterFrom seeds a writer with the files, byte order and alignment of s.
func NewWriterFrom(s *Sarc) *Writer {
	w := NewWriter(s.order)
	w.minAlignment = s.GuessMinAlignment()
	for _, f := range s.files {
		w.Files[f.Name] = f.Data
	}
	for name, hash := range s.unnamed {
		w.unnamed[name] = hash
	}
	return w
}

// Endian is the byte order the archive will be written in.
func (w *Writer) Endian() binary.ByteOrder {
	return w.order
}

// SetMinAlignment sets the alignment applied to every file. Values that are
// not a power of two are ignored.
func (w *Writer) SetMinAlignment(alignment int) {
	if alignment > 0 && alignment&(alignment-1) == 0 {
		w.minAlignment = alignment
	}
}

// contentAlignment is the alignment required by the content of data, 0 when
// it has none.
func contentAlignment(data []byte) int {
	switch {
	case IsArchive(data):
		return 0x2000
	case len(data) >= 4 && string(data[:4]) == "FRES":
		return 0x1000
	}
	return 0
}

func (w *Writer) fileAlignment(data []byte) int {
	return max(w.minAlignment, contentAlignment(data))
}

func alignUp(n, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

type node struct {
	name      string
	hash      uint32
	named     bool
	data      []byte
	alignment int
}

// Bytes serialises the archive.
func (w *Writer) Bytes() []byte {
	nodes := make([]node, 0, len(w.Files))
	for name, data := range w.Files {
		n := node{
			name:      name,
			hash:      NameHash(name, HashMultiplier),
			named:     true,
			data:      data,
			alignment: w.fileAlignment(data),
		}
		// entries read without a name keep their hash
		if hash, ok := w.unnamed[name]; ok {
			n.hash, n.named = hash, false
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].hash != nodes[j].hash {
			return nodes[i].hash < nodes[j].hash
		}
		return nodes[i].name < nodes[j].name
	})

	nameOffsets := make([]int, len(nodes))
	namesSize := 0
	for i, n := range nodes {
		nameOffsets[i] = namesSize
		if n.named {
			namesSize += alignUp(len(n.name)+1, 4)
		}
	}

	maxAlignment := w.minAlignment
	for _, n := range nodes {
		maxAlignment = max(maxAlignment, n.alignment)
	}
	tablesEnd := headerSize + sfatHeaderSize + len(nodes)*sfatNodeSize + sfntHeaderSize + namesSize
	dataOffset := alignUp(tablesEnd, maxAlignment)

	starts := make([]int, len(nodes))
	pos := 0
	for i, n := range nodes {
		pos = alignUp(dataOffset+pos, n.alignment) - dataOffset
		starts[i] = pos
		pos += len(n.data)
	}
	fileSize := dataOffset + pos

	out := make([]byte, fileSize)
	o := w.order

	copy(out, Magic)
	o.PutUint16(out[4:], headerSize)
	o.PutUint16(out[6:], 0xFEFF)
	o.PutUint32(out[8:], uint32(fileSize))
	o.PutUint32(out[0xC:], uint32(dataOffset))
	o.PutUint16(out[0x10:], 0x0100)

	sfat := out[headerSize:]
	copy(sfat, "SFAT")
	o.PutUint16(sfat[4:], sfatHeaderSize)
	o.PutUint16(sfat[6:], uint16(len(nodes)))
	o.PutUint32(sfat[8:], HashMultiplier)

	collision := 0
	for i, n := range nodes {
		if i > 0 && nodes[i-1].hash == n.hash {
			collision++
		} else {
			collision = 0
		}
		entry := sfat[sfatHeaderSize+i*sfatNodeSize:]
		o.PutUint32(entry[0:], n.hash)
		if n.named {
			o.PutUint32(entry[4:], uint32(collision+1)<<24|uint32(nameOffsets[i]/4))
		}
		o.PutUint32(entry[8:], uint32(starts[i]))
		o.PutUint32(entry[12:], uint32(starts[i]+len(n.data)))
	}

	sfntStart := headerSize + sfatHeaderSize + len(nodes)*sfatNodeSize
	sfnt := out[sfntStart:]
	copy(sfnt, "SFNT")
	o.PutUint16(sfnt[4:], sfntHeaderSize)
	for i, n := range nodes {
		if n.named {
			copy(sfnt[sfntHeaderSize+nameOffsets[i]:], n.name)
		}
	}

	for i, n := range nodes {
		copy(out[dataOffset+starts[i]:], n.data)
	}

	return out
}
