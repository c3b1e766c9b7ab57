package byml

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Node types
const (
	typeString      = 0xA0
	typeBinary      = 0xA1
	typeArray       = 0xC0
	typeHash        = 0xC1
	typeStringTable = 0xC2
	typeBool        = 0xD0
	typeInt         = 0xD1
	typeFloat       = 0xD2
	typeUInt        = 0xD3
	typeInt64       = 0xD4
	typeUInt64      = 0xD5
	typeDouble      = 0xD6
	typeNull        = 0xFF

	headerSize = 0x10
	maxDepth   = 256
)

var (
	ErrInvalidHeader = errors.New("invalid BYML header")
	ErrCorrupt       = errors.New("corrupt BYML document")
	ErrUnsupported   = errors.New("unsupported BYML value")
)

// Hash is a dictionary node. Arrays are Array; scalar values are string,
// []byte, bool, int32, float32, uint32, int64, uint64, float64 or nil.
type (
	Hash  map[string]any
	Array []any
)

// IsByml reports whether data starts with either BYML magic.
func IsByml(data []byte) bool {
	return len(data) >= 2 && (string(data[:2]) == "BY" || string(data[:2]) == "YB")
}

type reader struct {
	data    []byte
	order   binary.ByteOrder
	keys    []string
	strings []string
}

// Parse reads a version 2 to 4 document and returns its root (a Hash, an
// Array, or nil for an empty document) along with its byte order.
func Parse(data []byte) (any, binary.ByteOrder, error) {
	if len(data) < headerSize || !IsByml(data) {
		return nil, nil, ErrInvalidHeader
	}
	var order binary.ByteOrder = binary.LittleEndian
	if data[0] == 'B' {
		order = binary.BigEndian
	}
	version := order.Uint16(data[2:4])
	if version < 2 || version > 4 {
		return nil, nil, fmt.Errorf("%w: version %d", ErrInvalidHeader, version)
	}

	r := &reader{data: data, order: order}
	var err error
	if r.keys, err = r.stringTable(order.Uint32(data[4:8])); err != nil {
		return nil, nil, err
	}
	if r.strings, err = r.stringTable(order.Uint32(data[8:12])); err != nil {
		return nil, nil, err
	}

	rootOffset := order.Uint32(data[12:16])
	if rootOffset == 0 {
		return nil, order, nil
	}
	if int(rootOffset) >= len(data) {
		return nil, nil, fmt.Errorf("%w: root out of bounds", ErrCorrupt)
	}
	t := data[rootOffset]
	if t != typeArray && t != typeHash {
		return nil, nil, fmt.Errorf("%w: root is not a container", ErrCorrupt)
	}
	root, err := r.container(t, rootOffset, 0)
	if err != nil {
		return nil, nil, err
	}
	return root, order, nil
}

// header returns the type and the 24-bit count stored at offset.
func (r *reader) header(offset uint32) (byte, int, error) {
	if int(offset)+4 > len(r.data) {
		return 0, 0, fmt.Errorf("%w: node at %#x out of bounds", ErrCorrupt, offset)
	}
	b := r.data[offset : offset+4]
	if r.order == binary.BigEndian {
		return b[0], int(b[1])<<16 | int(b[2])<<8 | int(b[3]), nil
	}
	return b[0], int(b[1]) | int(b[2])<<8 | int(b[3])<<16, nil
}

func (r *reader) u32(offset uint32) (uint32, error) {
	if int(offset)+4 > len(r.data) {
		return 0, fmt.Errorf("%w: read at %#x out of bounds", ErrCorrupt, offset)
	}
	return r.order.Uint32(r.data[offset:]), nil
}

func (r *reader) u64(offset uint32) (uint64, error) {
	if int(offset)+8 > len(r.data) {
		return 0, fmt.Errorf("%w: read at %#x out of bounds", ErrCorrupt, offset)
	}
	return r.order.Uint64(r.data[offset:]), nil
}

func (r *reader) stringTable(offset uint32) ([]string, error) {
	if offset == 0 {
		return nil, nil
	}
	t, count, err := r.header(offset)
	if err != nil {
		return nil, err
	}
	if t != typeStringTable {
		return nil, fmt.Errorf("%w: expected string table at %#x", ErrCorrupt, offset)
	}
	table := make([]string, count)
	for i := range table {
		start, err := r.u32(offset + 4 + uint32(i)*4)
		if err != nil {
			return nil, err
		}
		pos := int(offset + start)
		if pos >= len(r.data) {
			return nil, fmt.Errorf("%w: string %d out of bounds", ErrCorrupt, i)
		}
		end := bytes.IndexByte(r.data[pos:], 0)
		if end < 0 {
			return nil, fmt.Errorf("%w: string %d not terminated", ErrCorrupt, i)
		}
		table[i] = string(r.data[pos : pos+end])
	}
	return table, nil
}

func (r *reader) container(t byte, offset uint32, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting too deep", ErrCorrupt)
	}
	nt, count, err := r.header(offset)
	if err != nil {
		return nil, err
	}
	if nt != t {
		return nil, fmt.Errorf("%w: type mismatch at %#x", ErrCorrupt, offset)
	}

	if t == typeArray {
		typesStart := offset + 4
		valuesStart := typesStart + uint32(alignUp(count, 4))
		if int(valuesStart)+count*4 > len(r.data) {
			return nil, fmt.Errorf("%w: array at %#x out of bounds", ErrCorrupt, offset)
		}
		arr := make(Array, count)
		for i := range arr {
			v, err := r.value(r.data[typesStart+uint32(i)], valuesStart+uint32(i)*4, depth)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	}

	if int(offset)+4+count*8 > len(r.data) {
		return nil, fmt.Errorf("%w: hash at %#x out of bounds", ErrCorrupt, offset)
	}
	hash := make(Hash, count)
	for i := 0; i < count; i++ {
		entry := r.data[offset+4+uint32(i)*8:]
		var key int
		var vt byte
		if r.order == binary.BigEndian {
			key, vt = int(entry[0])<<16|int(entry[1])<<8|int(entry[2]), entry[3]
		} else {
			key, vt = int(entry[0])|int(entry[1])<<8|int(entry[2])<<16, entry[3]
		}
		if key >= len(r.keys) {
			return nil, fmt.Errorf("%w: key %d out of range", ErrCorrupt, key)
		}
		v, err := r.value(vt, offset+4+uint32(i)*8+4, depth)
		if err != nil {
			return nil, err
		}
		hash[r.keys[key]] = v
	}
	return hash, nil
}

// value decodes the node of type t whose 32-bit slot is at slot.
func (r *reader) value(t byte, slot uint32, depth int) (any, error) {
	raw, err := r.u32(slot)
	if err != nil {
		return nil, err
	}

	switch t {
	case typeString:
		if int(raw) >= len(r.strings) {
			return nil, fmt.Errorf("%w: string %d out of range", ErrCorrupt, raw)
		}
		return r.strings[raw], nil
	case typeBinary:
		size, err := r.u32(raw)
		if err != nil {
			return nil, err
		}
		if int(raw)+4+int(size) > len(r.data) {
			return nil, fmt.Errorf("%w: binary at %#x out of bounds", ErrCorrupt, raw)
		}
		return append([]byte(nil), r.data[raw+4:raw+4+size]...), nil
	case typeArray, typeHash:
		return r.container(t, raw, depth+1)
	case typeBool:
		return raw != 0, nil
	case typeInt:
		return int32(raw), nil
	case typeFloat:
		return math.Float32frombits(raw), nil
	case typeUInt:
		return raw, nil
	case typeInt64:
		v, err := r.u64(raw)
		return int64(v), err
	case typeUInt64:
		return r.u64(raw)
	case typeDouble:
		v, err := r.u64(raw)
		return math.Float64frombits(v), err
	case typeNull:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unknown node type %#x", ErrCorrupt, t)
}

func alignUp(n, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}
