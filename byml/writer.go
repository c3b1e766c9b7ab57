package byml

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

type writer struct {
	buf     []byte
	order   binary.ByteOrder
	keys    map[string]int
	strings map[string]int
}

// Bytes serialises root (a Hash, an Array or nil) as a document of the given
// version and byte order.
func Bytes(root any, order binary.ByteOrder, version uint16) ([]byte, error) {
	switch root.(type) {
	case Hash, Array, nil:
	default:
		return nil, fmt.Errorf("%w: root must be a hash or an array, got %T", ErrUnsupported, root)
	}

	keySet := map[string]struct{}{}
	stringSet := map[string]struct{}{}
	if err := collect(root, keySet, stringSet, 0); err != nil {
		return nil, err
	}

	w := &writer{
		buf:   make([]byte, headerSize),
		order: order,
	}
	if order == binary.BigEndian {
		copy(w.buf, "BY")
	} else {
		copy(w.buf, "YB")
	}
	order.PutUint16(w.buf[2:], version)

	var offset uint32
	offset, w.keys = w.writeStringTable(keySet)
	order.PutUint32(w.buf[4:], offset)
	offset, w.strings = w.writeStringTable(stringSet)
	order.PutUint32(w.buf[8:], offset)

	if root != nil {
		rootOffset, err := w.writeContainer(root)
		if err != nil {
			return nil, err
		}
		order.PutUint32(w.buf[12:], rootOffset)
	}

	return w.buf, nil
}

func collect(node any, keys, strs map[string]struct{}, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: nesting too deep", ErrUnsupported)
	}
	switch n := node.(type) {
	case Hash:
		for k, v := range n {
			keys[k] = struct{}{}
			if err := collect(v, keys, strs, depth+1); err != nil {
				return err
			}
		}
	case Array:
		for _, v := range n {
			if err := collect(v, keys, strs, depth+1); err != nil {
				return err
			}
		}
	case string:
		strs[n] = struct{}{}
	}
	return nil
}

func (w *writer) align() {
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *writer) reserve(n int) uint32 {
	w.align()
	offset := len(w.buf)
	w.buf = append(w.buf, make([]byte, n)...)
	return uint32(offset)
}

func (w *writer) putHeader(offset uint32, t byte, count int) {
	b := w.buf[offset : offset+4]
	b[0] = t
	if w.order == binary.BigEndian {
		b[1], b[2], b[3] = byte(count>>16), byte(count>>8), byte(count)
	} else {
		b[1], b[2], b[3] = byte(count), byte(count>>8), byte(count>>16)
	}
}

// writeStringTable writes the sorted table and returns its offset and the
// index of every string; empty tables are omitted.
func (w *writer) writeStringTable(set map[string]struct{}) (uint32, map[string]int) {
	sorted := make([]string, 0, len(set))
	for s := range set {
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)

	index := make(map[string]int, len(sorted))
	if len(sorted) == 0 {
		return 0, index
	}

	offset := w.reserve(4 + (len(sorted)+1)*4)
	w.putHeader(offset, typeStringTable, len(sorted))
	for i, s := range sorted {
		index[s] = i
		w.order.PutUint32(w.buf[offset+4+uint32(i)*4:], uint32(len(w.buf))-offset)
		w.buf = append(w.buf, s...)
		w.buf = append(w.buf, 0)
	}
	w.order.PutUint32(w.buf[offset+4+uint32(len(sorted))*4:], uint32(len(w.buf))-offset)
	w.align()
	return offset, index
}

func (w *writer) writeContainer(node any) (uint32, error) {
	switch n := node.(type) {
	case Array:
		offset := w.reserve(4 + alignUp(len(n), 4) + len(n)*4)
		w.putHeader(offset, typeArray, len(n))
		valuesStart := offset + 4 + uint32(alignUp(len(n), 4))
		for i, v := range n {
			t, raw, err := w.writeValue(v)
			if err != nil {
				return 0, err
			}
			w.buf[offset+4+uint32(i)] = t
			w.order.PutUint32(w.buf[valuesStart+uint32(i)*4:], raw)
		}
		return offset, nil

	case Hash:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		offset := w.reserve(4 + len(n)*8)
		w.putHeader(offset, typeHash, len(n))
		for i, k := range keys {
			t, raw, err := w.writeValue(n[k])
			if err != nil {
				return 0, err
			}
			entry := w.buf[offset+4+uint32(i)*8:]
			key := w.keys[k]
			if w.order == binary.BigEndian {
				entry[0], entry[1], entry[2] = byte(key>>16), byte(key>>8), byte(key)
			} else {
				entry[0], entry[1], entry[2] = byte(key), byte(key>>8), byte(key>>16)
			}
			entry[3] = t
			w.order.PutUint32(entry[4:], raw)
		}
		return offset, nil
	}
	return 0, fmt.Errorf("%w: %T is not a container", ErrUnsupported, node)
}

// writeValue returns the node type and the 32-bit slot of v, writing any
// out-of-line data first.
func (w *writer) writeValue(v any) (byte, uint32, error) {
	switch n := v.(type) {
	case Hash, Array:
		offset, err := w.writeContainer(n)
		if _, ok := n.(Hash); ok {
			return typeHash, offset, err
		}
		return typeArray, offset, err
	case string:
		return typeString, uint32(w.strings[n]), nil
	case []byte:
		offset := w.reserve(4 + len(n))
		w.order.PutUint32(w.buf[offset:], uint32(len(n)))
		copy(w.buf[offset+4:], n)
		return typeBinary, offset, nil
	case bool:
		if n {
			return typeBool, 1, nil
		}
		return typeBool, 0, nil
	case int32:
		return typeInt, uint32(n), nil
	case float32:
		return typeFloat, math.Float32bits(n), nil
	case uint32:
		return typeUInt, n, nil
	case int64:
		return typeInt64, w.write64(uint64(n)), nil
	case uint64:
		return typeUInt64, w.write64(n), nil
	case float64:
		return typeDouble, w.write64(math.Float64bits(n)), nil
	case nil:
		return typeNull, 0, nil
	}
	return 0, 0, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

func (w *writer) write64(v uint64) uint32 {
	offset := w.reserve(8)
	w.order.PutUint64(w.buf[offset:], v)
	return offset
}
