package yaz0

import (
	"encoding/binary"
	"errors"
)

const (
	Magic      = "Yaz0"
	headerSize = 0x10

	// DefaultLevel is the moderate preset used when writing game files.
	DefaultLevel = 6

	window   = 0x1000
	minMatch = 3
	maxMatch = 0xFF + 0x12
	hashBits = 15

	// a three byte back-reference yields at most maxMatch bytes
	maxExpansion = maxMatch/3 + 1
)

var (
	ErrInvalidHeader = errors.New("invalid Yaz0 header")
	ErrCorrupt       = errors.New("corrupt Yaz0 stream")
)

// search depth of the match finder per level
var chainDepth = [10]int{0, 4, 8, 16, 32, 64, 128, 256, 1024, 4096}

// IsCompressed reports whether data starts with the Yaz0 magic.
func IsCompressed(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == Magic
}

// DecompressedSize reads the size stored in the header.
func DecompressedSize(data []byte) (int, error) {
	if !IsCompressed(data) || len(data) < headerSize {
		return 0, ErrInvalidHeader
	}
	return int(binary.BigEndian.Uint32(data[4:8])), nil
}

// Decompress expands a Yaz0 stream into a new buffer.
func Decompress(data []byte) ([]byte, error) {
	size, err := DecompressedSize(data)
	if err != nil {
		return nil, err
	}

	src := data[headerSize:]
	if size > len(src)*maxExpansion {
		return nil, ErrCorrupt
	}
	out := make([]byte, 0, size)
	pos := 0
	for len(out) < size {
		if pos >= len(src) {
			return nil, ErrCorrupt
		}
		code := src[pos]
		pos++

		for bit := 7; bit >= 0 && len(out) < size; bit-- {
			if code&(1<<bit) != 0 {
				if pos >= len(src) {
					return nil, ErrCorrupt
				}
				out = append(out, src[pos])
				pos++
				continue
			}

			if pos+2 > len(src) {
				return nil, ErrCorrupt
			}
			b1, b2 := src[pos], src[pos+1]
			pos += 2
			dist := (int(b1&0x0F)<<8 | int(b2)) + 1
			n := int(b1 >> 4)
			if n == 0 {
				if pos >= len(src) {
					return nil, ErrCorrupt
				}
				n = int(src[pos]) + 0x12
				pos++
			} else {
				n += 2
			}

			start := len(out) - dist
			if start < 0 {
				return nil, ErrCorrupt
			}
			// copies may overlap the bytes being produced
			for i := 0; i < n && len(out) < size; i++ {
				out = append(out, out[start+i])
			}
		}
	}

	return out, nil
}

// Compress encodes data as a Yaz0 stream. Level ranges from 0 (literals only)
// to 9 (slowest, smallest); out of range values are clamped.
func Compress(data []byte, level int) []byte {
	level = max(0, min(level, 9))

	out := make([]byte, headerSize, headerSize+len(data)+len(data)/8+1)
	copy(out, Magic)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(data)))

	m := newMatcher(data, chainDepth[level])
	lazy := level >= 4

	pos := 0
	for pos < len(data) {
		codePos := len(out)
		out = append(out, 0)
		var code byte

		for bit := 7; bit >= 0 && pos < len(data); bit-- {
			length, dist := m.find(pos)
			if length >= minMatch && lazy && length < maxMatch {
				// prefer a literal when the next position starts a longer run
				if next, _ := m.find(pos + 1); next > length+1 {
					length = 0
				}
			}

			if length < minMatch {
				code |= 1 << bit
				out = append(out, data[pos])
				pos++
				continue
			}

			d := dist - 1
			if length >= 0x12 {
				out = append(out, byte(d>>8), byte(d), byte(length-0x12))
			} else {
				out = append(out, byte((length-2)<<4|d>>8), byte(d))
			}
			pos += length
		}

		out[codePos] = code
	}

	return out
}

type matcher struct {
	data  []byte
	head  []int32
	prev  []int32
	next  int
	depth int
}

func newMatcher(data []byte, depth int) *matcher {
	m := &matcher{
		data:  data,
		head:  make([]int32, 1<<hashBits),
		depth: depth,
	}
	if depth > 0 {
		m.prev = make([]int32, len(data))
	}
	for i := range m.head {
		m.head[i] = -1
	}
	return m
}

func hash3(b []byte) uint32 {
	v := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	return (v * 2654435761) >> (32 - hashBits)
}

// advance inserts every position before to into the hash chains.
func (m *matcher) advance(to int) {
	for ; m.next < to; m.next++ {
		if m.next+minMatch > len(m.data) {
			continue
		}
		h := hash3(m.data[m.next:])
		m.prev[m.next] = m.head[h]
		m.head[h] = int32(m.next)
	}
}

// find returns the longest earlier match for the bytes at pos.
func (m *matcher) find(pos int) (length, dist int) {
	if m.depth == 0 || pos+minMatch > len(m.data) {
		return 0, 0
	}
	m.advance(pos)

	limit := min(maxMatch, len(m.data)-pos)
	cand := m.head[hash3(m.data[pos:])]
	for n := m.depth; cand >= 0 && n > 0; n-- {
		c := int(cand)
		if pos-c > window {
			break
		}
		l := 0
		for l < limit && m.data[c+l] == m.data[pos+l] {
			l++
		}
		if l > length {
			length, dist = l, pos-c
			if l == limit {
				break
			}
		}
		cand = m.prev[c]
	}
	return length, dist
}
