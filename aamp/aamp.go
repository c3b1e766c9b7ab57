package aamp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
)

// Type is the type tag of a parameter.
type Type uint8

const (
	TypeBool Type = iota
	TypeF32
	TypeInt
	TypeVec2
	TypeVec3
	TypeVec4
	TypeColor
	TypeString32
	TypeString64
	TypeCurve1
	TypeCurve2
	TypeCurve3
	TypeCurve4
	TypeBufferInt
	TypeBufferF32
	TypeString256
	TypeQuat
	TypeU32
	TypeBufferU32
	TypeBufferBinary
	TypeStringRef
)

const (
	Magic = "AAMP"

	headerSize = 0x30
	listSize   = 12
	objectSize = 8
	paramSize  = 8
	curveSize  = 0x80
	maxDepth   = 128
)

var (
	ErrInvalidHeader = errors.New("invalid AAMP header")
	ErrCorrupt       = errors.New("corrupt AAMP document")
	ErrBadValue      = errors.New("parameter value does not match its type")
)

// RootHash is the name hash of the top-level list.
var RootHash = HashName("param_root")

// HashName is the CRC32 used for every list, object and parameter name.
func HashName(name string) uint32 {
	return crc32.ChecksumIEEE([]byte(name))
}

type (
	Vec2 [2]float32
	Vec3 [3]float32
	Vec4 [4]float32
)

// Curve is one of the fixed-size curves of a curve parameter.
type Curve struct {
	A, B   uint32
	Floats [30]float32
}

// Parameter is a typed value. The Go type of Value depends on Type: bool,
// float32, int32, uint32, Vec2, Vec3, Vec4 (also colors and quaternions),
// string for every string kind, []Curve, []int32, []float32, []uint32 or
// []byte.
type Parameter struct {
	Type  Type
	Value any
}

type ParamEntry struct {
	Hash  uint32
	Param Parameter
}

type ParameterObject struct {
	Params []ParamEntry
}

type ObjectEntry struct {
	Hash   uint32
	Object *ParameterObject
}

type ListEntry struct {
	Hash uint32
	List *ParameterList
}

type ParameterList struct {
	Lists   []ListEntry
	Objects []ObjectEntry
}

// ParameterIO is a whole document; its root list is named param_root.
type ParameterIO struct {
	Version uint32
	Type    string
	Root    *ParameterList
}

func (t Type) vectorLen() int {
	switch t {
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	}
	return 4
}

// IsAamp reports whether data starts with the AAMP magic.
func IsAamp(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == Magic
}

type reader struct {
	data []byte
}

func (r *reader) u16(offset int) uint16 { return binary.LittleEndian.Uint16(r.data[offset:]) }
func (r *reader) u32(offset int) uint32 { return binary.LittleEndian.Uint32(r.data[offset:]) }

func (r *reader) check(offset, size int) error {
	if offset < 0 || offset+size > len(r.data) {
		return fmt.Errorf("%w: read at %#x out of bounds", ErrCorrupt, offset)
	}
	return nil
}

// Parse reads a version 2 little endian document.
func Parse(data []byte) (*ParameterIO, error) {
	if len(data) < headerSize+4 || !IsAamp(data) {
		return nil, ErrInvalidHeader
	}
	r := &reader{data: data}
	if v := r.u32(4); v != 2 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidHeader, v)
	}
	if r.u32(8)&1 == 0 {
		return nil, fmt.Errorf("%w: big endian documents are not supported", ErrInvalidHeader)
	}

	pio := &ParameterIO{Version: r.u32(0x10)}
	typeEnd := bytes.IndexByte(data[headerSize:], 0)
	if typeEnd < 0 {
		return nil, fmt.Errorf("%w: unterminated type", ErrCorrupt)
	}
	pio.Type = string(data[headerSize : headerSize+typeEnd])

	root, err := r.list(headerSize+int(r.u32(0x14)), 0)
	if err != nil {
		return nil, err
	}
	pio.Root = root
	return pio, nil
}

func (r *reader) list(offset, depth int) (*ParameterList, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting too deep", ErrCorrupt)
	}
	if err := r.check(offset, listSize); err != nil {
		return nil, err
	}
	listsAt := offset + int(r.u16(offset+4))*4
	listCount := int(r.u16(offset + 6))
	objectsAt := offset + int(r.u16(offset+8))*4
	objectCount := int(r.u16(offset + 10))

	l := &ParameterList{
		Lists:   make([]ListEntry, 0, listCount),
		Objects: make([]ObjectEntry, 0, objectCount),
	}
	for i := 0; i < listCount; i++ {
		at := listsAt + i*listSize
		if err := r.check(at, listSize); err != nil {
			return nil, err
		}
		child, err := r.list(at, depth+1)
		if err != nil {
			return nil, err
		}
		l.Lists = append(l.Lists, ListEntry{Hash: r.u32(at), List: child})
	}
	for i := 0; i < objectCount; i++ {
		at := objectsAt + i*objectSize
		obj, err := r.object(at)
		if err != nil {
			return nil, err
		}
		l.Objects = append(l.Objects, ObjectEntry{Hash: r.u32(at), Object: obj})
	}
	return l, nil
}

func (r *reader) object(offset int) (*ParameterObject, error) {
	if err := r.check(offset, objectSize); err != nil {
		return nil, err
	}
	paramsAt := offset + int(r.u16(offset+4))*4
	count := int(r.u16(offset + 6))

	o := &ParameterObject{Params: make([]ParamEntry, 0, count)}
	for i := 0; i < count; i++ {
		at := paramsAt + i*paramSize
		if err := r.check(at, paramSize); err != nil {
			return nil, err
		}
		packed := r.u32(at + 4)
		p, err := r.param(Type(packed>>24), at+int(packed&0xFFFFFF)*4)
		if err != nil {
			return nil, err
		}
		o.Params = append(o.Params, ParamEntry{Hash: r.u32(at), Param: p})
	}
	return o, nil
}

func (r *reader) floats(offset, n int) ([]float32, error) {
	if err := r.check(offset, n*4); err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(r.u32(offset + i*4))
	}
	return out, nil
}

func (r *reader) str(offset int) (string, error) {
	if err := r.check(offset, 1); err != nil {
		return "", err
	}
	end := bytes.IndexByte(r.data[offset:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at %#x", ErrCorrupt, offset)
	}
	return string(r.data[offset : offset+end]), nil
}

// bufferCount reads the element count stored just before a buffer.
func (r *reader) bufferCount(offset, elemSize int) (int, error) {
	if err := r.check(offset-4, 4); err != nil {
		return 0, err
	}
	n := int(r.u32(offset - 4))
	if err := r.check(offset, n*elemSize); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *reader) param(t Type, offset int) (Parameter, error) {
	p := Parameter{Type: t}
	switch t {
	case TypeBool, TypeF32, TypeInt, TypeU32:
		if err := r.check(offset, 4); err != nil {
			return p, err
		}
		raw := r.u32(offset)
		switch t {
		case TypeBool:
			p.Value = raw != 0
		case TypeF32:
			p.Value = math.Float32frombits(raw)
		case TypeInt:
			p.Value = int32(raw)
		default:
			p.Value = raw
		}

	case TypeVec2, TypeVec3, TypeVec4, TypeColor, TypeQuat:
		n := t.vectorLen()
		f, err := r.floats(offset, n)
		if err != nil {
			return p, err
		}
		switch n {
		case 2:
			p.Value = Vec2(f)
		case 3:
			p.Value = Vec3(f)
		default:
			p.Value = Vec4(f)
		}

	case TypeString32, TypeString64, TypeString256, TypeStringRef:
		s, err := r.str(offset)
		if err != nil {
			return p, err
		}
		p.Value = s

	case TypeCurve1, TypeCurve2, TypeCurve3, TypeCurve4:
		n := int(t-TypeCurve1) + 1
		if err := r.check(offset, n*curveSize); err != nil {
			return p, err
		}
		curves := make([]Curve, n)
		for i := range curves {
			at := offset + i*curveSize
			curves[i].A = r.u32(at)
			curves[i].B = r.u32(at + 4)
			f, _ := r.floats(at+8, 30)
			copy(curves[i].Floats[:], f)
		}
		p.Value = curves

	case TypeBufferInt, TypeBufferU32, TypeBufferF32:
		n, err := r.bufferCount(offset, 4)
		if err != nil {
			return p, err
		}
		switch t {
		case TypeBufferInt:
			v := make([]int32, n)
			for i := range v {
				v[i] = int32(r.u32(offset + i*4))
			}
			p.Value = v
		case TypeBufferU32:
			v := make([]uint32, n)
			for i := range v {
				v[i] = r.u32(offset + i*4)
			}
			p.Value = v
		default:
			p.Value, _ = r.floats(offset, n)
		}

	case TypeBufferBinary:
		n, err := r.bufferCount(offset, 1)
		if err != nil {
			return p, err
		}
		p.Value = append([]byte(nil), r.data[offset:offset+n]...)

	default:
		return p, fmt.Errorf("%w: unknown parameter type %d", ErrCorrupt, t)
	}
	return p, nil
}
