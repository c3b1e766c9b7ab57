package aamp

import (
	"encoding/binary"
	"fmt"
	"math"
)

type paramRef struct {
	hash  uint32
	param Parameter
}

type objectRef struct {
	hash   uint32
	object *ParameterObject
	first  int // index of the first parameter
}

type listRef struct {
	hash        uint32
	list        *ParameterList
	firstList   int
	firstObject int
}

// Bytes serialises the document. Child lists of a list are stored next to
// each other, as are the objects of a list and the parameters of an object.
func (pio *ParameterIO) Bytes() ([]byte, error) {
	root := pio.Root
	if root == nil {
		root = &ParameterList{}
	}

	// breadth first, so the children of every list end up contiguous
	lists := []listRef{{hash: RootHash, list: root}}
	for i := 0; i < len(lists); i++ {
		lists[i].firstList = len(lists)
		for _, child := range lists[i].list.Lists {
			if child.List == nil {
				return nil, fmt.Errorf("%w: list %#x is nil", ErrBadValue, child.Hash)
			}
			lists = append(lists, listRef{hash: child.Hash, list: child.List})
		}
	}
	var objects []objectRef
	for i := range lists {
		lists[i].firstObject = len(objects)
		for _, o := range lists[i].list.Objects {
			if o.Object == nil {
				return nil, fmt.Errorf("%w: object %#x is nil", ErrBadValue, o.Hash)
			}
			objects = append(objects, objectRef{hash: o.Hash, object: o.Object})
		}
	}
	var params []paramRef
	for i := range objects {
		objects[i].first = len(params)
		for _, p := range objects[i].object.Params {
			params = append(params, paramRef{hash: p.Hash, param: p.Param})
		}
	}

	typeName := pio.Type
	if typeName == "" {
		typeName = "xml"
	}
	typeSize := alignUp(len(typeName)+1, 4)
	listBase := headerSize + typeSize
	objectBase := listBase + len(lists)*listSize
	paramBase := objectBase + len(objects)*objectSize
	dataBase := paramBase + len(params)*paramSize

	// data section
	data := make([]byte, 0)
	dataOffsets := make([]int, len(params))
	for i, p := range params {
		if p.param.Type.isString() {
			continue
		}
		encoded, isBuffer, err := encodeValue(p.param)
		if err != nil {
			return nil, fmt.Errorf("parameter %#x: %w", p.hash, err)
		}
		if isBuffer {
			data = binary.LittleEndian.AppendUint32(data, uint32(bufferLen(p.param)))
		}
		dataOffsets[i] = dataBase + len(data)
		data = append(data, encoded...)
		data = padTo4(data)
	}

	// string section, identical strings share their storage
	stringBase := dataBase + len(data)
	strs := make([]byte, 0)
	seen := map[string]int{}
	for i, p := range params {
		if !p.param.Type.isString() {
			continue
		}
		s, ok := p.param.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %#x", ErrBadValue, p.hash)
		}
		if off, ok := seen[s]; ok {
			dataOffsets[i] = off
			continue
		}
		dataOffsets[i] = stringBase + len(strs)
		seen[s] = dataOffsets[i]
		strs = append(strs, s...)
		strs = append(strs, 0)
		strs = padTo4(strs)
	}

	out := make([]byte, dataBase, stringBase+len(strs))
	le := binary.LittleEndian
	copy(out, Magic)
	le.PutUint32(out[0x04:], 2)
	le.PutUint32(out[0x08:], 3)
	le.PutUint32(out[0x10:], pio.Version)
	le.PutUint32(out[0x14:], uint32(typeSize))
	le.PutUint32(out[0x18:], uint32(len(lists)))
	le.PutUint32(out[0x1C:], uint32(len(objects)))
	le.PutUint32(out[0x20:], uint32(len(params)))
	le.PutUint32(out[0x24:], uint32(len(data)))
	le.PutUint32(out[0x28:], uint32(len(strs)))
	copy(out[headerSize:], typeName)

	for i, l := range lists {
		at := listBase + i*listSize
		le.PutUint32(out[at:], l.hash)
		le.PutUint16(out[at+4:], uint16((listBase+l.firstList*listSize-at)/4))
		le.PutUint16(out[at+6:], uint16(len(l.list.Lists)))
		le.PutUint16(out[at+8:], uint16((objectBase+l.firstObject*objectSize-at)/4))
		le.PutUint16(out[at+10:], uint16(len(l.list.Objects)))
	}
	for i, o := range objects {
		at := objectBase + i*objectSize
		le.PutUint32(out[at:], o.hash)
		le.PutUint16(out[at+4:], uint16((paramBase+o.first*paramSize-at)/4))
		le.PutUint16(out[at+6:], uint16(len(o.object.Params)))
	}
	for i, p := range params {
		at := paramBase + i*paramSize
		le.PutUint32(out[at:], p.hash)
		le.PutUint32(out[at+4:], uint32(p.param.Type)<<24|uint32((dataOffsets[i]-at)/4))
	}

	out = append(out, data...)
	out = append(out, strs...)
	le.PutUint32(out[0x0C:], uint32(len(out)))
	return out, nil
}

func (t Type) isString() bool {
	switch t {
	case TypeString32, TypeString64, TypeString256, TypeStringRef:
		return true
	}
	return false
}

func alignUp(n, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

func padTo4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func bufferLen(p Parameter) int {
	switch v := p.Value.(type) {
	case []int32:
		return len(v)
	case []uint32:
		return len(v)
	case []float32:
		return len(v)
	case []byte:
		return len(v)
	}
	return 0
}

func appendFloats(b []byte, f ...float32) []byte {
	for _, v := range f {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

// encodeValue returns the raw bytes of a non-string parameter and whether it
// is a buffer prefixed by its length.
func encodeValue(p Parameter) ([]byte, bool, error) {
	le := binary.LittleEndian
	var b []byte
	ok := true
	switch p.Type {
	case TypeBool:
		var v bool
		if v, ok = p.Value.(bool); ok {
			var raw uint32
			if v {
				raw = 1
			}
			b = le.AppendUint32(b, raw)
		}
	case TypeF32:
		var v float32
		if v, ok = p.Value.(float32); ok {
			b = appendFloats(b, v)
		}
	case TypeInt:
		var v int32
		if v, ok = p.Value.(int32); ok {
			b = le.AppendUint32(b, uint32(v))
		}
	case TypeU32:
		var v uint32
		if v, ok = p.Value.(uint32); ok {
			b = le.AppendUint32(b, v)
		}
	case TypeVec2:
		var v Vec2
		if v, ok = p.Value.(Vec2); ok {
			b = appendFloats(b, v[:]...)
		}
	case TypeVec3:
		var v Vec3
		if v, ok = p.Value.(Vec3); ok {
			b = appendFloats(b, v[:]...)
		}
	case TypeVec4, TypeColor, TypeQuat:
		var v Vec4
		if v, ok = p.Value.(Vec4); ok {
			b = appendFloats(b, v[:]...)
		}
	case TypeCurve1, TypeCurve2, TypeCurve3, TypeCurve4:
		var v []Curve
		v, ok = p.Value.([]Curve)
		ok = ok && len(v) == int(p.Type-TypeCurve1)+1
		for _, c := range v {
			b = le.AppendUint32(b, c.A)
			b = le.AppendUint32(b, c.B)
			b = appendFloats(b, c.Floats[:]...)
		}
	case TypeBufferInt:
		var v []int32
		v, ok = p.Value.([]int32)
		for _, x := range v {
			b = le.AppendUint32(b, uint32(x))
		}
		return b, true, valueErr(ok, p)
	case TypeBufferU32:
		var v []uint32
		v, ok = p.Value.([]uint32)
		for _, x := range v {
			b = le.AppendUint32(b, x)
		}
		return b, true, valueErr(ok, p)
	case TypeBufferF32:
		var v []float32
		v, ok = p.Value.([]float32)
		b = appendFloats(b, v...)
		return b, true, valueErr(ok, p)
	case TypeBufferBinary:
		var v []byte
		v, ok = p.Value.([]byte)
		return append(b, v...), true, valueErr(ok, p)
	default:
		return nil, false, fmt.Errorf("%w: unknown type %d", ErrBadValue, p.Type)
	}
	return b, false, valueErr(ok, p)
}

func valueErr(ok bool, p Parameter) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: type %d holds %T", ErrBadValue, p.Type, p.Value)
}
