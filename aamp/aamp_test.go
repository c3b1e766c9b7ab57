package aamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIO() *ParameterIO {
	var curve Curve
	curve.A, curve.B = 1, 2
	curve.Floats[0], curve.Floats[29] = 0.5, -1

	return &ParameterIO{
		Version: 0,
		Type:    "xml",
		Root: &ParameterList{
			Objects: []ObjectEntry{{
				Hash: HashName("Header"),
				Object: &ParameterObject{Params: []ParamEntry{
					{Hash: HashName("Enabled"), Param: Parameter{Type: TypeBool, Value: true}},
					{Hash: HashName("Speed"), Param: Parameter{Type: TypeF32, Value: float32(1.25)}},
					{Hash: HashName("Count"), Param: Parameter{Type: TypeInt, Value: int32(-7)}},
					{Hash: HashName("Flags"), Param: Parameter{Type: TypeU32, Value: uint32(0xABCD)}},
					{Hash: HashName("Offset"), Param: Parameter{Type: TypeVec3, Value: Vec3{1, 2, 3}}},
					{Hash: HashName("Tint"), Param: Parameter{Type: TypeColor, Value: Vec4{1, 0.5, 0.25, 1}}},
					{Hash: HashName("Label"), Param: Parameter{Type: TypeString32, Value: "Lizalfos"}},
					{Hash: HashName("Ref"), Param: Parameter{Type: TypeStringRef, Value: "Lizalfos"}},
					{Hash: HashName("Path"), Param: Parameter{Type: TypeString256, Value: "Actor/Pack"}},
					{Hash: HashName("Curve"), Param: Parameter{Type: TypeCurve1, Value: []Curve{curve}}},
					{Hash: HashName("Ints"), Param: Parameter{Type: TypeBufferInt, Value: []int32{1, -2, 3}}},
					{Hash: HashName("Floats"), Param: Parameter{Type: TypeBufferF32, Value: []float32{0.5}}},
					{Hash: HashName("Raw"), Param: Parameter{Type: TypeBufferBinary, Value: []byte{9, 8, 7}}},
				}},
			}},
			Lists: []ListEntry{{
				Hash: HashName("Children"),
				List: &ParameterList{
					Objects: []ObjectEntry{{
						Hash: HashName("Child_0"),
						Object: &ParameterObject{Params: []ParamEntry{
							{Hash: 0x12345678, Param: Parameter{Type: TypeVec2, Value: Vec2{4, 5}}},
						}},
					}},
					Lists: []ListEntry{{Hash: HashName("Deep"), List: &ParameterList{}}},
				},
			}, {
				Hash: HashName("Empty"),
				List: &ParameterList{},
			}},
		},
	}
}

func normalise(l *ParameterList) {
	if l.Lists == nil {
		l.Lists = []ListEntry{}
	}
	if l.Objects == nil {
		l.Objects = []ObjectEntry{}
	}
	for _, o := range l.Objects {
		if o.Object.Params == nil {
			o.Object.Params = []ParamEntry{}
		}
	}
	for _, c := range l.Lists {
		normalise(c.List)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	want := sampleIO()
	data, err := want.Bytes()
	require.NoError(t, err)
	assert.True(t, IsAamp(data))

	got, err := Parse(data)
	require.NoError(t, err)

	normalise(want.Root)
	normalise(got.Root)
	assert.Equal(t, want, got)

	again, err := got.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestBytesRejectsMismatchedValue(t *testing.T) {
	pio := &ParameterIO{Root: &ParameterList{Objects: []ObjectEntry{{
		Hash: 1,
		Object: &ParameterObject{Params: []ParamEntry{
			{Hash: 2, Param: Parameter{Type: TypeF32, Value: "not a float"}},
		}},
	}}}}
	_, err := pio.Bytes()
	assert.ErrorIs(t, err, ErrBadValue)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("BY\x00\x02"))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	data, err := sampleIO().Bytes()
	require.NoError(t, err)
	_, err = Parse(data[:0x50])
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestTextRoundTrip(t *testing.T) {
	names := NewNameTable()
	for _, name := range []string{"Header", "Enabled", "Speed", "Count", "Flags", "Offset", "Tint",
		"Label", "Ref", "Path", "Curve", "Ints", "Floats", "Raw", "Deep", "Empty"} {
		names.Add(name)
	}

	want := sampleIO()
	text, err := want.ToText(names)
	require.NoError(t, err)
	assert.Contains(t, text, "!io")
	assert.Contains(t, text, "Child_0: !obj")
	assert.Contains(t, text, "305419896: !vec2")
	assert.Contains(t, text, "Label: !str32 Lizalfos")
	assert.Contains(t, text, "Flags: !u 0xabcd")

	got, err := FromText(text, names)
	require.NoError(t, err)

	normalise(want.Root)
	normalise(got.Root)
	assert.Equal(t, want, got)
}

func TestNameGuessing(t *testing.T) {
	names := NewNameTable()
	name, ok := names.Guess(HashName("Child_3"), "Children", 3)
	require.True(t, ok)
	assert.Equal(t, "Child_3", name)

	name, ok = names.Guess(HashName("Item002"), "Items", 1)
	require.True(t, ok)
	assert.Equal(t, "Item002", name)

	// guesses are remembered
	name, ok = names.Lookup(HashName("Item002"))
	require.True(t, ok)
	assert.Equal(t, "Item002", name)

	_, ok = names.Guess(HashName("Unrelated"), "Items", 0)
	assert.False(t, ok)

	names.AddNumbered("File", 10)
	name, ok = names.Lookup(HashName("File9"))
	require.True(t, ok)
	assert.Equal(t, "File9", name)
}

func TestFromTextErrors(t *testing.T) {
	names := NewNameTable()
	_, err := FromText("version: 0\n", names)
	assert.ErrorIs(t, err, ErrInvalidText)

	_, err = FromText("param_root: !list\n  objects:\n    A: !obj\n      x: !vec3 [1, 2]\n  lists: {}\n", names)
	assert.ErrorIs(t, err, ErrInvalidText)

	_, err = FromText("param_root: [", names)
	assert.ErrorIs(t, err, ErrInvalidText)
}
