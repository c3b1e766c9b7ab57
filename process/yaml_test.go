package process

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildbits/wildbits/aamp"
	"github.com/wildbits/wildbits/byml"
	"github.com/wildbits/wildbits/fileio"
	"github.com/wildbits/wildbits/msyt"
)

func aampFixture(t *testing.T) []byte {
	t.Helper()
	pio := &aamp.ParameterIO{Type: "xml", Root: &aamp.ParameterList{
		Objects: []aamp.ObjectEntry{{
			Hash: aamp.HashName("Header"),
			Object: &aamp.ParameterObject{Params: []aamp.ParamEntry{
				{Hash: aamp.HashName("Speed"), Param: aamp.Parameter{Type: aamp.TypeF32, Value: float32(2.5)}},
				{Hash: aamp.HashName("Name"), Param: aamp.Parameter{Type: aamp.TypeString64, Value: "Lynel"}},
			}},
		}},
		Lists: []aamp.ListEntry{{Hash: aamp.HashName("File3"), List: &aamp.ParameterList{}}},
	}}
	data, err := pio.Bytes()
	require.NoError(t, err)
	return data
}

func TestAampDocumentRoundTrip(t *testing.T) {
	names := aamp.NewNameTable()
	data := aampFixture(t)

	doc, err := DocumentFromBinary(data, names)
	require.NoError(t, err)
	assert.Equal(t, KindAamp, doc.Kind)
	assert.Equal(t, "aamp", doc.Kind.String())
	assert.Equal(t, binary.LittleEndian, doc.Order)

	before, err := doc.ToBinary()
	require.NoError(t, err)

	text, err := doc.ToText()
	require.NoError(t, err)
	assert.NotEmpty(t, text)
	// numbered names are known once an AAMP document was opened
	assert.Contains(t, text, "File3")

	require.NoError(t, doc.Update(text))
	after, err := doc.ToBinary()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBymlDocument(t *testing.T) {
	root := byml.Hash{"Name": "Link", "Hearts": int32(3)}
	data, err := byml.Bytes(root, binary.BigEndian, 2)
	require.NoError(t, err)
	compressed, err := fileio.Compress(data)
	require.NoError(t, err)

	doc, err := DocumentFromBinary(compressed, aamp.NewNameTable())
	require.NoError(t, err)
	assert.Equal(t, KindByml, doc.Kind)
	assert.Equal(t, binary.BigEndian, doc.Order)

	text, err := doc.ToText()
	require.NoError(t, err)
	require.NoError(t, doc.Update(text))
	out, err := doc.ToBinary()
	require.NoError(t, err)
	assert.Equal(t, data, out)

	require.NoError(t, doc.Update("Name: Zelda\n"))
	out, err = doc.ToBinary()
	require.NoError(t, err)
	parsed, order, err := byml.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian, order)
	assert.Equal(t, byml.Hash{"Name": "Zelda"}, parsed)
}

func TestMsbtDocument(t *testing.T) {
	m := msyt.New(binary.LittleEndian)
	m.Entries = []msyt.Entry{{Label: "Hello", Contents: []msyt.Content{{Text: "Hello!"}}}}
	data, err := m.Bytes()
	require.NoError(t, err)

	doc, err := DocumentFromBinary(data, aamp.NewNameTable())
	require.NoError(t, err)
	assert.Equal(t, KindMsbt, doc.Kind)
	assert.Equal(t, binary.LittleEndian, doc.Order)

	text, err := doc.ToText()
	require.NoError(t, err)
	assert.Contains(t, text, "Hello!")
	require.NoError(t, doc.Update(text))
	out, err := doc.ToBinary()
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestDocumentErrors(t *testing.T) {
	_, err := DocumentFromBinary([]byte("PNG image, not a document"), aamp.NewNameTable())
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = DocumentFromBinary([]byte("AAMP broken"), aamp.NewNameTable())
	assert.ErrorIs(t, err, ErrParse)

	data, err := byml.Bytes(byml.Hash{"a": int32(1)}, binary.LittleEndian, 2)
	require.NoError(t, err)
	doc, err := DocumentFromBinary(data, aamp.NewNameTable())
	require.NoError(t, err)

	assert.ErrorIs(t, doc.Update("a: ["), ErrInvalidYAML)
	out, err := doc.ToBinary()
	require.NoError(t, err)
	assert.Equal(t, data, out)
}
