package sarc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildArchive(t *testing.T, order binary.ByteOrder, files map[string][]byte) *Sarc {
	t.Helper()
	w := NewWriter(order)
	for name, data := range files {
		w.Files[name] = data
	}
	s, err := Parse(w.Bytes())
	require.NoError(t, err)
	return s
}

func TestNameHash(t *testing.T) {
	assert.Equal(t, uint32(0), NameHash("", HashMultiplier))
	assert.Equal(t, uint32('a'), NameHash("a", HashMultiplier))
	assert.Equal(t, uint32('a')*HashMultiplier+uint32('b'), NameHash("ab", HashMultiplier))
	// bytes above 0x7F are sign extended
	assert.Equal(t, uint32(0xFFFFFFFF), NameHash("\xff", HashMultiplier))
}

func TestWriterRoundTrip(t *testing.T) {
	files := map[string][]byte{
		"Actor/ActorLink/Enemy_Lizalfos.bxml":       []byte("AAMPdata"),
		"Actor/Pack/Enemy_Lizalfos.sbactorpack":     bytes.Repeat([]byte{1}, 33),
		"Map/MainField/A-1/A-1.00_Clustering.sblwp": {},
		"EventFlow/Demo.bfevfl":                     []byte("flow"),
	}

	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		s := buildArchive(t, order, files)
		assert.Equal(t, order, s.Endian())
		assert.Equal(t, len(files), s.Len())

		var prev uint32
		for i, f := range s.Files() {
			want, ok := files[f.Name]
			require.True(t, ok, f.Name)
			assert.Equal(t, want, append([]byte{}, f.Data...))
			h := NameHash(f.Name, HashMultiplier)
			if i > 0 {
				assert.Greater(t, h, prev, "nodes sorted by hash")
			}
			prev = h
		}

		data, ok := s.GetFile("EventFlow/Demo.bfevfl")
		require.True(t, ok)
		assert.Equal(t, "flow", string(data))

		_, ok = s.GetFile("missing")
		assert.False(t, ok)
	}
}

func TestNestedArchiveAlignment(t *testing.T) {
	inner := NewWriter(binary.BigEndian)
	inner.Files["a.txt"] = []byte("a")
	nested := inner.Bytes()

	s := buildArchive(t, binary.BigEndian, map[string][]byte{
		"Pack/inner.sarc": nested,
		"b.txt":           []byte("b"),
	})

	assert.Zero(t, s.dataOffset%0x2000)
	data, ok := s.GetFile("Pack/inner.sarc")
	require.True(t, ok)
	assert.True(t, IsArchive(data))
	assert.True(t, IsSarc(data))
}

func TestGuessMinAlignment(t *testing.T) {
	w := NewWriter(binary.LittleEndian)
	w.SetMinAlignment(0x80)
	w.Files["x"] = []byte("xxx")
	w.Files["y"] = []byte("yyyy")

	s, err := Parse(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 0x80, s.GuessMinAlignment())

	copied := NewWriterFrom(s)
	assert.Equal(t, 0x80, copied.minAlignment)
	assert.Equal(t, binary.LittleEndian, copied.Endian())
	assert.Len(t, copied.Files, 2)

	w.SetMinAlignment(3)
	assert.Equal(t, 0x80, w.minAlignment)
}

func TestGuessMinAlignmentIgnoresAlignedContent(t *testing.T) {
	inner := NewWriter(binary.BigEndian)
	inner.Files["a.txt"] = []byte("a")
	nested := inner.Bytes()

	// nested archives sit on 0x2000 boundaries whatever the archive minimum is
	s := buildArchive(t, binary.BigEndian, map[string][]byte{
		"Pack/A.sarc": nested,
		"Pack/B.sarc": nested,
	})
	assert.Equal(t, minAlignment, s.GuessMinAlignment())

	s = buildArchive(t, binary.BigEndian, map[string][]byte{
		"Pack/A.sarc": nested,
		"b.txt":       []byte("b"),
	})
	assert.Equal(t, minAlignment, s.GuessMinAlignment())

	repacked, err := Parse(NewWriterFrom(s).Bytes())
	require.NoError(t, err)
	assert.Equal(t, s.dataOffset, repacked.dataOffset)
}

func TestUnnamedEntriesKeepTheirHash(t *testing.T) {
	w := NewWriter(binary.LittleEndian)
	w.Files["named.txt"] = []byte("named")
	w.Files["hidden.txt"] = []byte("hidden")
	data := w.Bytes()

	s, err := Parse(data)
	require.NoError(t, err)
	for i, f := range s.Files() {
		if f.Name == "hidden.txt" {
			// drop the name reference of the node
			binary.LittleEndian.PutUint32(data[headerSize+sfatHeaderSize+i*sfatNodeSize+4:], 0)
		}
	}
	s, err = Parse(data)
	require.NoError(t, err)

	hash := NameHash("hidden.txt", HashMultiplier)
	listed := fmt.Sprintf("%08x.bin", hash)
	got, ok := s.GetFile(listed)
	require.True(t, ok)
	assert.Equal(t, "hidden", string(got))

	copied := NewWriterFrom(s)
	copied.Files["named.txt"] = []byte("edited")
	repacked, err := Parse(copied.Bytes())
	require.NoError(t, err)
	assert.Equal(t, map[string]uint32{listed: hash}, repacked.unnamed)
	got, ok = repacked.GetFile(listed)
	require.True(t, ok)
	assert.Equal(t, "hidden", string(got))
	got, ok = repacked.GetFile("named.txt")
	require.True(t, ok)
	assert.Equal(t, "edited", string(got))
}

func TestIsArchive(t *testing.T) {
	yaz := make([]byte, 0x20)
	copy(yaz, "Yaz0")
	copy(yaz[0x11:], "SARC")
	assert.True(t, IsArchive(yaz))
	assert.False(t, IsArchive([]byte("Yaz0")))
	assert.False(t, IsArchive([]byte("BY\x00\x02")))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("nope"))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	data := NewWriter(binary.BigEndian).Bytes()
	data[6], data[7] = 0, 0
	_, err = Parse(data)
	assert.ErrorIs(t, err, ErrInvalidHeader)

	w := NewWriter(binary.BigEndian)
	w.Files["file"] = []byte("content")
	data = w.Bytes()
	binary.BigEndian.PutUint32(data[headerSize+sfatHeaderSize+12:], 0xFFFF)
	_, err = Parse(data)
	assert.ErrorIs(t, err, ErrCorrupt)
}
