package rstb

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildbits/wildbits/yaz0"
)

func sampleTable() *Table {
	t := New()
	t.CRC[Hash("Actor/Pack/Enemy_Lizalfos.bactorpack")] = 0x1234
	t.CRC[Hash("EventFlow/PictureMemory.bfevfl")] = 0x800
	t.Names["Map/MainField/A-1/A-1.00_Clustering.blwp"] = 0x4242
	return t
}

func TestLookupOrder(t *testing.T) {
	table := sampleTable()

	size, ok := table.GetSize("Actor/Pack/Enemy_Lizalfos.bactorpack")
	require.True(t, ok)
	assert.Equal(t, uint32(0x1234), size)

	// name entries shadow CRC entries
	table.CRC[Hash("Map/MainField/A-1/A-1.00_Clustering.blwp")] = 1
	size, ok = table.GetSize("Map/MainField/A-1/A-1.00_Clustering.blwp")
	require.True(t, ok)
	assert.Equal(t, uint32(0x4242), size)

	assert.False(t, table.IsInTable("Nope/Nope.bxml"))
}

func TestSetAndDelete(t *testing.T) {
	table := sampleTable()

	table.SetSize("Map/MainField/A-1/A-1.00_Clustering.blwp", 10)
	assert.Equal(t, uint32(10), table.Names["Map/MainField/A-1/A-1.00_Clustering.blwp"])

	table.SetSize("Actor/New.bxml", 77)
	assert.Equal(t, uint32(77), table.CRC[Hash("Actor/New.bxml")])
	size, ok := table.GetSize("Actor/New.bxml")
	require.True(t, ok)
	assert.Equal(t, uint32(77), size)

	table.Delete("Map/MainField/A-1/A-1.00_Clustering.blwp")
	assert.NotContains(t, table.Names, "Map/MainField/A-1/A-1.00_Clustering.blwp")

	table.Delete("Actor/New.bxml")
	assert.False(t, table.IsInTable("Actor/New.bxml"))
}

func TestBinaryRoundTrip(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		want := sampleTable()
		data := want.Bytes(order)
		assert.Equal(t, Magic, string(data[:4]))

		got, err := Parse(data, order)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		got, err = Parse(yaz0.Compress(data, yaz0.DefaultLevel), order)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseCRCOnly(t *testing.T) {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:], 1)
	binary.LittleEndian.PutUint32(data[4:], 100)
	binary.LittleEndian.PutUint32(data[8:], 2)
	binary.LittleEndian.PutUint32(data[12:], 200)

	table, err := Parse(data, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, map[uint32]uint32{1: 100, 2: 200}, table.CRC)
	assert.Empty(t, table.Names)

	_, err = Parse(data[:10], binary.LittleEndian)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestParseTruncated(t *testing.T) {
	data := sampleTable().Bytes(binary.BigEndian)
	_, err := Parse(data[:len(data)-4], binary.BigEndian)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestTextRoundTrip(t *testing.T) {
	want := sampleTable()
	text, err := want.ToText()
	require.NoError(t, err)
	assert.Contains(t, text, "0x")

	got, err := FromText(text)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = FromText("Actor/Bad.bxml = lots")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestCalculateSize(t *testing.T) {
	data := make([]byte, 100)

	size, ok := CalculateSize("Actor/Pack/Enemy_Lizalfos.sbactorpack", data, binary.BigEndian, false)
	require.True(t, ok)
	assert.Equal(t, uint32(128+0xe4+0x68), size)

	size, ok = CalculateSize("Actor/Pack/Enemy_Lizalfos.sbactorpack", data, binary.LittleEndian, false)
	require.True(t, ok)
	assert.Equal(t, uint32(128+0x168+0x68), size)

	_, ok = CalculateSize("Unknown/file.xyz", data, binary.BigEndian, true)
	assert.False(t, ok)

	_, ok = CalculateSize("Model/Link.sbfres", data, binary.BigEndian, false)
	assert.False(t, ok)
}

func TestEstimates(t *testing.T) {
	size, ok := CalculateSize("Model/Link.sbfres", make([]byte, 1000), binary.BigEndian, true)
	require.True(t, ok)
	assert.Equal(t, uint32(3000), size)

	size, ok = CalculateSize("Model/Link.Tex1.sbfres", make([]byte, 1000), binary.BigEndian, true)
	require.True(t, ok)
	assert.Equal(t, uint32(7000), size)

	size, ok = CalculateSize("Actor/DropTable/Enemy.bdrop", make([]byte, 100), binary.LittleEndian, true)
	require.True(t, ok)
	assert.Equal(t, uint32(850), size)

	assert.Equal(t, uint32(3000), guessAampSize(1000, "bxml"))
	assert.Zero(t, guessAampSize(1000, "bphysics"))
}
