package process

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildbits/wildbits/botw"
	"github.com/wildbits/wildbits/db"
	"github.com/wildbits/wildbits/rstb"
	"github.com/wildbits/wildbits/yaz0"
)

func stockTable(t *testing.T, order binary.ByteOrder) []byte {
	t.Helper()
	table := rstb.New()
	table.CRC[rstb.Hash("EventFlow/PictureMemory.bfevfl")] = 0x1000
	table.CRC[0xDEADBEEF] = 64
	table.Names["Collision/Name.bphysics"] = 512
	return table.Bytes(order)
}

func TestParseRstbDetectsByteOrder(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		doc, err := ParseRstb(stockTable(t, order))
		require.NoError(t, err)
		assert.Equal(t, order, doc.Order)
		assert.Equal(t, order == binary.BigEndian, doc.BigEndian())
	}
}

func TestParseRstbRejectsRandomData(t *testing.T) {
	data := make([]byte, 64)
	rand.New(rand.NewSource(1)).Read(data)
	_, err := ParseRstb(data)
	assert.ErrorIs(t, err, ErrInvalidRstb)
}

func TestRstbViewAndEdits(t *testing.T) {
	doc, err := ParseRstb(stockTable(t, binary.BigEndian))
	require.NoError(t, err)
	names := db.NewNameTable(botw.StockNames(), "")

	view := doc.View(names)
	assert.Equal(t, uint32(0x1000), view["EventFlow/PictureMemory.bfevfl"])
	assert.Equal(t, uint32(64), view[strconv.FormatUint(0xDEADBEEF, 10)])
	assert.Equal(t, uint32(512), view["Collision/Name.bphysics"])

	doc.SetSize(names, "My/New/Thing.bfres", 1024)
	view = doc.View(names)
	assert.Equal(t, uint32(1024), view["My/New/Thing.bfres"])
	name, ok := names.Lookup(db.Hash("My/New/Thing.bfres"))
	require.True(t, ok)
	assert.Equal(t, "My/New/Thing.bfres", name)

	doc.DeleteEntry("My/New/Thing.bfres")
	doc.DeleteEntry("Collision/Name.bphysics")
	view = doc.View(names)
	assert.NotContains(t, view, "My/New/Thing.bfres")
	assert.NotContains(t, view, "Collision/Name.bphysics")
}

func TestRstbSaveExportAndCalc(t *testing.T) {
	doc, err := ParseRstb(stockTable(t, binary.BigEndian))
	require.NoError(t, err)
	dir := t.TempDir()

	compressed := filepath.Join(dir, "ResourceSizeTable.product.srsizetable")
	require.NoError(t, doc.Save(compressed))
	data, err := os.ReadFile(compressed)
	require.NoError(t, err)
	assert.True(t, yaz0.IsCompressed(data))
	reopened, err := OpenRstb(compressed)
	require.NoError(t, err)
	assert.Equal(t, doc.Table, reopened.Table)
	assert.Equal(t, binary.BigEndian, reopened.Order)

	plain := filepath.Join(dir, "ResourceSizeTable.product.rsizetable")
	require.NoError(t, doc.Save(plain))
	data, err = os.ReadFile(plain)
	require.NoError(t, err)
	assert.Equal(t, "RSTB", string(data[:4]))

	text := filepath.Join(dir, "rstb.txt")
	require.NoError(t, doc.Export(text))
	data, err = os.ReadFile(text)
	require.NoError(t, err)
	assert.Contains(t, string(data), "0xDEADBEEF")

	pack := filepath.Join(dir, "Thing.sbactorpack")
	require.NoError(t, os.WriteFile(pack, bytes.Repeat([]byte{1}, 100), 0644))
	size, err := doc.CalcSize(pack)
	require.NoError(t, err)
	assert.Equal(t, uint32(128+0xe4+0x68), size)

	unknown := filepath.Join(dir, "notes.xyz")
	require.NoError(t, os.WriteFile(unknown, []byte("x"), 0644))
	size, err = doc.CalcSize(unknown)
	require.NoError(t, err)
	assert.Zero(t, size)

	_, err = doc.CalcSize(filepath.Join(dir, "missing.bfres"))
	assert.ErrorIs(t, err, ErrRead)
}
