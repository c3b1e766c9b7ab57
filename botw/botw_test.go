package botw

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensions(t *testing.T) {
	assert.Equal(t, "sbactorpack", Ext("Actor/Pack/Link.sbactorpack"))
	assert.Equal(t, "", Ext("README"))

	assert.True(t, IsSarcExt("pack"))
	assert.True(t, IsSarcExt("sbactorpack"))
	assert.True(t, IsAampExt("sbdrop"))
	assert.True(t, IsBymlExt("smubin"))
	assert.True(t, IsYamlExt("msbt"))
	assert.True(t, IsYamlExt("bxml"))
	assert.False(t, IsYamlExt("bfres"))
	assert.False(t, IsSarcExt("bfres"))
}

func TestCanonName(t *testing.T) {
	for in, want := range map[string]string{
		"mod/content/Actor/Pack/Link.sbactorpack":           "Actor/Pack/Link.bactorpack",
		"mod\\content\\Pack\\TitleBG.pack":                  "Pack/TitleBG.pack",
		"mod/aoc/0010/Map/CDungeon/Dungeon000.smubin":       "Aoc/0010/Map/CDungeon/Dungeon000.mubin",
		"mod/01007EF00011E000/romfs/Model/Link.sbfres":      "Model/Link.bfres",
		"mod/01007EF00011F001/romfs/Pack/AocMainField.pack": "Aoc/0010/Pack/AocMainField.pack",
		"mod/content/GameData/gamedata.ssarc":               "GameData/gamedata.sarc",
		"/abs/mod/content/Layout/Common.sarc":               "Layout/Common.sarc",
	} {
		got, ok := CanonName(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := CanonName("somewhere/else/file.txt")
	assert.False(t, ok)
	_, ok = CanonName("mod/mycontent/file.txt")
	assert.False(t, ok)
}

func TestCanonNameWithoutRoot(t *testing.T) {
	assert.Equal(t, "Actor/Pack/Link.bactorpack", CanonNameWithoutRoot("/Actor/Pack/Link.sbactorpack"))
	assert.Equal(t, "Aoc/0010/Map/A.mubin", CanonNameWithoutRoot("aoc/0010/Map/A.smubin"))
	assert.Equal(t, "Layout/Common.sarc", CanonNameWithoutRoot("Layout/Common.sarc"))
}

func TestStockNames(t *testing.T) {
	names := StockNames()
	for _, probe := range []string{
		"EventFlow/PictureMemory.bfevfl",
		"Camera/Demo648_0/C04-0.bcamanim",
		"Effect/FldObj_ScaffoldIronParts_A_01.esetlist",
		"Physics/TeraMeshRigidBody/MainField/9-8.hktmrb",
	} {
		assert.Equal(t, probe, names[crc32.ChecksumIEEE([]byte(probe))])
	}
}

func TestStockHashTable(t *testing.T) {
	assert.Equal(t, WiiU, PlatformFor(binary.BigEndian))
	assert.Equal(t, Switch, PlatformFor(binary.LittleEndian))

	table, err := NewStockHashTable(Switch)
	require.NoError(t, err)

	table.AddData("Actor/Pack/Link.bactorpack", []byte("stock"))
	assert.Equal(t, 1, table.Len())
	assert.False(t, table.IsFileModded("Actor/Pack/Link.bactorpack", []byte("stock"), true))
	assert.True(t, table.IsFileModded("Actor/Pack/Link.bactorpack", []byte("edited"), true))
	assert.True(t, table.IsFileModded("Actor/Pack/New.bactorpack", nil, true))
	assert.False(t, table.IsFileModded("Actor/Pack/New.bactorpack", nil, false))
}

func TestGeneratedStockHashTable(t *testing.T) {
	table := NewEmptyStockHashTable()
	table.AddData("Actor/Pack/Link.bactorpack", []byte("v1.0"))
	table.AddData("Actor/Pack/Link.bactorpack", []byte("v1.5"))
	table.Add("Pack/Bootup.pack", 0xff)
	raw, err := json.Marshal(table)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Pack/Bootup.pack":["00000000000000ff"]`)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, WiiU.HashesFile()), raw, 0644))
	UseDataDir(dir)
	t.Cleanup(func() { UseDataDir("") })

	loaded, err := NewStockHashTable(WiiU)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.False(t, loaded.IsFileModded("Actor/Pack/Link.bactorpack", []byte("v1.0"), true))
	assert.False(t, loaded.IsFileModded("Actor/Pack/Link.bactorpack", []byte("v1.5"), true))
	assert.True(t, loaded.IsFileModded("Actor/Pack/Link.bactorpack", []byte("v1.6"), true))

	// no generated table for the other platform, the bundled one is used
	bundled, err := NewStockHashTable(Switch)
	require.NoError(t, err)
	assert.Zero(t, bundled.Len())

	require.NoError(t, os.WriteFile(filepath.Join(dir, WiiU.HashesFile()), []byte(`{"a":["zz"]}`), 0644))
	_, err = NewStockHashTable(WiiU)
	assert.Error(t, err)
}

func TestStockNamesText(t *testing.T) {
	text := FormatStockNames([]string{"Pack/Bootup.pack", "Actor/Pack/Link.bactorpack"})
	assert.Equal(t, "Actor/Pack/Link.bactorpack\nPack/Bootup.pack\n", text)

	names := map[uint32]string{}
	addStockNames(names, text+"\n  \n")
	assert.Len(t, names, 2)
	assert.Equal(t, "Pack/Bootup.pack", names[crc32.ChecksumIEEE([]byte("Pack/Bootup.pack"))])
}
