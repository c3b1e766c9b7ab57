package process

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildbits/wildbits/db"
	"github.com/wildbits/wildbits/fileio"
	"github.com/wildbits/wildbits/sarc"
	"github.com/wildbits/wildbits/yaz0"
)

const linkLocation = "outer.pack//inner.sbactorpack//Actor/Link.bactor"

func TestCleanLocation(t *testing.T) {
	assert.Equal(t, "a.pack//b.bxml", CleanLocation("SARC:a.pack//b.bxml/"))
	assert.Equal(t, "Actor", CleanLocation("Actor"))
}

func TestTree(t *testing.T) {
	doc := nestedArchive(t)
	tree, modified, err := doc.Tree()
	require.NoError(t, err)

	outer := tree["outer.pack"].(map[string]any)
	inner := outer["inner.sbactorpack"].(map[string]any)
	actor := inner["Actor"].(map[string]any)
	assert.Equal(t, map[string]any{}, actor["Link.bactor"])
	assert.Contains(t, actor, "Other.bactor")
	assert.Contains(t, outer["Model"], "Link.bfres")
	assert.Contains(t, tree["Pack"], "Readme.txt")

	// the bundled stock table knows none of these files
	assert.Contains(t, modified, "Actor/Link.bactor")
	assert.Contains(t, modified, "outer.pack")
}

func TestTreeKeepsLeadingSlash(t *testing.T) {
	doc, err := ParseSarc(packArchive(t, binary.BigEndian, map[string][]byte{
		"/Actor/A.bactor": []byte("a"),
		"/Actor/B.bactor": []byte("b"),
	}))
	require.NoError(t, err)
	assert.True(t, doc.BigEndian())

	tree, _, err := doc.Tree()
	require.NoError(t, err)
	require.Contains(t, tree, "/Actor")
	assert.Len(t, tree["/Actor"], 2)
}

func TestMergeTree(t *testing.T) {
	dst := map[string]any{"a": map[string]any{"x": map[string]any{}}, "l": []any{1}, "v": 1}
	mergeTree(dst, map[string]any{"a": map[string]any{"y": map[string]any{}}, "l": []any{2}, "v": 2})
	assert.Equal(t, map[string]any{
		"a": map[string]any{"x": map[string]any{}, "y": map[string]any{}},
		"l": []any{1, 2},
		"v": 2,
	}, dst)
}

func TestFileMeta(t *testing.T) {
	doc := nestedArchive(t)
	meta, err := doc.FileMeta(linkLocation)
	require.NoError(t, err)
	assert.Equal(t, "Link.bactor", meta.File)
	assert.Equal(t, len(linkData), meta.Size)
	assert.False(t, meta.IsYaml)

	meta, err = doc.FileMeta("outer.pack//inner.sbactorpack//Actor/Link.bxml")
	require.NoError(t, err)
	assert.True(t, meta.IsYaml)

	_, err = doc.FileMeta("outer.pack//missing.pack//A")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenNestedReturnsCopy(t *testing.T) {
	doc := nestedArchive(t)
	data, err := doc.OpenNested(linkLocation)
	require.NoError(t, err)
	assert.Equal(t, linkData, data)

	data[0] = 'X'
	again, err := doc.OpenNested(linkLocation)
	require.NoError(t, err)
	assert.Equal(t, linkData, again)
}

func TestDeleteNestedFile(t *testing.T) {
	doc := nestedArchive(t)
	edited, err := doc.DeleteFile(linkLocation)
	require.NoError(t, err)

	_, err = edited.OpenNested(linkLocation)
	assert.ErrorIs(t, err, ErrNotFound)
	other, err := edited.OpenNested("outer.pack//inner.sbactorpack//Actor/Other.bactor")
	require.NoError(t, err)
	assert.Equal(t, []byte("other"), other)
	_, err = edited.OpenNested("outer.pack//Model/Link.bfres")
	assert.NoError(t, err)

	// the repacked child keeps its Yaz0 wrapping
	outer, ok := edited.Sarc.GetFile("outer.pack")
	require.True(t, ok)
	outerSarc, err := sarc.Parse(outer)
	require.NoError(t, err)
	inner, ok := outerSarc.GetFile("inner.sbactorpack")
	require.True(t, ok)
	assert.True(t, yaz0.IsCompressed(inner))

	// the previous document is untouched
	_, err = doc.OpenNested(linkLocation)
	assert.NoError(t, err)

	_, err = doc.DeleteFile("outer.pack//inner.sbactorpack//Actor/Nope.bactor")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenameFile(t *testing.T) {
	doc := nestedArchive(t)
	edited, err := doc.RenameFile(linkLocation, "Zelda.bactor")
	require.NoError(t, err)

	_, err = edited.OpenNested(linkLocation)
	assert.ErrorIs(t, err, ErrNotFound)
	data, err := edited.OpenNested("outer.pack//inner.sbactorpack//Actor/Zelda.bactor")
	require.NoError(t, err)
	assert.Equal(t, linkData, data)

	for _, name := range []string{"Sub/Zelda.bactor", `Sub\Zelda.bactor`} {
		moved, err := doc.RenameFile(linkLocation, name)
		require.NoError(t, err, name)
		data, err = moved.OpenNested("outer.pack//inner.sbactorpack//Actor/Sub/Zelda.bactor")
		require.NoError(t, err, name)
		assert.Equal(t, linkData, data)
	}

	for _, name := range []string{"what?", `q"uote`, "", "/abs.bactor", "../up.bactor", "a//b", "./x"} {
		_, err = doc.RenameFile(linkLocation, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestAddFile(t *testing.T) {
	doc := nestedArchive(t)
	src := filepath.Join(t.TempDir(), "New.bactor")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0644))

	edited, err := doc.AddFile(src, "outer.pack//Actor/New.bactor")
	require.NoError(t, err)
	data, err := edited.OpenNested("outer.pack//Actor/New.bactor")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)

	edited, err = edited.AddData("Pack/Readme.txt", []byte("replaced"))
	require.NoError(t, err)
	data, err = edited.OpenNested("Pack/Readme.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), data)
}

func TestUpdateFolder(t *testing.T) {
	doc := nestedArchive(t)
	root := t.TempDir()
	require.NoError(t, fileio.WriteFile(filepath.Join(root, "Actor", "New.bactor"), []byte("new")))
	require.NoError(t, fileio.WriteFile(filepath.Join(root, "Pack", "Readme.txt"), []byte("updated")))
	require.NoError(t, fileio.WriteFile(filepath.Join(root, "notes.bak"), []byte("skip")))
	require.NoError(t, fileio.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("skip")))

	exclude, err := NewExcluder([]string{"*.bak", ".git/"})
	require.NoError(t, err)
	var calls int
	edited, err := doc.UpdateFolder(root, exclude, db.ProgressFunc(func(int, int, string) { calls++ }))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	data, err := edited.OpenNested("Actor/New.bactor")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
	data, err = edited.OpenNested("Pack/Readme.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("updated"), data)
	_, err = edited.OpenNested("notes.bak")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = edited.OpenNested(".git/HEAD")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = edited.OpenNested("outer.pack//Model/Link.bfres")
	assert.NoError(t, err)
}

func TestExtract(t *testing.T) {
	doc := nestedArchive(t)
	dest := t.TempDir()
	require.NoError(t, doc.ExtractAll(dest, nil))
	data, err := os.ReadFile(filepath.Join(dest, "Pack", "Readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
	assert.FileExists(t, filepath.Join(dest, "outer.pack"))

	file := filepath.Join(dest, "single", "Link.bactor")
	require.NoError(t, doc.ExtractFile(file, linkLocation))
	data, err = os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, linkData, data)
}

func TestExtractRejectsEscapingNames(t *testing.T) {
	doc, err := ParseSarc(packArchive(t, binary.LittleEndian, map[string][]byte{"../evil.txt": []byte("x")}))
	require.NoError(t, err)
	assert.ErrorIs(t, doc.ExtractAll(t.TempDir(), nil), ErrInvalidName)
}

func TestSaveAndReopen(t *testing.T) {
	doc := nestedArchive(t)
	dir := t.TempDir()

	plain := filepath.Join(dir, "Root.pack")
	require.NoError(t, doc.Save(plain))
	data, err := os.ReadFile(plain)
	require.NoError(t, err)
	assert.True(t, sarc.IsSarc(data))

	compressed := filepath.Join(dir, "Root.sbactorpack")
	require.NoError(t, doc.Save(compressed))
	data, err = os.ReadFile(compressed)
	require.NoError(t, err)
	assert.True(t, yaz0.IsCompressed(data))

	reopened, err := OpenSarc(compressed)
	require.NoError(t, err)
	want, _, err := doc.Tree()
	require.NoError(t, err)
	got, _, err := reopened.Tree()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCreateSarc(t *testing.T) {
	doc, err := CreateSarc(true, 8)
	require.NoError(t, err)
	assert.True(t, doc.BigEndian())
	assert.Zero(t, doc.Sarc.Len())

	tree, modified, err := doc.Tree()
	require.NoError(t, err)
	assert.Empty(t, tree)
	assert.Empty(t, modified)

	// the alignment survives edits that leave no evidence of it in the layout
	edited, err := doc.AddData("Pack/Inner.sarc", packArchive(t, binary.BigEndian, map[string][]byte{"a": []byte("a")}))
	require.NoError(t, err)
	edited, err = edited.AddData("b.txt", []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, 8, edited.alignment)

	edited, err = edited.AddData("c.txt", []byte("c"))
	require.NoError(t, err)
	reopened, err := ParseSarc(edited.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 8, reopened.Sarc.GuessMinAlignment())
}

func TestParseSarcRejectsGarbage(t *testing.T) {
	_, err := ParseSarc([]byte("definitely not an archive"))
	assert.ErrorIs(t, err, ErrParse)
}
