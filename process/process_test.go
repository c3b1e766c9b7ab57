package process

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildbits/wildbits/fileio"
	"github.com/wildbits/wildbits/sarc"
)

func packArchive(t *testing.T, order binary.ByteOrder, files map[string][]byte) []byte {
	t.Helper()
	w := sarc.NewWriter(order)
	for name, data := range files {
		w.Files[name] = data
	}
	return w.Bytes()
}

var linkData = bytes.Repeat([]byte("link"), 40)

// nestedArchive is a root archive holding outer.pack, which holds the Yaz0
// compressed inner.sbactorpack.
func nestedArchive(t *testing.T) *SarcDocument {
	t.Helper()
	inner := packArchive(t, binary.LittleEndian, map[string][]byte{
		"Actor/Link.bactor":  linkData,
		"Actor/Other.bactor": []byte("other"),
		"Actor/Link.bxml":    []byte("AAMP"),
	})
	compressed, err := fileio.Compress(inner)
	require.NoError(t, err)

	outer := packArchive(t, binary.LittleEndian, map[string][]byte{
		"inner.sbactorpack": compressed,
		"Model/Link.bfres":  []byte("FRES"),
	})
	root := packArchive(t, binary.LittleEndian, map[string][]byte{
		"outer.pack":      outer,
		"Pack/Readme.txt": []byte("hello"),
	})

	doc, err := ParseSarc(root)
	require.NoError(t, err)
	return doc
}
