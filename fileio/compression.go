package fileio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/wildbits/wildbits/yaz0"
)

var ErrCompression = errors.New("compression failed")

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil)
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// memoKey identifies a source buffer by its first byte and length.
type memoKey struct {
	first *byte
	n     int
}

var memo = struct {
	sync.Mutex
	m map[memoKey][]byte
}{m: map[memoKey][]byte{}}

// IsZstd reports whether data is a zstd frame.
func IsZstd(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == string(zstdMagic)
}

// Compress wraps data in Yaz0.
func Compress(data []byte) ([]byte, error) {
	return yaz0.Compress(data, yaz0.DefaultLevel), nil
}

// Decompress unwraps a Yaz0 stream.
func Decompress(data []byte) ([]byte, error) {
	out, err := yaz0.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompression, err)
	}
	return out, nil
}

// DecompressIf unwraps Yaz0 or zstd data and returns anything else unchanged.
// Decompressed copies are remembered per source buffer until ClearMemo; the
// returned slice must not be modified.
func DecompressIf(data []byte) ([]byte, error) {
	compressed := yaz0.IsCompressed(data)
	if !compressed && !IsZstd(data) {
		return data, nil
	}

	key := memoKey{first: &data[0], n: len(data)}
	memo.Lock()
	out, ok := memo.m[key]
	memo.Unlock()
	if ok {
		return out, nil
	}

	var err error
	if compressed {
		out, err = Decompress(data)
	} else {
		out, err = decompressZstd(data)
	}
	if err != nil {
		return nil, err
	}

	memo.Lock()
	memo.m[key] = out
	memo.Unlock()
	return out, nil
}

// ClearMemo drops every remembered decompressed buffer.
func ClearMemo() {
	memo.Lock()
	clear(memo.m)
	memo.Unlock()
}

func decompressZstd(data []byte) ([]byte, error) {
	_, dec, err := zstdCodec()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompression, err)
	}
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompression, err)
	}
	return out, nil
}

func compressZstd(data []byte) ([]byte, error) {
	enc, _, err := zstdCodec()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompression, err)
	}
	return enc.EncodeAll(data, nil), nil
}

// ShouldCompress reports whether files at path are stored Yaz0 compressed:
// the extension starts with "s" and is not "sarc".
func ShouldCompress(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return strings.HasPrefix(ext, "s") && ext != "sarc"
}

// CompressForPath applies the compression that the name of path implies.
func CompressForPath(path string, data []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(path, ".zs"):
		return compressZstd(data)
	case ShouldCompress(path):
		return Compress(data)
	}
	return data, nil
}
