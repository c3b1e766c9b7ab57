package process

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/wildbits/wildbits/botw"
	"github.com/wildbits/wildbits/db"
	"github.com/wildbits/wildbits/fileio"
	"github.com/wildbits/wildbits/rstb"
	"github.com/wildbits/wildbits/sarc"
)

const nestSeparator = "//"

var invalidNameChars = regexp.MustCompile(`[:*?"'<>|]`)

var stockHashes = struct {
	sync.Mutex
	tables map[botw.Platform]*botw.StockHashTable
}{tables: map[botw.Platform]*botw.StockHashTable{}}

// stockHashTable loads the table of the platform that uses order once.
func stockHashTable(order binary.ByteOrder) (*botw.StockHashTable, error) {
	platform := botw.PlatformFor(order)
	stockHashes.Lock()
	defer stockHashes.Unlock()
	if t, ok := stockHashes.tables[platform]; ok {
		return t, nil
	}
	t, err := botw.NewStockHashTable(platform)
	if err != nil {
		return nil, err
	}
	stockHashes.tables[platform] = t
	return t, nil
}

// SarcDocument is an open archive. It is never modified; edits return a new
// document.
type SarcDocument struct {
	Sarc   *sarc.Sarc
	hashes *botw.StockHashTable
	// minimum alignment of the root archive, kept across edits
	alignment int
}

type FileMeta struct {
	File     string `json:"file"`
	Rstb     uint32 `json:"rstb"`
	Modified bool   `json:"modified"`
	Size     int    `json:"size"`
	IsYaml   bool   `json:"is_yaml"`
}

// CleanLocation strips the "SARC:" prefix and a trailing slash.
func CleanLocation(location string) string {
	return strings.TrimSuffix(strings.TrimPrefix(location, "SARC:"), "/")
}

func OpenSarc(path string) (*SarcDocument, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSarc(data)
}

// ParseSarc reads an archive, decompressing it first when needed.
func ParseSarc(data []byte) (*SarcDocument, error) {
	data, err := fileio.DecompressIf(data)
	if err != nil {
		return nil, err
	}
	s, err := sarc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read SARC: %w", ErrParse, err)
	}
	hashes, err := stockHashTable(s.Endian())
	if err != nil {
		return nil, err
	}
	return &SarcDocument{Sarc: s, hashes: hashes, alignment: s.GuessMinAlignment()}, nil
}

// CreateSarc builds an empty archive.
func CreateSarc(bigEndian bool, alignment int) (*SarcDocument, error) {
	var order binary.ByteOrder = binary.LittleEndian
	if bigEndian {
		order = binary.BigEndian
	}
	w := sarc.NewWriter(order)
	w.SetMinAlignment(alignment)
	doc, err := ParseSarc(w.Bytes())
	if err != nil {
		return nil, err
	}
	doc.setAlignment(alignment)
	return doc, nil
}

func (d *SarcDocument) setAlignment(alignment int) {
	if alignment > 0 && alignment&(alignment-1) == 0 {
		d.alignment = alignment
	}
}

// rootWriter copies the root archive, keeping its alignment.
func (d *SarcDocument) rootWriter() *sarc.Writer {
	w := sarc.NewWriterFrom(d.Sarc)
	w.SetMinAlignment(d.alignment)
	return w
}

func (d *SarcDocument) BigEndian() bool {
	return d.Sarc.Endian() == binary.BigEndian
}

// Tree returns the entries as nested folders, nested archives expanded, and
// the sorted names of the entries that differ from the stock game.
func (d *SarcDocument) Tree() (map[string]any, []string, error) {
	modified := map[string]bool{}
	tree, err := d.tree(d.Sarc, modified)
	if err != nil {
		return nil, nil, err
	}
	names := lo.Keys(modified)
	sort.Strings(names)
	return tree, names, nil
}

func (d *SarcDocument) tree(s *sarc.Sarc, modified map[string]bool) (map[string]any, error) {
	files := s.Files()
	startSlash := lo.SomeBy(files, func(f sarc.File) bool { return strings.HasPrefix(f.Name, "/") })

	tree := map[string]any{}
	for _, f := range files {
		name := strings.TrimPrefix(f.Name, "/")
		if d.hashes.IsFileModded(botw.CanonNameWithoutRoot(name), f.Data, true) {
			modified[name] = true
		}

		node := map[string]any{}
		if sarc.IsArchive(f.Data) {
			data, err := fileio.DecompressIf(f.Data)
			if err != nil {
				return nil, err
			}
			nested, err := sarc.Parse(data)
			if err != nil {
				return nil, fmt.Errorf("%w: could not read nested SARC %s: %w", ErrParse, name, err)
			}
			if node, err = d.tree(nested, modified); err != nil {
				return nil, err
			}
		}

		parts := strings.Split(name, "/")
		if startSlash {
			parts[0] = "/" + parts[0]
		}
		for i := len(parts) - 1; i >= 0; i-- {
			node = map[string]any{parts[i]: node}
		}
		mergeTree(tree, node)
	}
	return tree, nil
}

// mergeTree merges src into dst: maps recursively, lists by concatenation,
// anything else replaced.
func mergeTree(dst, src map[string]any) {
	for k, v := range src {
		switch sv := v.(type) {
		case map[string]any:
			if dv, ok := dst[k].(map[string]any); ok {
				mergeTree(dv, sv)
				continue
			}
		case []any:
			if dv, ok := dst[k].([]any); ok {
				dst[k] = append(dv, sv...)
				continue
			}
		}
		dst[k] = v
	}
}

// archiveChain opens every archive on the way to the owner of the last
// segment. The root comes first.
func (d *SarcDocument) archiveChain(segments []string) ([]*sarc.Sarc, error) {
	chain := []*sarc.Sarc{d.Sarc}
	for _, segment := range segments[:len(segments)-1] {
		data, ok := chain[len(chain)-1].GetFile(segment)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, segment)
		}
		data, err := fileio.DecompressIf(data)
		if err != nil {
			return nil, err
		}
		nested, err := sarc.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse SARC %s: %w", ErrParse, segment, err)
		}
		chain = append(chain, nested)
	}
	return chain, nil
}

// OpenNested returns a copy of the raw bytes at location.
func (d *SarcDocument) OpenNested(location string) ([]byte, error) {
	segments := strings.Split(location, nestSeparator)
	chain, err := d.archiveChain(segments)
	if err != nil {
		return nil, err
	}
	leaf := strings.TrimSuffix(segments[len(segments)-1], "/")
	data, ok := chain[len(chain)-1].GetFile(leaf)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	return append([]byte(nil), data...), nil
}

// Modify applies edit to the archive that owns the last segment of location
// and repacks every archive up to the root. The receiver is left untouched.
func (d *SarcDocument) Modify(location string, edit func(w *sarc.Writer, name string) error) (*SarcDocument, error) {
	segments := strings.Split(location, nestSeparator)
	chain, err := d.archiveChain(segments)
	if err != nil {
		return nil, err
	}

	writerFor := func(i int) *sarc.Writer {
		if i == 0 {
			return d.rootWriter()
		}
		return sarc.NewWriterFrom(chain[i])
	}

	w := writerFor(len(chain) - 1)
	if err := edit(w, segments[len(segments)-1]); err != nil {
		return nil, err
	}
	child := w.Bytes()
	for i := len(chain) - 2; i >= 0; i-- {
		if fileio.ShouldCompress(segments[i]) {
			if child, err = fileio.Compress(child); err != nil {
				return nil, err
			}
		}
		parent := writerFor(i)
		parent.Files[segments[i]] = child
		child = parent.Bytes()
	}
	updated, err := ParseSarc(child)
	if err != nil {
		return nil, err
	}
	updated.alignment = d.alignment
	return updated, nil
}

// AddData stores data at location, replacing any existing entry.
func (d *SarcDocument) AddData(location string, data []byte) (*SarcDocument, error) {
	return d.Modify(location, func(w *sarc.Writer, name string) error {
		w.Files[name] = data
		return nil
	})
}

// AddFile stores the file at src at location.
func (d *SarcDocument) AddFile(src, location string) (*SarcDocument, error) {
	data, err := fileio.ReadFile(src)
	if err != nil {
		return nil, err
	}
	return d.AddData(location, data)
}

func (d *SarcDocument) DeleteFile(location string) (*SarcDocument, error) {
	return d.Modify(location, func(w *sarc.Writer, name string) error {
		if _, ok := w.Files[name]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		delete(w.Files, name)
		return nil
	})
}

// validEntryName reports whether name is a relative, slash separated path
// without empty, "." or ".." segments.
func validEntryName(name string) bool {
	if name == "" || path.IsAbs(name) || invalidNameChars.MatchString(name) {
		return false
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return true
}

// RenameFile moves the entry at location to newName, relative to the folder
// of the entry. newName may name subfolders.
func (d *SarcDocument) RenameFile(location, newName string) (*SarcDocument, error) {
	newName = strings.ReplaceAll(newName, "\\", "/")
	if !validEntryName(newName) {
		return nil, fmt.Errorf("%w: %s is not a valid file name", ErrInvalidName, newName)
	}
	return d.Modify(location, func(w *sarc.Writer, name string) error {
		data, ok := w.Files[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		delete(w.Files, name)
		w.Files[path.Join(path.Dir(name), newName)] = data
		return nil
	})
}

// UpdateFolder stores every file below root under its path relative to root.
func (d *SarcDocument) UpdateFolder(root string, exclude *Excluder, progress db.ProgressUpdater) (*SarcDocument, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return err
		}
		if exclude.Skip(rel, entry.IsDir()) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	w := sarc.NewWriterFrom(d.Sarc)
	for i, p := range files {
		if progress != nil {
			progress.UpdateProgress(i, len(files), p)
		}
		data, err := fileio.ReadFile(p)
		if err != nil {
			return nil, err
		}
		rel, _ := filepath.Rel(root, p)
		w.Files[filepath.ToSlash(rel)] = data
	}
	zap.S().Infof("updated %v files from %v", len(files), root)
	return ParseSarc(w.Bytes())
}

// ExtractAll writes every entry of the root archive below dest.
func (d *SarcDocument) ExtractAll(dest string, progress db.ProgressUpdater) error {
	files := d.Sarc.Files()
	for i, f := range files {
		if progress != nil {
			progress.UpdateProgress(i, len(files), f.Name)
		}
		rel := filepath.FromSlash(strings.TrimPrefix(f.Name, "/"))
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("%w: %s escapes the destination", ErrInvalidName, f.Name)
		}
		if err := fileio.WriteFile(filepath.Join(dest, rel), f.Data); err != nil {
			return err
		}
	}
	return nil
}

// ExtractFile writes the raw bytes at location to dest.
func (d *SarcDocument) ExtractFile(dest, location string) error {
	data, err := d.OpenNested(location)
	if err != nil {
		return err
	}
	return fileio.WriteFile(dest, data)
}

// FileMeta describes the entry at location.
func (d *SarcDocument) FileMeta(location string) (FileMeta, error) {
	data, err := d.OpenNested(location)
	if err != nil {
		return FileMeta{}, err
	}
	segments := strings.Split(location, nestSeparator)
	leaf := segments[len(segments)-1]

	decompressed, err := fileio.DecompressIf(data)
	if err != nil {
		return FileMeta{}, err
	}
	size, _ := rstb.CalculateSize(leaf, decompressed, d.Sarc.Endian(), true)

	return FileMeta{
		File: path.Base(leaf),
		Rstb: size,
		// entries of .ssarc archives are never stock files
		Modified: !strings.Contains(location, ".ssarc"+nestSeparator) &&
			d.hashes.IsFileModded(botw.CanonNameWithoutRoot(leaf), data, true),
		Size:   len(data),
		IsYaml: botw.IsYamlExt(botw.Ext(leaf)),
	}, nil
}

// Bytes repacks the archive.
func (d *SarcDocument) Bytes() []byte {
	return d.rootWriter().Bytes()
}

// Save repacks the archive and writes it, compressed as path implies.
func (d *SarcDocument) Save(path string) error {
	data, err := fileio.CompressForPath(path, d.Bytes())
	if err != nil {
		return err
	}
	return fileio.WriteFile(path, data)
}
