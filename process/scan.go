package process

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/wildbits/wildbits/botw"
	"github.com/wildbits/wildbits/db"
	"github.com/wildbits/wildbits/fileio"
	"github.com/wildbits/wildbits/sarc"
	"github.com/wildbits/wildbits/yaz0"
)

type ScanOptions struct {
	Exclude  *Excluder
	Cache    *db.ScanCache
	Workers  int
	Progress db.ProgressUpdater
}

// ScanMod discovers the resource names used by the files below root and
// hands them to record, which may be called from several goroutines at once.
// Files that cannot be read are logged and skipped.
func ScanMod(root string, opts ScanOptions, record func(names []string)) error {
	var files []string
	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			zap.S().Warnf("skipping %v - %v", p, err)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return err
		}
		if opts.Exclude.Skip(rel, entry.IsDir()) {
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
		return err
	}
	zap.S().Infof("scanning %v files in %v", len(files), root)

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	var progressMu sync.Mutex
	done := 0
	p := pool.New().WithMaxGoroutines(workers)
	for _, file := range files {
		p.Go(func() {
			if names := scanFile(file, opts.Cache); len(names) > 0 {
				record(names)
			}
			if opts.Progress != nil {
				progressMu.Lock()
				done++
				opts.Progress.UpdateProgress(done, len(files), file)
				progressMu.Unlock()
			}
		})
	}
	p.Wait()
	return nil
}

func scanFile(file string, cache *db.ScanCache) []string {
	var names []string
	// recorded under crc32(canon), the key the game looks the resource up by
	if canon, ok := botw.CanonName(file); ok {
		names = append(names, canon)
	}
	if !botw.IsSarcExt(botw.Ext(file)) {
		return names
	}

	info, err := os.Stat(file)
	if err != nil {
		zap.S().Warnf("skipping %v - %v", file, err)
		return names
	}
	if cached, ok := cache.Get(file, info); ok {
		return append(names, cached...)
	}

	data, err := fileio.ReadFile(file)
	if err == nil {
		data, err = unwrap(data)
	}
	var s *sarc.Sarc
	if err == nil {
		s, err = sarc.Parse(data)
	}
	if err != nil {
		zap.S().Warnf("skipping %v - %v", file, err)
		return names
	}

	nested := nestedNames(s)
	if err := cache.Put(file, info, nested); err != nil {
		zap.S().Warnf("failed to cache names of %v - %v", file, err)
	}
	return append(names, nested...)
}

// unwrap decompresses Yaz0 data without going through the shared memo, scans
// touch every archive once.
func unwrap(data []byte) ([]byte, error) {
	if yaz0.IsCompressed(data) {
		return fileio.Decompress(data)
	}
	return data, nil
}

// nestedNames lists the resource names of the entries of s, descending into
// nested archives other than *sarc, *farc and *larc.
func nestedNames(s *sarc.Sarc) []string {
	var names []string
	for _, f := range s.Files() {
		names = append(names, botw.CanonNameWithoutRoot(f.Name))
		if len(f.Data) <= 0x40 || !sarc.IsArchive(f.Data) ||
			strings.HasSuffix(f.Name, "sarc") || strings.HasSuffix(f.Name, "farc") || strings.HasSuffix(f.Name, "larc") {
			continue
		}
		data, err := unwrap(f.Data)
		if err != nil {
			continue
		}
		if nested, err := sarc.Parse(data); err == nil {
			names = append(names, nestedNames(nested)...)
		}
	}
	return names
}
