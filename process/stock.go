package process

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/wildbits/wildbits/botw"
	"github.com/wildbits/wildbits/db"
	"github.com/wildbits/wildbits/fileio"
	"github.com/wildbits/wildbits/sarc"
)

// StockDump holds the stock tables learned from an unmodified game dump.
type StockDump struct {
	Platform botw.Platform
	Hashes   *botw.StockHashTable
	Names    []string

	mu    sync.Mutex
	names map[string]bool
}

func (d *StockDump) add(name string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Hashes.AddData(name, data)
	d.names[name] = true
}

// DumpStock hashes every file below root, the content and aoc folders of an
// unmodified game, and every entry of the archives among them. Files that
// cannot be read are logged and skipped.
func DumpStock(root string, platform botw.Platform, workers int, progress db.ProgressUpdater) (*StockDump, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	dump := &StockDump{
		Platform: platform,
		Hashes:   botw.NewEmptyStockHashTable(),
		names:    map[string]bool{},
	}
	var progressMu sync.Mutex
	done := 0
	p := pool.New().WithMaxGoroutines(max(workers, 1))
	for _, file := range files {
		p.Go(func() {
			dump.addFile(file)
			if progress != nil {
				progressMu.Lock()
				done++
				progress.UpdateProgress(done, len(files), file)
				progressMu.Unlock()
			}
		})
	}
	p.Wait()

	for name := range dump.names {
		dump.Names = append(dump.Names, name)
	}
	sort.Strings(dump.Names)
	return dump, nil
}

func (d *StockDump) addFile(file string) {
	canon, ok := botw.CanonName(file)
	if !ok {
		return
	}
	data, err := fileio.ReadFile(file)
	if err != nil {
		zap.S().Warnf("skipping %v - %v", file, err)
		return
	}
	d.add(canon, data)
	if sarc.IsArchive(data) {
		d.addEntries(file, data)
	}
}

// addEntries records the entries of the archive data, nested archives
// included.
func (d *StockDump) addEntries(name string, data []byte) {
	data, err := unwrap(data)
	var s *sarc.Sarc
	if err == nil {
		s, err = sarc.Parse(data)
	}
	if err != nil {
		zap.S().Warnf("skipping entries of %v - %v", name, err)
		return
	}
	for _, f := range s.Files() {
		d.add(botw.CanonNameWithoutRoot(f.Name), f.Data)
		if sarc.IsArchive(f.Data) {
			d.addEntries(f.Name, f.Data)
		}
	}
}

// Write stores the tables in dir under the names botw.UseDataDir reads.
func (d *StockDump) Write(dir string) error {
	hashes, err := json.Marshal(d.Hashes)
	if err != nil {
		return err
	}
	if err := fileio.WriteFile(filepath.Join(dir, d.Platform.HashesFile()), hashes); err != nil {
		return err
	}
	return fileio.WriteFile(filepath.Join(dir, botw.StockNamesFile), []byte(botw.FormatStockNames(d.Names)))
}
