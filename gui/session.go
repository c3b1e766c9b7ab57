package gui

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/wildbits/wildbits/aamp"
	"github.com/wildbits/wildbits/botw"
	"github.com/wildbits/wildbits/db"
	"github.com/wildbits/wildbits/fileio"
	"github.com/wildbits/wildbits/process"
	"github.com/wildbits/wildbits/settings"
)

var (
	ErrNoOpenDocument = errors.New("no open document")
	ErrUnknownCommand = errors.New("unknown command")
)

// Session holds the open documents shared by every command. All fields below
// mu are guarded by it.
type Session struct {
	logger   *zap.SugaredLogger
	settings *settings.AppSettings
	args     []string
	store    *db.PersistentDB
	cache    *db.ScanCache
	progress db.ProgressUpdater

	mu        sync.Mutex
	names     *db.NameTable
	aampNames *aamp.NameTable
	rstb      *process.RstbDocument
	sarc      *process.SarcDocument
	yaml      *process.Document
}

// NewSession loads the name overlay and, when enabled, the scan cache. args
// are the program arguments after the program name.
func NewSession(l *zap.SugaredLogger, s *settings.AppSettings, args []string) *Session {
	session := &Session{
		logger:    l,
		settings:  s,
		args:      args,
		names:     db.NewNameTable(botw.StockNames(), s.NamesPath()),
		aampNames: aamp.Names,
	}

	if s.ScanCache {
		store, err := db.NewPersistentDB(s.DBPath())
		if err != nil {
			l.Warnf("scan cache disabled - %v", err)
		} else {
			session.store = store
			session.cache = db.NewScanCache(store)
		}
	}
	return session
}

// SetProgress routes the progress of long-running commands to p.
func (s *Session) SetProgress(p db.ProgressUpdater) {
	s.progress = p
}

// Close writes the added names and releases the scan cache.
func (s *Session) Close() error {
	s.mu.Lock()
	err := s.names.Flush()
	s.mu.Unlock()

	if s.store != nil {
		if closeErr := s.store.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		s.store, s.cache = nil, nil
	}
	return err
}

// adoptSarc replaces the open archive. Callers hold mu.
func (s *Session) adoptSarc(doc *process.SarcDocument) (map[string]any, error) {
	tree, modified, err := doc.Tree()
	if err != nil {
		return nil, err
	}
	s.sarc = doc
	fileio.ClearMemo()
	return map[string]any{
		"sarc":   tree,
		"modded": modified,
		"be":     doc.BigEndian(),
	}, nil
}

// adoptYaml replaces the open textual document. Callers hold mu.
func (s *Session) adoptYaml(doc *process.Document) (map[string]any, error) {
	text, err := doc.ToText()
	if err != nil {
		return nil, err
	}
	s.yaml = doc
	return map[string]any{
		"yaml": text,
		"be":   doc.BigEndian(),
		"type": doc.Kind.String(),
	}, nil
}

func (s *Session) openSarc() (*process.SarcDocument, error) {
	if s.sarc == nil {
		return nil, ErrNoOpenDocument
	}
	return s.sarc, nil
}

func (s *Session) openRstb() (*process.RstbDocument, error) {
	if s.rstb == nil {
		return nil, ErrNoOpenDocument
	}
	return s.rstb, nil
}

func (s *Session) openYaml() (*process.Document, error) {
	if s.yaml == nil {
		return nil, ErrNoOpenDocument
	}
	return s.yaml, nil
}

// modifySarc applies edit to the open archive and adopts the result.
func (s *Session) modifySarc(edit func(doc *process.SarcDocument) (*process.SarcDocument, error)) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.openSarc()
	if err != nil {
		return nil, err
	}
	updated, err := edit(doc)
	if err != nil {
		return nil, err
	}
	return s.adoptSarc(updated)
}

func (s *Session) rememberFolder(dir string) {
	if dir == "" || dir == "." || s.settings.LastFolder == dir {
		return
	}
	s.settings.LastFolder = dir
	s.settings.Save()
}
