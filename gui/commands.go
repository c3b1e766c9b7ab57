package gui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-stack/stack"

	"github.com/wildbits/wildbits/botw"
	"github.com/wildbits/wildbits/fileio"
	"github.com/wildbits/wildbits/process"
)

// Args carries the arguments of every command; each command reads the
// fields it needs.
type Args struct {
	File      string `json:"file"`
	Path      string `json:"path"`
	Folder    string `json:"folder"`
	Name      string `json:"name"`
	NewPath   string `json:"newPath"`
	Text      string `json:"text"`
	Size      uint32 `json:"size"`
	BigEndian bool   `json:"bigEndian"`
	Alignment int    `json:"alignment"`
}

type command func(s *Session, args Args) (any, error)

// ErrorReply is sent in place of the result of a failed command.
type ErrorReply struct {
	Message   string `json:"message"`
	Backtrace string `json:"backtrace"`
}

func newErrorReply(err error) ErrorReply {
	return ErrorReply{
		Message:   err.Error(),
		Backtrace: fmt.Sprintf("%+v", stack.Trace().TrimRuntime()),
	}
}

var commands = map[string]command{
	"open_rstb":      openRstb,
	"save_rstb":      saveRstb,
	"export_rstb":    exportRstb,
	"calc_size":      calcSize,
	"set_size":       setSize,
	"delete_entry":   deleteEntry,
	"add_name":       addName,
	"scan_mod":       scanMod,
	"flush_names":    flushNames,
	"open_sarc":      openSarc,
	"create_sarc":    createSarc,
	"save_sarc":      saveSarc,
	"get_file_meta":  getFileMeta,
	"add_file":       addFile,
	"delete_file":    deleteFile,
	"update_folder":  updateFolder,
	"extract_sarc":   extractSarc,
	"extract_file":   extractFile,
	"rename_file":    renameFile,
	"open_sarc_yaml": openSarcYaml,
	"open_yaml":      openYaml,
	"save_yaml":      saveYaml,
	"has_args":       hasArgs,
	"open_args":      openArgs,
	"close":          closeSession,
}

// commands run off the message loop
var longRunning = map[string]bool{
	"open_rstb":     true,
	"save_rstb":     true,
	"export_rstb":   true,
	"calc_size":     true,
	"scan_mod":      true,
	"flush_names":   true,
	"open_sarc":     true,
	"save_sarc":     true,
	"update_folder": true,
	"extract_sarc":  true,
	"open_yaml":     true,
	"save_yaml":     true,
}

// IsLongRunning reports whether name should be executed on its own goroutine.
func IsLongRunning(name string) bool {
	return longRunning[name]
}

// Execute runs the named command with its JSON encoded arguments.
func (s *Session) Execute(name string, payload []byte) (any, error) {
	cmd, ok := commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	var args Args
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, fmt.Errorf("bad arguments for %s: %w", name, err)
		}
	}
	return cmd(s, args)
}

// Reply runs the named command and returns its result or an ErrorReply.
func (s *Session) Reply(name string, payload []byte) any {
	result, err := s.Execute(name, payload)
	if err != nil {
		s.logger.Errorf("%v failed - %v", name, err)
		return newErrorReply(err)
	}
	if result == nil {
		return map[string]any{}
	}
	return result
}

func openRstb(s *Session, args Args) (any, error) {
	doc, err := process.OpenRstb(args.File)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rstb = doc
	s.rememberFolder(filepath.Dir(args.File))
	return map[string]any{
		"path": args.File,
		"rstb": doc.View(s.names),
		"be":   doc.BigEndian(),
	}, nil
}

func saveRstb(s *Session, args Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.openRstb()
	if err != nil {
		return nil, err
	}
	return nil, doc.Save(args.File)
}

func exportRstb(s *Session, args Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.openRstb()
	if err != nil {
		return nil, err
	}
	return nil, doc.Export(args.File)
}

func calcSize(s *Session, args Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.openRstb()
	if err != nil {
		return nil, err
	}
	return doc.CalcSize(args.File)
}

func setSize(s *Session, args Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.openRstb()
	if err != nil {
		return nil, err
	}
	doc.SetSize(s.names, args.Path, args.Size)
	return nil, nil
}

func deleteEntry(s *Session, args Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.openRstb()
	if err != nil {
		return nil, err
	}
	doc.DeleteEntry(args.Path)
	return nil, nil
}

func addName(s *Session, args Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names.AddName(args.Name), nil
}

// scanMod holds the guard only while recording names.
func scanMod(s *Session, args Args) (any, error) {
	exclude, err := process.NewExcluder(s.settings.ScanExclude)
	if err != nil {
		return nil, err
	}
	opts := process.ScanOptions{
		Exclude:  exclude,
		Cache:    s.cache,
		Workers:  s.settings.ScanWorkers,
		Progress: s.progress,
	}
	err = process.ScanMod(args.Path, opts, func(names []string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, name := range names {
			s.names.Insert(name)
		}
	})
	if err != nil {
		return nil, err
	}
	return flushNames(s, args)
}

func flushNames(s *Session, _ Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nil, s.names.Flush()
}

func openSarc(s *Session, args Args) (any, error) {
	doc, err := process.OpenSarc(args.File)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.adoptSarc(doc)
	if err != nil {
		return nil, err
	}
	res["path"] = args.File
	s.rememberFolder(filepath.Dir(args.File))
	return res, nil
}

func createSarc(s *Session, args Args) (any, error) {
	doc, err := process.CreateSarc(args.BigEndian, args.Alignment)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adoptSarc(doc)
}

func saveSarc(s *Session, args Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.openSarc()
	if err != nil {
		return nil, err
	}
	return nil, doc.Save(args.File)
}

func getFileMeta(s *Session, args Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.openSarc()
	if err != nil {
		return nil, err
	}
	return doc.FileMeta(process.CleanLocation(args.File))
}

func addFile(s *Session, args Args) (any, error) {
	location := process.CleanLocation(args.Path)
	return s.modifySarc(func(doc *process.SarcDocument) (*process.SarcDocument, error) {
		return doc.AddFile(args.File, location)
	})
}

func deleteFile(s *Session, args Args) (any, error) {
	location := process.CleanLocation(args.Path)
	return s.modifySarc(func(doc *process.SarcDocument) (*process.SarcDocument, error) {
		return doc.DeleteFile(location)
	})
}

func updateFolder(s *Session, args Args) (any, error) {
	exclude, err := process.NewExcluder(s.settings.UpdateExclude)
	if err != nil {
		return nil, err
	}
	return s.modifySarc(func(doc *process.SarcDocument) (*process.SarcDocument, error) {
		return doc.UpdateFolder(args.Folder, exclude, s.progress)
	})
}

func extractSarc(s *Session, args Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.openSarc()
	if err != nil {
		return nil, err
	}
	return nil, doc.ExtractAll(args.Folder, s.progress)
}

func extractFile(s *Session, args Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.openSarc()
	if err != nil {
		return nil, err
	}
	return nil, doc.ExtractFile(args.File, process.CleanLocation(args.Path))
}

func renameFile(s *Session, args Args) (any, error) {
	location := process.CleanLocation(args.Path)
	return s.modifySarc(func(doc *process.SarcDocument) (*process.SarcDocument, error) {
		return doc.RenameFile(location, args.NewPath)
	})
}

// openSarcYaml reads the payload under the guard, then parses it without.
func openSarcYaml(s *Session, args Args) (any, error) {
	s.mu.Lock()
	doc, err := s.openSarc()
	var data []byte
	if err == nil {
		data, err = doc.OpenNested(process.CleanLocation(args.Path))
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.parseYaml(data)
}

func openYaml(s *Session, args Args) (any, error) {
	data, err := fileio.ReadFile(args.File)
	if err != nil {
		return nil, err
	}
	res, err := s.parseYaml(data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.rememberFolder(filepath.Dir(args.File))
	s.mu.Unlock()
	return res, nil
}

func (s *Session) parseYaml(data []byte) (map[string]any, error) {
	doc, err := process.DocumentFromBinary(data, s.aampNames)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adoptYaml(doc)
}

// saveYaml writes the edited document to disk, or into the open archive when
// file is a "SARC:" location. The guard is dropped before the archive is
// modified.
func saveYaml(s *Session, args Args) (any, error) {
	inSarc := strings.HasPrefix(args.File, "SARC:")
	target := args.File
	if inSarc {
		target = process.CleanLocation(args.File)
	}

	s.mu.Lock()
	doc, err := s.openYaml()
	var data []byte
	if err == nil {
		err = doc.Update(args.Text)
	}
	if err == nil {
		data, err = doc.ToBinary()
	}
	if err == nil {
		data, err = fileio.CompressForPath(target, data)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if !inSarc {
		return nil, fileio.WriteFile(target, data)
	}
	return s.modifySarc(func(open *process.SarcDocument) (*process.SarcDocument, error) {
		return open.AddData(target, data)
	})
}

// firstArg returns the first program argument other than --debug.
func (s *Session) firstArg() (string, bool) {
	for _, arg := range s.args {
		if arg != "--debug" {
			return arg, true
		}
	}
	return "", false
}

func hasArgs(s *Session, _ Args) (any, error) {
	_, ok := s.firstArg()
	return ok, nil
}

// openArgs opens the file given on the command line in the editor its
// extension belongs to.
func openArgs(s *Session, _ Args) (any, error) {
	file, ok := s.firstArg()
	if !ok {
		return map[string]any{}, nil
	}
	if info, err := os.Stat(file); err != nil || info.IsDir() {
		s.logger.Warnf("ignoring argument %v", file)
		return map[string]any{}, nil
	}

	var (
		kind string
		open command
	)
	ext := botw.Ext(strings.TrimSuffix(file, ".zs"))
	switch {
	case botw.IsYamlExt(ext):
		kind, open = "yaml", openYaml
	case botw.IsSarcExt(ext):
		kind, open = "sarc", openSarc
	case ext == "rsizetable" || ext == "srsizetable":
		kind, open = "rstb", openRstb
	default:
		return map[string]any{}, nil
	}

	data, err := open(s, Args{File: file})
	if err != nil {
		return nil, err
	}
	return map[string]any{"type": kind, "data": data, "path": file}, nil
}

func closeSession(s *Session, _ Args) (any, error) {
	return nil, s.Close()
}
