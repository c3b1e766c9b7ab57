package process

import (
	"errors"

	"github.com/wildbits/wildbits/fileio"
)

var (
	ErrRead          = fileio.ErrRead
	ErrWrite         = fileio.ErrWrite
	ErrCompression   = fileio.ErrCompression
	ErrParse         = errors.New("failed to parse file")
	ErrInvalidYAML   = errors.New("failed to update, invalid YAML")
	ErrNotFound      = errors.New("file not found")
	ErrInvalidRstb   = errors.New("invalid RSTB file")
	ErrUnknownFormat = errors.New("not an AAMP, BYML, or MSBT file")
	ErrInvalidName   = errors.New("invalid file name")
)
