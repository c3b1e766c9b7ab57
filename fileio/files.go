package fileio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avast/retry-go"
)

var (
	ErrRead  = errors.New("failed to read file")
	ErrWrite = errors.New("failed to write file")
)

// ReadFile reads path, retrying transient failures such as files locked by
// another program.
func ReadFile(path string) ([]byte, error) {
	var data []byte
	err := retry.Do(
		func() error {
			var err error
			data, err = os.ReadFile(path)
			return err
		},
		retry.Attempts(3),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, os.ErrNotExist) }),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return data, nil
}

// WriteFile writes data to path, creating missing parent directories.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
