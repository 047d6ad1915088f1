// AngelaMos | 2026
// local.go

package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps objects on disk under root. Object names are relative
// slash paths and may not escape root.
type LocalStorage struct {
	root string
}

// NewLocalStorage prepares root and the avatar directory beneath it.
func NewLocalStorage(root, dir string) (*LocalStorage, error) {
	s := &LocalStorage{root: root}

	full, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(full, 0o750); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	return s, nil
}

func (s *LocalStorage) Put(
	_ context.Context,
	name, _ string,
	r io.Reader,
) error {
	full, err := s.resolve(name)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	return nil
}

func (s *LocalStorage) Exists(_ context.Context, name string) (bool, error) {
	full, err := s.resolve(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat file: %w", err)
	}

	return true, nil
}

func (s *LocalStorage) Delete(_ context.Context, name string) error {
	full, err := s.resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}

	return nil
}

func (s *LocalStorage) resolve(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(s.root, clean), nil
}

var _ Storage = (*LocalStorage)(nil)
