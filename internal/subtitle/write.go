package subtitle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// how WriteDocument treats an existing file at the target path
type WriteMode int

const (
	// truncate and overwrite without asking
	WriteOverwrite WriteMode = iota
	// write a sibling temp file, then rename it over the target
	WriteAtomic
	// refuse to touch an existing file
	WriteNoClobber
)

func (m WriteMode) String() string {
	switch m {
	case WriteAtomic:
		return "atomic"
	case WriteNoClobber:
		return "no-clobber"
	default:
		return "overwrite"
	}
}

// WriteDocument persists a fully rendered document in one write.
func WriteDocument(path, doc string, mode WriteMode) error {
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	switch mode {
	case WriteAtomic:
		return writeAtomic(path, []byte(doc))
	case WriteNoClobber:
		return writeExclusive(path, []byte(doc))
	default:
		return writeTruncate(path, []byte(doc))
	}
}

func writeTruncate(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return file.Close()
}

func writeExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return file.Close()
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace output file: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
