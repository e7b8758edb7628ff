package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// compile-time check that *Disk implements Store
var _ Store = (*Disk)(nil)

// Disk stores receipts as plain files in one directory.
type Disk struct {
	dir string
}

// NewDisk creates dir if needed (like `mkdir -p`).
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating receipts dir %s: %w", dir, err)
	}
	return &Disk{dir: dir}, nil
}

// Save writes to a temporary file first and renames it into place, so a
// failed upload never leaves a truncated receipt behind.
func (d *Disk) Save(_ context.Context, name string, r io.Reader) error {
	if err := validName(name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: closing %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, name)); err != nil {
		return fmt.Errorf("storage: storing %s: %w", name, err)
	}
	return nil
}

func (d *Disk) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(d.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("storage: opening %s: %w", name, err)
	}
	return f, nil
}

func (d *Disk) Delete(_ context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(d.dir, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return fmt.Errorf("storage: deleting %s: %w", name, err)
	}
	return nil
}
