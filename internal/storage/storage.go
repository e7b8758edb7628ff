// Package storage keeps uploaded payment receipts.
//
// The registration service only deals in object names ("bill_<id>_<ms>.pdf");
// where the bytes live is decided by the Store implementation:
//   - Disk: a server-local directory (the default)
//   - S3:   an S3-compatible bucket
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrNotExist is returned by Open and Delete for unknown object names.
var ErrNotExist = errors.New("storage: object does not exist")

// Store is a flat namespace of receipt files.
type Store interface {
	// Save writes r under name, replacing any existing object.
	Save(ctx context.Context, name string, r io.Reader) error
	// Open returns the object's content. The caller must close it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing object returns ErrNotExist.
	Delete(ctx context.Context, name string) error
}

// validName rejects names that could escape the receipts namespace.
func validName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("storage: invalid object name %q", name)
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("storage: invalid object name %q", name)
	}
	return nil
}
