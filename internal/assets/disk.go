package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store is an opaque blob store for product images. Delete is
// best-effort; callers treat its failure as non-fatal.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// DiskStore keeps assets as flat files under a single directory. The
// returned reference is the generated filename.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the backing directory if needed
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes the blob under a fresh unique name and returns the
// reference.
func (d *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ref := uuid.New().String() + ext

	f, err := os.Create(filepath.Join(d.dir, ref))
	if err != nil {
		return "", fmt.Errorf("failed to create asset file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write asset file: %w", err)
	}
	return ref, nil
}

// Delete removes the blob. A missing file is not an error.
func (d *DiskStore) Delete(ctx context.Context, ref string) error {
	// References are bare filenames; refuse anything path-like.
	if ref != filepath.Base(ref) {
		return fmt.Errorf("invalid asset reference: %s", ref)
	}
	err := os.Remove(filepath.Join(d.dir, ref))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}
