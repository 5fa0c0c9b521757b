package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gitlab.com/dirk.krummacker/contact-intake/internal/logger"
)

var _ Store = (*Disk)(nil)

// Disk stores files flatly in a single local directory.
type Disk struct {
	dir string
	log *logger.Logger
}

// NewDisk resolves dir to an absolute path and creates it if absent.
func NewDisk(dir string, log *logger.Logger) (*Disk, error) {
	if dir == "" {
		return nil, fmt.Errorf("uploads directory required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	log.Info("file store ready", "backend", "disk", "dir", abs)
	return &Disk{dir: abs, log: log.With("system", "filestore")}, nil
}

// Dir returns the absolute directory holding the files.
func (d *Disk) Dir() string { return d.dir }

func (d *Disk) Store(ctx context.Context, field, originalName string, content io.Reader) (string, error) {
	// The directory may have been removed since startup.
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads directory: %w", err)
	}

	name := GenerateName(field, originalName)
	path := filepath.Join(d.dir, name)
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(f, content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	d.log.Debug("file stored", "name", name, "bytes", n)
	return name, nil
}

func (d *Disk) Retrieve(ctx context.Context, name string) (io.ReadCloser, FileInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, FileInfo{}, err
	}
	f, err := os.Open(filepath.Join(d.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, FileInfo{}, ErrNotFound
		}
		return nil, FileInfo{}, fmt.Errorf("open file: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, FileInfo{}, fmt.Errorf("stat file: %w", err)
	}
	if stat.IsDir() {
		f.Close()
		return nil, FileInfo{}, ErrNotFound
	}
	return f, FileInfo{Name: name, Size: stat.Size()}, nil
}

func (d *Disk) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(d.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
