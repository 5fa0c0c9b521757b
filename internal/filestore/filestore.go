// Package filestore persists uploaded files under generated, collision-resistant names.
// Stored names are flat: they never contain directories, and every name handed back to the
// store is validated before it is resolved.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"
)

// File store errors returned by Store implementations.
var (
	// ErrNotFound indicates that no file with the requested name exists.
	ErrNotFound = errors.New("filestore: file not found")

	// ErrInvalidName indicates an empty name or one containing path separators or parent
	// directory references.
	ErrInvalidName = errors.New("filestore: invalid file name")
)

// FileInfo describes a stored file.
type FileInfo struct {
	Name string
	Size int64
}

// Store defines the operations of a file store backend.
type Store interface {
	// Store writes content under a name generated from field and originalName and returns
	// that name.
	Store(ctx context.Context, field, originalName string, content io.Reader) (string, error)

	// Retrieve opens the named file. The caller closes the reader.
	// Returns ErrNotFound if the file does not exist and ErrInvalidName for unsafe names.
	Retrieve(ctx context.Context, name string) (io.ReadCloser, FileInfo, error)

	// Delete removes the named file. Deleting a missing file is not an error.
	Delete(ctx context.Context, name string) error
}

// GenerateName returns field + "-" + unix milliseconds + "-" + random integer below 1e9 +
// the extension of originalName. Collisions are unlikely but not checked.
func GenerateName(field, originalName string) string {
	return formatName(field, originalName, time.Now(), rand.Int64N(1e9))
}

func formatName(field, originalName string, now time.Time, suffix int64) string {
	return fmt.Sprintf("%s-%d-%d%s", field, now.UnixMilli(), suffix, safeExt(originalName))
}

// safeExt returns the extension of a client supplied file name, or "" if the extension holds
// characters that ValidateName would reject.
func safeExt(originalName string) string {
	ext := filepath.Ext(originalName)
	if strings.ContainsAny(ext, "/\\\x00") || strings.Contains(ext, "..") {
		return ""
	}
	return ext
}

// ValidateName rejects names that could escape the store directory.
func ValidateName(name string) error {
	if name == "" || name == "." ||
		strings.ContainsAny(name, "/\\\x00") ||
		strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
