package exporter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/menta2k/photo-grid/internal/utils"
)

// ZipArchiver builds a zip archive in memory
type ZipArchiver struct {
	buf      bytes.Buffer
	w        *zip.Writer
	modified time.Time
	done     bool
}

// NewZipArchiver creates an empty in-memory zip archive. Entries are stamped
// with modified; a zero time uses the current time.
func NewZipArchiver(modified time.Time) *ZipArchiver {
	if modified.IsZero() {
		modified = time.Now()
	}
	a := &ZipArchiver{modified: modified}
	a.w = zip.NewWriter(&a.buf)
	return a
}

// AddEntry adds one file. JPEG data is stored as-is since deflate gains nothing.
func (a *ZipArchiver) AddEntry(name string, data []byte, hint Encoding) error {
	if a.done {
		return ErrMaterialized
	}

	method := zip.Deflate
	if hint == EncodingJPEG {
		method = zip.Store
	}

	fw, err := a.w.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: a.modified,
	})
	if err != nil {
		return fmt.Errorf("failed to create zip entry: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write zip entry: %w", err)
	}
	return nil
}

// Materialize finalizes the archive and returns its bytes
func (a *ZipArchiver) Materialize() ([]byte, error) {
	if a.done {
		return nil, ErrMaterialized
	}
	a.done = true
	if err := a.w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return a.buf.Bytes(), nil
}

// DirArchiver writes every entry as a file in a directory
type DirArchiver struct {
	dir   string
	names []string
	done  bool
}

// NewDirArchiver creates an archiver rooted at dir
func NewDirArchiver(dir string) *DirArchiver {
	return &DirArchiver{dir: dir}
}

// AddEntry writes data to dir/name
func (a *DirArchiver) AddEntry(name string, data []byte, hint Encoding) error {
	if a.done {
		return ErrMaterialized
	}
	if name != filepath.Base(name) {
		return fmt.Errorf("invalid entry name %q", name)
	}
	if err := utils.EnsureDir(a.dir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	a.names = append(a.names, name)
	return nil
}

// Materialize returns a newline-separated manifest of the written files
func (a *DirArchiver) Materialize() ([]byte, error) {
	if a.done {
		return nil, ErrMaterialized
	}
	a.done = true
	if len(a.names) == 0 {
		return nil, nil
	}
	return []byte(strings.Join(a.names, "\n") + "\n"), nil
}
