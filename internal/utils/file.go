package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if DirExists(dir) {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// GenerateOutputFilename builds dir/prefix+base+suffix.format from an input
// name. An empty format reuses the input's extension, falling back to jpg.
func GenerateOutputFilename(inputFile, outputDir, prefix, suffix, format string) string {
	base := filepath.Base(inputFile)
	ext := filepath.Ext(base)

	if format == "" {
		format = strings.ToLower(strings.TrimPrefix(ext, "."))
		if format == "" {
			format = "jpg"
		}
	}

	name := prefix + strings.TrimSuffix(base, ext) + suffix + "." + format
	return filepath.Join(outputDir, name)
}

// IsImageFile sniffs a file's leading bytes and reports whether it holds an image
func IsImageFile(path string) (bool, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to detect file type: %w", err)
	}
	return strings.HasPrefix(mtype.String(), "image/"), nil
}

// ListImageFiles walks dir in lexical order and returns the files whose
// content is an image. Hidden files and directories are skipped.
func ListImageFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		ok, err := IsImageFile(path)
		if err != nil {
			return err
		}
		if ok {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// ExpandInputs resolves command line arguments into a file list. Directories
// contribute their image files; plain files are kept as given, in order.
func ExpandInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		switch {
		case DirExists(arg):
			found, err := ListImageFiles(arg)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", arg, err)
			}
			files = append(files, found...)
		case FileExists(arg):
			files = append(files, arg)
		default:
			return nil, fmt.Errorf("input not found: %s", arg)
		}
	}
	return files, nil
}

// FileExists reports whether path is an existing non-directory
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DirExists reports whether path is an existing directory
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FormatFileSize formats a byte count with binary units, e.g. "2.0 KB"
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
