package utils

import (
	"os"
	"path/filepath"
	"testing"
)

// pngHeader is enough for content sniffing to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func touch(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIsImageFile(t *testing.T) {
	dir := t.TempDir()

	// Content decides, not the extension
	image := filepath.Join(dir, "photo.dat")
	touch(t, image, pngHeader)
	text := filepath.Join(dir, "fake.jpg")
	touch(t, text, []byte("plain text"))

	if ok, err := IsImageFile(image); err != nil || !ok {
		t.Errorf("%s should be an image file (%v)", image, err)
	}
	if ok, err := IsImageFile(text); err != nil || ok {
		t.Errorf("%s should not be an image file (%v)", text, err)
	}
	if _, err := IsImageFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestGenerateOutputFilename(t *testing.T) {
	got := GenerateOutputFilename("portrait_grid_01.jpg", "out", "", "_preview", "png")
	if got != filepath.Join("out", "portrait_grid_01_preview.png") {
		t.Errorf("Unexpected name %s", got)
	}

	got = GenerateOutputFilename("photo.webp", "out", "x_", "", "")
	if got != filepath.Join("out", "x_photo.webp") {
		t.Errorf("Expected input extension to be reused, got %s", got)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "album", "b.jpg"), pngHeader)
	touch(t, filepath.Join(dir, "album", "a.png"), pngHeader)
	touch(t, filepath.Join(dir, "album", "notes.txt"), []byte("notes"))
	touch(t, filepath.Join(dir, "album", ".hidden.png"), pngHeader)
	touch(t, filepath.Join(dir, "album", "nested", "c.webp"), pngHeader)
	single := filepath.Join(dir, "single.jpeg")
	touch(t, single, []byte("kept as given"))

	files, err := ExpandInputs([]string{single, filepath.Join(dir, "album")})
	if err != nil {
		t.Fatalf("ExpandInputs failed: %v", err)
	}

	expected := []string{
		single,
		filepath.Join(dir, "album", "a.png"),
		filepath.Join(dir, "album", "b.jpg"),
		filepath.Join(dir, "album", "nested", "c.webp"),
	}
	if len(files) != len(expected) {
		t.Fatalf("Expected %d files, got %v", len(expected), files)
	}
	for i := range expected {
		if files[i] != expected[i] {
			t.Errorf("File %d: expected %s, got %s", i, expected[i], files[i])
		}
	}

	if _, err := ExpandInputs([]string{filepath.Join(dir, "missing.jpg")}); err == nil {
		t.Error("Expected error for missing input")
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if !DirExists(dir) {
		t.Error("Expected directory to exist")
	}
	if FileExists(dir) {
		t.Error("A directory is not a file")
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for size, want := range tests {
		if got := FormatFileSize(size); got != want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", size, got, want)
		}
	}
}
