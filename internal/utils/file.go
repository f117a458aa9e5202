package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// PanoramaExtensions are the extensions considered when scanning a folder.
var PanoramaExtensions = []string{"jpg", "jpeg", "tif", "tiff", "png", "webp"}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has a panorama image extension
func IsImageFile(filename string) bool {
	return lo.Contains(PanoramaExtensions, GetFileExtension(filename))
}

// OutputPath joins the output subfolder of folder with the file name.
func OutputPath(folder, subfolder, name string) string {
	return filepath.Join(folder, subfolder, filepath.Base(name))
}

// ListImageFiles lists the image files directly inside dir, sorted by name.
// Subdirectories and symlinks are skipped.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return e.Name(), e.Type().IsRegular() && IsImageFile(e.Name())
	})
	return files, nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && info.IsDir()
}
