package expense

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

const maxFilenameBase = 50

// Storage defines the interface for storing uploaded documents
type Storage interface {
	// Save saves a file and returns the path relative to the storage root
	Save(filename string, data []byte) (string, error)

	// Get retrieves a file by path
	Get(path string) ([]byte, error)

	// Delete removes a file
	Delete(path string) error
}

// LocalStorage implements Storage on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the storage directory if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save writes data under the storage root, creating subdirectories in filename
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	path, err := l.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return filename, nil
}

// Get reads a stored file
func (l *LocalStorage) Get(path string) ([]byte, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a stored file
func (l *LocalStorage) Delete(path string) error {
	fullPath, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// resolve joins path to the root and refuses paths that escape it
func (l *LocalStorage) resolve(path string) (string, error) {
	if !filepath.IsLocal(path) {
		return "", fmt.Errorf("invalid storage path %q", path)
	}
	return filepath.Join(l.basePath, path), nil
}

// sanitizeFilename keeps letters (any script), digits, spaces, hyphens and
// underscores, and truncates the base name
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if runes := []rune(base); len(runes) > maxFilenameBase {
		base = strings.TrimSpace(string(runes[:maxFilenameBase]))
	}
	if base == "" {
		base = "document"
	}
	return base + ext
}
