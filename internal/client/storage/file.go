package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// DefaultFile is the document path used when none is configured.
const DefaultFile = "shoebox.json"

type fileBackend struct {
	path string
}

// NewFileRepository stores the collection as a JSON file at path.
func NewFileRepository(path string) *DocumentRepository {
	if path == "" {
		path = DefaultFile
	}
	return newDocumentRepository(&fileBackend{path: path})
}

func (b *fileBackend) read(context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// write replaces the file atomically so a crash never leaves half a document.
func (b *fileBackend) write(_ context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".shoebox-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path)
}
