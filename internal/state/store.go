// Package state persists the webhook message id between runs and watches the
// file so an operator can repoint the publisher without restarting it.
package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"tools.zach/dev/servercard/internal/atomicfile"
)

// filePerm is used for the message id file.
const filePerm = 0o644

// Store reads and writes a single message id file.
type Store struct {
	path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load returns the stored id with surrounding whitespace removed. A missing
// or empty file yields "" and no error.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read message id: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save atomically replaces the stored id, creating the directory if needed.
func (s *Store) Save(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("save message id: empty id")
	}
	if err := atomicfile.WriteString(s.path, id+"\n", filePerm); err != nil {
		return fmt.Errorf("save message id: %w", err)
	}
	return nil
}
