package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Saver persists a named byte stream.
type Saver interface {
	Save(name string, r io.Reader) (path string, n int64, err error)
}

// DirSaver writes files into a directory. A partial write never leaves a
// file under the final name.
type DirSaver struct {
	Dir string
}

// NewDirSaver creates a saver rooted at dir, creating it if needed.
func NewDirSaver(dir string) (*DirSaver, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DirSaver{Dir: dir}, nil
}

// Save implements Saver.
func (s *DirSaver) Save(name string, r io.Reader) (string, int64, error) {
	final := filepath.Join(s.Dir, SafeName(name))

	tmp, err := os.CreateTemp(s.Dir, ".easlog-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return "", n, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", n, fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", n, err
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", n, fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return final, n, nil
}
