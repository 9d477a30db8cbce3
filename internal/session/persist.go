package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Persister keeps an identity between process runs.
// Load returns (nil, nil) when nothing is stored.
type Persister interface {
	Load() (*Identity, error)
	Save(*Identity) error
	Clear() error
}

// FilePersister stores the identity as JSON at Path (mode 0600).
type FilePersister struct {
	Path string
}

func (f FilePersister) Load() (*Identity, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", f.Path, err)
	}
	var id Identity
	if err := json.Unmarshal(b, &id); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", f.Path, err)
	}
	if id.Email == "" && id.AccessToken == "" {
		return nil, nil
	}
	return &id, nil
}

func (f FilePersister) Save(id *Identity) error {
	if id == nil {
		return f.Clear()
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	b, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("session: rename: %w", err)
	}
	return nil
}

func (f FilePersister) Clear() error {
	err := os.Remove(f.Path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("session: remove %s: %w", f.Path, err)
}
