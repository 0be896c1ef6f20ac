package savefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"touchline/internal/market"
)

// File persists the engine snapshot as indented JSON on local disk.
type File struct {
	path string
}

func New(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Load reads the save. ok is false when no save exists yet.
func (f *File) Load() (st market.State, ok bool, err error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, false, nil
		}
		return st, false, err
	}
	if len(raw) == 0 {
		return st, false, nil
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return st, false, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return st, true, nil
}

// Persist implements market.Persister. The file is replaced atomically.
func (f *File) Persist(_ context.Context, st market.State) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".save-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// Clear removes the save. A missing save is not an error.
func (f *File) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Open returns the save at path and its contents. With reset set the old
// save is removed first, so ok is false and the caller seeds a new world.
func Open(path string, reset bool) (f *File, st market.State, ok bool, err error) {
	f = New(path)
	if reset {
		if err := f.Clear(); err != nil {
			return f, st, false, fmt.Errorf("reset %s: %w", path, err)
		}
		return f, st, false, nil
	}
	st, ok, err = f.Load()
	return f, st, ok, err
}
