package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileStore keeps settings in a YAML file readable only by its owner.
// The whole file is rewritten on every change.
type FileStore struct {
	*Memory
	path string
}

type fileDocument struct {
	Users map[string]*userRecord `yaml:"users"`
}

// OpenFile loads settings from path. A missing file is an empty store.
func OpenFile(path string) (*FileStore, error) {
	fs := &FileStore{Memory: NewMemory(), path: path}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(data) > 0 {
		var doc fileDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid settings file %s: %w", path, err)
		}
		for uid, u := range doc.Users {
			if u == nil {
				continue
			}
			fs.Memory.users[uid] = u
		}
	}

	fs.Memory.persist = fs.write
	return fs, nil
}

// Path returns the settings file path.
func (f *FileStore) Path() string { return f.path }

// write replaces the file atomically with mode 0600.
func (f *FileStore) write(users map[string]*userRecord) error {
	data, err := yaml.Marshal(fileDocument{Users: users})
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
