// File: internal/store/filestore.go
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
)

// FileStore keeps one JSON document per scenario under <dataDir>/scenarios.
// Writes land in a temp file first and are renamed into place, so a reader
// never observes a partially written document.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore expands dataDir (including a leading ~) and creates the
// scenarios directory beneath it.
func NewFileStore(dataDir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	expanded, err := homedir.Expand(dataDir)
	if err != nil {
		return nil, wrapStorage(err, "expanding data dir %q", dataDir)
	}
	dir := filepath.Join(expanded, "scenarios")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, wrapStorage(err, "creating scenario dir %q", dir)
	}
	return &FileStore{dir: dir, logger: logger.Named("file_store")}, nil
}

// path maps a scenario id onto its document. Ids that cannot be file names
// are rejected rather than resolved outside the data dir.
func (s *FileStore) path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: scenario id %q is not a valid file name", schemas.ErrStorage, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *FileStore) Save(ctx context.Context, sc *schemas.Scenario) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(sc.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return wrapStorage(err, "encoding scenario %q", sc.ID)
	}
	if err := s.writeAtomic(path, data); err != nil {
		return wrapStorage(err, "writing scenario %q", sc.ID)
	}
	return nil
}

// writeAtomic stages data in a temp file in the same directory and renames it
// over the destination.
func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".scenario-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*schemas.Scenario, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorage(err, "reading scenario %q", id)
	}
	var sc schemas.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, wrapStorage(err, "decoding scenario %q", id)
	}
	return &sc, nil
}

func (s *FileStore) List(ctx context.Context) ([]*schemas.Scenario, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, wrapStorage(err, "listing scenario dir %q", s.dir)
	}

	var out []*schemas.Scenario
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("Skipping unreadable scenario file.", zap.String("file", name), zap.Error(err))
			continue
		}
		var sc schemas.Scenario
		if err := json.Unmarshal(data, &sc); err != nil {
			s.logger.Warn("Skipping undecodable scenario file.", zap.String("file", name), zap.Error(err))
			continue
		}
		out = append(out, &sc)
	}
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return wrapStorage(err, "deleting scenario %q", id)
	}
	return nil
}

// Close is a no-op; the file backend holds no long-lived handles.
func (s *FileStore) Close() error { return nil }
