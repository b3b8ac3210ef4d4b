package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/msanchezp/lexrag/internal/core/domain"
	"github.com/msanchezp/lexrag/internal/infrastructure/corpus"
)

// Store persists the ingestion manifest as JSON next to the corpus and
// snapshots corpus directories for change detection. It implements
// ports.ManifestStore.
type Store struct {
	path       string
	corpusRoot string
}

func NewStore(path, corpusRoot string) *Store {
	return &Store{path: path, corpusRoot: corpusRoot}
}

func (s *Store) Load(_ context.Context) (domain.Manifest, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewManifest(), nil
		}
		return domain.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m domain.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return domain.Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Articles == nil {
		m.Articles = make(map[string]map[string]string)
	}
	if m.PDFs == nil {
		m.PDFs = make(map[string]string)
	}
	return m, nil
}

// Save replaces the manifest atomically: write to a temp file in the same
// directory, then rename over the target.
func (s *Store) Save(_ context.Context, m domain.Manifest) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

func (s *Store) SnapshotArticles(lawID string) (map[string]string, error) {
	return corpus.SnapshotDir(filepath.Join(s.corpusRoot, "laws", lawID), ".txt")
}

func (s *Store) SnapshotPDFs() (map[string]string, error) {
	return corpus.SnapshotDir(filepath.Join(s.corpusRoot, "pdfs"), ".pdf")
}
