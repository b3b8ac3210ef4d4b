package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/msanchezp/lexrag/internal/core/domain"
	"github.com/msanchezp/lexrag/internal/core/ports"
)

// Source loads article and PDF corpus material from the corpus root:
//
//	<root>/laws/<law-id>/*.txt   one file per structural piece
//	<root>/pdfs/*.pdf            consolidated texts and topic notes
//
// It implements ports.CorpusSource.
type Source struct {
	root string
	log  *slog.Logger
}

func NewSource(root string, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{root: root, log: log}
}

func (s *Source) lawDir(lawID string) string { return filepath.Join(s.root, "laws", lawID) }
func (s *Source) pdfDir() string             { return filepath.Join(s.root, "pdfs") }

func (s *Source) LoadLawArticles(_ context.Context, law domain.Law) ([]ports.ArticleDocument, error) {
	dir := s.lawDir(law.ID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read law dir: %w", err)
	}

	var docs []ports.ArticleDocument
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		ref, err := ParsePieceFilename(entry.Name())
		if err != nil {
			s.log.Debug("article_file_skipped", "law", law.ID, "file", entry.Name(), "error", err)
			continue
		}

		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			s.log.Debug("article_file_empty", "law", law.ID, "file", entry.Name())
			continue
		}

		docs = append(docs, ports.ArticleDocument{
			ID:      law.ID + "|" + entry.Name(),
			Text:    text,
			RelPath: entry.Name(),
			Hash:    hashBytes(raw),
			Payload: domain.Payload{
				Kind:        domain.SourceArticle,
				LawID:       law.ID,
				LawName:     law.Name,
				SourcePath:  path,
				ContentHash: hashBytes(raw),
				Article: &domain.ArticlePayload{
					PieceKind: ref.PieceKind,
					Number:    ref.Number,
					Suffix:    ref.Suffix,
					Ordinal:   ref.Ordinal,
				},
			},
		})
	}

	sort.Slice(docs, func(a, b int) bool { return docs[a].RelPath < docs[b].RelPath })
	return docs, nil
}

// SnapshotDir hashes every file under dir with one of the extensions,
// keyed by path relative to dir. A missing directory is an empty snapshot.
func SnapshotDir(dir string, exts ...string) (map[string]string, error) {
	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		matched := false
		for _, ext := range exts {
			if strings.HasSuffix(strings.ToLower(d.Name()), ext) {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = hashBytes(raw)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return out, nil
}

func hashBytes(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
