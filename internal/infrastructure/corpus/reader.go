package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileTextSource implements ports.TextSource over the corpus root. It only
// serves the .txt files the ingestion wrote into payloads; anything else
// is refused.
type FileTextSource struct {
	root string
}

func NewFileTextSource(root string) *FileTextSource {
	return &FileTextSource{root: root}
}

func (s *FileTextSource) ReadText(_ context.Context, path string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".txt") {
		return "", fmt.Errorf("refusing non-txt source %q", path)
	}
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) {
		clean = filepath.Join(s.root, clean)
	}
	raw, err := os.ReadFile(clean)
	if err != nil {
		return "", fmt.Errorf("read source text: %w", err)
	}
	return string(raw), nil
}
