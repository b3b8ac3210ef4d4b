package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

func TestLoadMissingManifestIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "manifest.json"), t.TempDir())
	m, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Articles) != 0 || len(m.PDFs) != 0 {
		t.Fatalf("expected empty manifest, got %+v", m)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state", "manifest.json"), dir)

	m := domain.NewManifest()
	m.Articles["lo.3-2018"] = map[string]string{"articulo-1.txt": "abc"}
	m.PDFs["temario.pdf"] = "def"

	if err := store.Save(context.Background(), m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Articles["lo.3-2018"]["articulo-1.txt"] != "abc" || loaded.PDFs["temario.pdf"] != "def" {
		t.Fatalf("round trip lost data: %+v", loaded)
	}
}

func TestSaveReplacesWholeManifest(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "manifest.json"), dir)
	ctx := context.Background()

	first := domain.NewManifest()
	first.Articles["old-law"] = map[string]string{"a.txt": "1"}
	if err := store.Save(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := domain.NewManifest()
	second.Articles["new-law"] = map[string]string{"b.txt": "2"}
	if err := store.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loaded.Articles["old-law"]; ok {
		t.Fatal("save must replace, not merge")
	}
}

func TestSnapshotsUseCorpusLayout(t *testing.T) {
	root := t.TempDir()
	lawDir := filepath.Join(root, "laws", "lo.3-2018")
	if err := os.MkdirAll(lawDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lawDir, "articulo-1.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	pdfDir := filepath.Join(root, "pdfs")
	if err := os.MkdirAll(pdfDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pdfDir, "temario.pdf"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(filepath.Join(root, "manifest.json"), root)
	arts, err := store.SnapshotArticles("lo.3-2018")
	if err != nil || len(arts) != 1 {
		t.Fatalf("SnapshotArticles: %v, %v", arts, err)
	}
	pdfs, err := store.SnapshotPDFs()
	if err != nil || len(pdfs) != 1 {
		t.Fatalf("SnapshotPDFs: %v, %v", pdfs, err)
	}
}
