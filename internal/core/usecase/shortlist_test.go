package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

type fakeCatalog struct {
	laws  []domain.Law
	err   error
	calls int
}

func (f *fakeCatalog) Load(context.Context) ([]domain.Law, error) {
	f.calls++
	return f.laws, f.err
}

type fakeEmbedder struct {
	byText map[string][]float32
	query  []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.byText[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.query != nil {
		return f.query, nil
	}
	if v, ok := f.byText[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func TestShortlistRanksBySimilarityAndOverlap(t *testing.T) {
	catalog := &fakeCatalog{laws: []domain.Law{
		{ID: "lo.3-2018", Name: "Protección de Datos Personales"},
		{ID: "l.39-2015", Name: "Procedimiento Administrativo Común"},
		{ID: "l.40-2015", Name: "Régimen Jurídico del Sector Público"},
	}}
	emb := &fakeEmbedder{
		byText: map[string][]float32{
			"Protección de Datos Personales":    {1, 0, 0},
			"Procedimiento Administrativo Común": {0, 1, 0},
			"Régimen Jurídico del Sector Público": {0, 0, 1},
		},
		query: []float32{0.9, 0.1, 0},
	}

	index := NewLawIndex(catalog, emb)
	got, err := index.Shortlist(context.Background(), "tratamiento de datos personales", 2)
	if err != nil {
		t.Fatalf("Shortlist: %v", err)
	}
	if len(got) != 2 || got[0] != "lo.3-2018" {
		t.Fatalf("unexpected shortlist: %v", got)
	}
}

func TestShortlistTiesKeepCatalogOrder(t *testing.T) {
	catalog := &fakeCatalog{laws: []domain.Law{
		{ID: "first", Name: "Alpha"},
		{ID: "second", Name: "Beta"},
	}}
	emb := &fakeEmbedder{
		byText: map[string][]float32{"Alpha": {0, 1, 0}, "Beta": {0, 1, 0}},
		query:  []float32{0, 1, 0},
	}

	index := NewLawIndex(catalog, emb)
	got, err := index.Shortlist(context.Background(), "consulta sin solape léxico", 2)
	if err != nil {
		t.Fatalf("Shortlist: %v", err)
	}
	if got[0] != "first" || got[1] != "second" {
		t.Fatalf("tie did not keep catalog order: %v", got)
	}
}

func TestLawIndexBuildsOnce(t *testing.T) {
	catalog := &fakeCatalog{laws: []domain.Law{{ID: "a", Name: "Alpha"}}}
	emb := &fakeEmbedder{query: []float32{1}}

	index := NewLawIndex(catalog, emb)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := index.Shortlist(ctx, "alpha", 1); err != nil {
			t.Fatalf("Shortlist: %v", err)
		}
	}
	if catalog.calls != 1 {
		t.Fatalf("catalog loaded %d times, want 1", catalog.calls)
	}
	if emb.calls != 1 {
		t.Fatalf("name embedding computed %d times, want 1", emb.calls)
	}
}

func TestLawIndexRetriesFailedBuild(t *testing.T) {
	catalog := &fakeCatalog{laws: []domain.Law{{ID: "a", Name: "Alpha"}}}
	emb := &fakeEmbedder{err: errors.New("embedder down")}

	index := NewLawIndex(catalog, emb)
	ctx := context.Background()

	if _, err := index.Shortlist(ctx, "alpha", 1); !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	emb.err = nil
	emb.query = []float32{1}
	if _, err := index.Shortlist(ctx, "alpha", 1); err != nil {
		t.Fatalf("expected recovery after transient failure, got %v", err)
	}
}
