package usecase

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/msanchezp/lexrag/internal/core/domain"
	"github.com/msanchezp/lexrag/internal/core/ports"
)

// LawIndex is the explicit cache behind law shortlisting: catalog order,
// unit-norm name embeddings and name token sets, built lazily at most once
// per successful attempt. A failed build is retried on the next call;
// concurrent callers are serialized so the embedder is hit once.
type LawIndex struct {
	catalog  ports.CatalogLoader
	embedder ports.Embedder

	mu     sync.Mutex
	ready  bool
	laws   []domain.Law
	vecs   [][]float32
	tokens []map[string]struct{}
}

func NewLawIndex(catalog ports.CatalogLoader, embedder ports.Embedder) *LawIndex {
	return &LawIndex{catalog: catalog, embedder: embedder}
}

func (x *LawIndex) ensure(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.ready {
		return nil
	}

	laws, err := x.catalog.Load(ctx)
	if err != nil {
		return err
	}

	names := make([]string, len(laws))
	for i, law := range laws {
		names[i] = law.Name
	}
	vecs, err := x.embedder.Embed(ctx, names)
	if err != nil {
		return domain.WrapError(domain.ErrUpstreamUnavailable, "embed law names", err)
	}

	tokens := make([]map[string]struct{}, len(laws))
	for i, law := range laws {
		tokens[i] = tokenize(law.Name)
	}

	x.laws = laws
	x.vecs = vecs
	x.tokens = tokens
	x.ready = true
	return nil
}

// Laws returns the catalog in its declared order.
func (x *LawIndex) Laws(ctx context.Context) ([]domain.Law, error) {
	if err := x.ensure(ctx); err != nil {
		return nil, err
	}
	return x.laws, nil
}

// LawName resolves a law id to its display name, "" when unknown.
func (x *LawIndex) LawName(ctx context.Context, id string) string {
	if err := x.ensure(ctx); err != nil {
		return ""
	}
	for _, law := range x.laws {
		if law.ID == id {
			return law.Name
		}
	}
	return ""
}

// Shortlist ranks catalog laws against a query by
// 0.75*cosine + 0.25*lexicalOverlap and returns the top n law ids. Ties
// keep catalog enumeration order.
func (x *LawIndex) Shortlist(ctx context.Context, query string, n int) ([]string, error) {
	if err := x.ensure(ctx); err != nil {
		return nil, err
	}
	if len(x.laws) == 0 {
		return nil, nil
	}

	qvec, err := x.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstreamUnavailable, "embed shortlist query", err)
	}
	qtokens := tokenize(query)

	scores := make([]float64, len(x.laws))
	for i := range x.laws {
		overlap := 0
		for tok := range x.tokens[i] {
			if _, ok := qtokens[tok]; ok {
				overlap++
			}
		}
		denom := len(qtokens)
		if denom == 0 {
			denom = 1
		}
		// The lexical term is containment, not Jaccard: the share of
		// question tokens covered by the law's vocabulary. A long law
		// description must not dilute the score of a short question.
		scores[i] = 0.75*dot(qvec, x.vecs[i]) + 0.25*float64(overlap)/float64(denom)
	}

	order := make([]int, len(x.laws))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if n > len(order) {
		n = len(order)
	}
	ids := make([]string, 0, n)
	for _, idx := range order[:n] {
		ids = append(ids, x.laws[idx].ID)
	}
	return ids, nil
}

var tokenRe = regexp.MustCompile(`[a-záéíóúñü]{3,}`)

// stopTokens are common Spanish function words excluded from lexical
// overlap scoring.
var stopTokens = map[string]struct{}{
	"los": {}, "las": {}, "del": {}, "por": {}, "con": {}, "para": {},
	"una": {}, "que": {}, "sus": {}, "ley": {}, "real": {}, "decreto": {},
	"reglamento": {}, "general": {}, "sobre": {}, "como": {}, "entre": {},
}

func tokenize(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopTokens[tok]; stop {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

func dot(a []float32, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
