package usecase

import (
	"testing"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

func hitsFixture(n int) []domain.Hit {
	hits := make([]domain.Hit, n)
	for i := range hits {
		hits[i] = domain.Hit{Score: 1.0 - float64(i)*0.1, Collection: "articles__lo.3-2018"}
	}
	return hits
}

func TestReciprocalRankFusionIsCommutative(t *testing.T) {
	a := []int{0, 1, 2, 3}
	b := []int{3, 2, 1, 0}

	first := reciprocalRankFusion([][]int{a, b}, 60)
	second := reciprocalRankFusion([][]int{b, a}, 60)

	if len(first) != len(second) {
		t.Fatalf("length mismatch: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("fusion depends on ranking order: %v vs %v", first, second)
		}
	}
}

func TestFuseHitsPromotesLexicalMatch(t *testing.T) {
	hits := hitsFixture(3)
	texts := []string{
		"texto irrelevante acerca de plazos administrativos generales",
		"texto irrelevante acerca de recursos ordinarios",
		"el delegado protección datos será designado atendiendo cualidades profesionales",
	}

	fused := fuseHits("delegado protección datos cualidades", hits, texts, FusionConfig{Enabled: true})
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused hits, got %d", len(fused))
	}
	// Dense rank 0 and lexical rank 0 must both end ahead of dense rank 1
	// with no lexical support.
	if fused[0].Score != hits[0].Score && fused[0].Score != hits[2].Score {
		t.Fatalf("unexpected fused head score %v", fused[0].Score)
	}
	if fused[2].Score == hits[2].Score {
		t.Fatal("lexical match was not promoted above unsupported candidates")
	}
}

func TestFuseHitsDisabledKeepsDenseOrder(t *testing.T) {
	hits := hitsFixture(3)
	texts := []string{"alfa", "beta", "gamma"}

	fused := fuseHits("beta", hits, texts, FusionConfig{Enabled: false})
	for i := range hits {
		if fused[i].Score != hits[i].Score {
			t.Fatalf("dense order changed at %d", i)
		}
	}
}

func TestFuseHitsTokenlessCandidatesSkipFusion(t *testing.T) {
	hits := hitsFixture(2)
	fused := fuseHits("consulta normal", hits, []string{"", "   "}, FusionConfig{Enabled: true})
	if fused[0].Score != hits[0].Score || fused[1].Score != hits[1].Score {
		t.Fatal("fusion should be skipped when no candidate has tokens")
	}
}

func TestFuseHitsAppliesTopK(t *testing.T) {
	hits := hitsFixture(5)
	texts := []string{"uno", "dos", "tres", "cuatro", "cinco"}
	fused := fuseHits("dos", hits, texts, FusionConfig{Enabled: true, TopK: 2})
	if len(fused) != 2 {
		t.Fatalf("expected topK=2 hits, got %d", len(fused))
	}
}

func TestBM25OrderPrefersTermFrequency(t *testing.T) {
	docs := [][]string{
		{"plazo", "recurso"},
		{"plazo", "plazo", "plazo", "resolución"},
		{"silencio", "administrativo"},
	}
	order := bm25Order([]string{"plazo"}, docs)
	if order[0] != 1 {
		t.Fatalf("expected doc 1 first, got order %v", order)
	}
}
