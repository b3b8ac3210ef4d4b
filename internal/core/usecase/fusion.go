package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

// FusionConfig controls hybrid dense+lexical candidate fusion.
type FusionConfig struct {
	Enabled bool
	RRFK    int // reciprocal-rank constant, default 60
	TopK    int // output cap after fusion, 0 keeps everything
}

func (c FusionConfig) normalize() FusionConfig {
	if c.RRFK <= 0 {
		c.RRFK = 60
	}
	return c
}

// fuseHits reorders dense hits by fusing the dense ranking with a BM25
// ranking of the candidate texts against the query. Fusion is skipped, and
// the dense order returned unchanged, when disabled, when the query has no
// usable tokens, or when every candidate is tokenless.
func fuseHits(query string, hits []domain.Hit, texts []string, cfg FusionConfig) []domain.Hit {
	cfg = cfg.normalize()
	if !cfg.Enabled || len(hits) < 2 {
		return capHits(hits, cfg.TopK)
	}

	queryTokens := tokenList(query)
	if len(queryTokens) == 0 {
		return capHits(hits, cfg.TopK)
	}

	docs := make([][]string, len(texts))
	anyTokens := false
	for i, t := range texts {
		docs[i] = tokenList(t)
		if len(docs[i]) > 0 {
			anyTokens = true
		}
	}
	if !anyTokens {
		return capHits(hits, cfg.TopK)
	}

	dense := make([]int, len(hits))
	for i := range dense {
		dense[i] = i
	}
	lexical := bm25Order(queryTokens, docs)

	fusedOrder := reciprocalRankFusion([][]int{dense, lexical}, cfg.RRFK)

	fused := make([]domain.Hit, 0, len(hits))
	for _, idx := range fusedOrder {
		fused = append(fused, hits[idx])
	}
	return capHits(fused, cfg.TopK)
}

func capHits(hits []domain.Hit, topK int) []domain.Hit {
	if topK > 0 && len(hits) > topK {
		return hits[:topK]
	}
	return hits
}

// reciprocalRankFusion merges rankings (each a permutation of candidate
// indices, best first) with score sum 1/(k+rank+1). The result is invariant
// under permutation of the input rankings: ties break by candidate index.
func reciprocalRankFusion(rankings [][]int, k int) []int {
	scores := make(map[int]float64)
	for _, ranking := range rankings {
		for rank, idx := range ranking {
			scores[idx] += 1.0 / float64(k+rank+1)
		}
	}

	order := make([]int, 0, len(scores))
	for idx := range scores {
		order = append(order, idx)
	}
	sort.Slice(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return order[a] < order[b]
	})
	return order
}

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25Order ranks documents (tokenized) against query tokens with
// BM25-Okapi and returns document indices best-first. Ties break by index
// so the ordering is deterministic.
func bm25Order(queryTokens []string, docs [][]string) []int {
	n := len(docs)
	df := make(map[string]int)
	totalLen := 0
	freqs := make([]map[string]int, n)
	for i, doc := range docs {
		freq := make(map[string]int, len(doc))
		for _, tok := range doc {
			freq[tok]++
		}
		freqs[i] = freq
		totalLen += len(doc)
		for tok := range freq {
			df[tok]++
		}
	}
	avgLen := 1.0
	if n > 0 && totalLen > 0 {
		avgLen = float64(totalLen) / float64(n)
	}

	scores := make([]float64, n)
	for _, tok := range queryTokens {
		d := df[tok]
		if d == 0 {
			continue
		}
		idf := math.Log(1.0 + (float64(n)-float64(d)+0.5)/(float64(d)+0.5))
		for i := range docs {
			f := float64(freqs[i][tok])
			if f == 0 {
				continue
			}
			norm := bm25K1 * (1.0 - bm25B + bm25B*float64(len(docs[i]))/avgLen)
			scores[i] += idf * (f * (bm25K1 + 1.0)) / (f + norm)
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}

// tokenList keeps duplicates: BM25 term frequency needs the full sequence.
func tokenList(text string) []string {
	var out []string
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopTokens[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}
