package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/msanchezp/lexrag/internal/core/ports"
)

// rankedCandidate pairs a candidate index with its cross-encoder score.
type rankedCandidate struct {
	index int
	score float64
}

// rankCandidates orders candidate texts best-first using the cross-encoder.
// An unavailable or failing reranker degrades to the incoming (dense) order
// with zero scores; it never fails the request. Empty input short-circuits
// without a remote call.
func rankCandidates(ctx context.Context, rr ports.Reranker, log *slog.Logger, query string, texts []string) []rankedCandidate {
	if len(texts) == 0 {
		return nil
	}

	identity := make([]rankedCandidate, len(texts))
	for i := range texts {
		identity[i] = rankedCandidate{index: i}
	}
	if rr == nil {
		return identity
	}

	scores, err := rr.Score(ctx, query, texts)
	if err != nil || len(scores) != len(texts) {
		if log != nil {
			log.Warn("rerank_degraded_to_dense_order", "candidates", len(texts), "error", err)
		}
		return identity
	}

	order := make([]rankedCandidate, len(texts))
	for i := range texts {
		order[i] = rankedCandidate{index: i, score: scores[i]}
	}
	sort.SliceStable(order, func(a, b int) bool { return order[a].score > order[b].score })
	return order
}
