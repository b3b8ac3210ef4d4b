package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/msanchezp/lexrag/internal/core/domain"
	"github.com/msanchezp/lexrag/internal/core/ports"
)

// Logical collection names. Queries always address aliases; physical
// versioned collections live behind them.
const (
	articlesAliasPrefix = "articles__"
	pdfLawAliasPrefix   = "pdf_law__"
	pdfTopicsAlias      = "pdf_topics"
)

func articlesAlias(lawID string) string { return articlesAliasPrefix + lawID }
func pdfLawAlias(lawID string) string   { return pdfLawAliasPrefix + lawID }

// Retriever runs exact-reference lookups and semantic searches over the
// vector store. A store failure on one collection degrades to zero hits
// from that collection; an embedding failure is fatal to the request.
type Retriever struct {
	store    ports.VectorStore
	embedder ports.Embedder
	texts    ports.TextSource
	fusion   FusionConfig
	log      *slog.Logger
}

func NewRetriever(store ports.VectorStore, embedder ports.Embedder, texts ports.TextSource, fusion FusionConfig, log *slog.Logger) *Retriever {
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{store: store, embedder: embedder, texts: texts, fusion: fusion, log: log}
}

// ByReference fetches article pieces matching an exact structural
// reference. No vector math is involved: hits come back with score 1.0.
func (r *Retriever) ByReference(ctx context.Context, lawID string, ref domain.Reference, limit int) ([]domain.Hit, error) {
	if !ref.HasPiece() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	match := map[string]any{"article.piece_kind": string(ref.PieceKind)}
	if ref.Number != nil {
		match["article.number"] = *ref.Number
	}
	if ref.Suffix != "" {
		match["article.suffix"] = ref.Suffix
	}
	if ref.Ordinal != "" {
		match["article.ordinal"] = ref.Ordinal
	}

	hits, err := r.store.ScrollByFilter(ctx, articlesAlias(lawID), ports.SearchFilter{Match: match}, limit)
	if err != nil {
		return nil, fmt.Errorf("scroll %s: %w", articlesAlias(lawID), err)
	}
	for i := range hits {
		hits[i].Score = 1.0
	}
	return hits, nil
}

// InLaws searches the article collections of the given laws, merges hits by
// descending score and applies hybrid fusion.
func (r *Retriever) InLaws(ctx context.Context, query string, lawIDs []string, perLaw int) ([]domain.Hit, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstreamUnavailable, "embed retrieval query", err)
	}

	var merged []domain.Hit
	for _, lawID := range lawIDs {
		hits, err := r.store.Search(ctx, articlesAlias(lawID), vec, perLaw, ports.SearchFilter{})
		if err != nil {
			r.log.Warn("collection_search_failed", "collection", articlesAlias(lawID), "error", err)
			continue
		}
		merged = append(merged, hits...)
	}
	sort.SliceStable(merged, func(a, b int) bool { return merged[a].Score > merged[b].Score })

	texts := make([]string, len(merged))
	for i := range merged {
		texts[i] = r.PayloadText(ctx, merged[i].Payload)
	}
	return fuseHits(query, merged, texts, r.fusion), nil
}

// PDFLaw searches the per-law PDF fallback collection.
func (r *Retriever) PDFLaw(ctx context.Context, lawID, query string, limit int) ([]domain.Hit, error) {
	return r.searchOne(ctx, pdfLawAlias(lawID), query, limit)
}

// PDFTopics searches the shared topics pool.
func (r *Retriever) PDFTopics(ctx context.Context, query string, limit int) ([]domain.Hit, error) {
	return r.searchOne(ctx, pdfTopicsAlias, query, limit)
}

func (r *Retriever) searchOne(ctx context.Context, collection, query string, limit int) ([]domain.Hit, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstreamUnavailable, "embed retrieval query", err)
	}
	hits, err := r.store.Search(ctx, collection, vec, limit, ports.SearchFilter{})
	if err != nil {
		r.log.Warn("collection_search_failed", "collection", collection, "error", err)
		return nil, nil
	}
	texts := make([]string, len(hits))
	for i := range hits {
		texts[i] = r.PayloadText(ctx, hits[i].Payload)
	}
	return fuseHits(query, hits, texts, r.fusion), nil
}

// PayloadText resolves the evidence text behind a payload: inline chunk
// text for PDF payloads, the source file contents for article payloads.
// Unreadable sources yield "" and are skipped by callers.
func (r *Retriever) PayloadText(ctx context.Context, p domain.Payload) string {
	if text, ok := p.InlineText(); ok {
		return text
	}
	if p.SourcePath == "" {
		return ""
	}
	text, err := r.texts.ReadText(ctx, p.SourcePath)
	if err != nil {
		r.log.Warn("payload_text_unreadable", "path", p.SourcePath, "error", err)
		return ""
	}
	return text
}
