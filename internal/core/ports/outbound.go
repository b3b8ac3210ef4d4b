package ports

import (
	"context"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

// SearchFilter is an exact-match payload filter. Keys use dot notation for
// nested payload fields ("article.piece_kind").
type SearchFilter struct {
	Match map[string]any
}

// Point is one vector plus payload bound for the store. ID is a stable
// logical identifier; the store derives its physical point id from it
// deterministically.
type Point struct {
	ID      string
	Vector  []float32
	Payload domain.Payload
}

// VectorStore is the retrieval and collection-management surface of the
// vector database. Search and ScrollByFilter address logical collection
// names (aliases); the remaining methods manage physical collections and
// the alias indirection used for versioned ingestion.
type VectorStore interface {
	Search(ctx context.Context, collection string, vector []float32, limit int, filter SearchFilter) ([]domain.Hit, error)
	ScrollByFilter(ctx context.Context, collection string, filter SearchFilter, limit int) ([]domain.Hit, error)
	Upsert(ctx context.Context, collection string, points []Point) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, vectorSize int) error
	SwapAlias(ctx context.Context, alias, collection string) error
	ListCollections(ctx context.Context) ([]string, error)
	ListAliases(ctx context.Context) (map[string]string, error)
	DeleteCollection(ctx context.Context, name string) error
}

// Embedder produces unit-norm embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Reranker scores (query, candidate) pairs with a cross-encoder. Scores are
// returned in candidate input order.
type Reranker interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// GenerateOptions are the sampling knobs for a fallback generation call.
type GenerateOptions struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Generator is the last-resort LLM used when no grounded evidence exists.
type Generator interface {
	Generate(ctx context.Context, system, prompt string, opts GenerateOptions) (string, error)
}

// TextSource reads the full text behind an article payload's source path.
type TextSource interface {
	ReadText(ctx context.Context, path string) (string, error)
}

// CatalogLoader loads the ordered law catalog. Order matters: shortlist
// ties break by catalog enumeration order.
type CatalogLoader interface {
	Load(ctx context.Context) ([]domain.Law, error)
}

// ArticleDocument is one article file prepared for ingestion.
type ArticleDocument struct {
	ID      string
	Text    string
	Payload domain.Payload
	RelPath string
	Hash    string
}

// PDFDocument is one extracted PDF prepared for ingestion, already
// classified as belonging to a law or to the generic topics pool.
type PDFDocument struct {
	LawID   string // "" means topics pool
	Text    string
	Path    string
	RelPath string
	Hash    string
}

// CorpusSource loads raw corpus material from disk.
type CorpusSource interface {
	LoadLawArticles(ctx context.Context, law domain.Law) ([]ArticleDocument, error)
	LoadPDFs(ctx context.Context, laws []domain.Law) ([]PDFDocument, error)
}

// Chunker splits long text into overlapping retrieval chunks.
type Chunker interface {
	Split(text string) []string
}

// ManifestStore persists the ingestion manifest and snapshots corpus
// directories for change detection.
type ManifestStore interface {
	Load(ctx context.Context) (domain.Manifest, error)
	Save(ctx context.Context, m domain.Manifest) error
	SnapshotArticles(lawID string) (map[string]string, error)
	SnapshotPDFs() (map[string]string, error)
}

// ReindexQueue transports ingestion requests between the API and the
// ingest worker.
type ReindexQueue interface {
	PublishReindex(ctx context.Context, scope domain.IngestScope) error
	SubscribeReindex(ctx context.Context, handler func(context.Context, domain.IngestScope) error) error
}

// ResultStore optionally persists emitted result records.
type ResultStore interface {
	SaveResult(ctx context.Context, rec *domain.ResultRecord) error
}
