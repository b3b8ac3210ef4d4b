package ports

import (
	"context"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

// QuestionSolver runs the retrieval cascade for a single option.
type QuestionSolver interface {
	Solve(ctx context.Context, statement, option string, mode domain.Mode) (*domain.SolverResult, error)
}

// OptionSelector decides a full question: which option wins and with what
// supporting evidence.
type OptionSelector interface {
	Select(ctx context.Context, q domain.Question) (*domain.Selection, error)
}

// CorpusIngestor rebuilds the vector collections from the corpus on disk.
// Ingest returns the version tag of the run.
type CorpusIngestor interface {
	Ingest(ctx context.Context, scope domain.IngestScope) (string, error)
	GCVersions(ctx context.Context, keep int) error
}
