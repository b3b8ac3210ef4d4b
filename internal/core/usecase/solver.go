package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/msanchezp/lexrag/internal/core/domain"
	"github.com/msanchezp/lexrag/internal/core/ports"
)

// Confidence floors per cascade strategy. A strategy that wins reports
// max(floor, rerank score): earlier strategies can only report equal or
// higher confidence than later ones.
const (
	floorOptionRef    = 0.84
	floorStatementRef = 0.82
	floorShortlist    = 0.72
	floorPDFLaw       = 0.62
	floorPDFTopics    = 0.55
	floorGenerated    = 0.40
)

// SolverConfig is the static solver configuration.
type SolverConfig struct {
	StrictCitation  bool
	Guard           LawGuard
	Quote           QuoteConfig
	OverlapMinRatio float64 // min share of option content words the quote must cover
	ShortlistSize   int
	PerLawHits      int
	ShortlistCap    int
	PDFLimit        int
}

// DefaultSolverConfig returns production cascade settings.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Quote:           DefaultQuoteConfig(),
		Guard:           LawGuard{Enabled: true, FallbackBest: true},
		OverlapMinRatio: 0.08,
		ShortlistSize:   5,
		PerLawHits:      8,
		ShortlistCap:    12,
		PDFLimit:        8,
	}
}

func (c SolverConfig) normalize() SolverConfig {
	if c.OverlapMinRatio <= 0 {
		c.OverlapMinRatio = 0.08
	}
	if c.ShortlistSize <= 0 {
		c.ShortlistSize = 5
	}
	if c.PerLawHits <= 0 {
		c.PerLawHits = 8
	}
	if c.ShortlistCap <= 0 {
		c.ShortlistCap = 12
	}
	if c.PDFLimit <= 0 {
		c.PDFLimit = 8
	}
	if c.Quote.MinLenShort == 0 {
		c.Quote = DefaultQuoteConfig()
	}
	return c
}

// SolveOptions are the per-call knobs the anti-bias selector relaxes on its
// permissive retry. They are an explicit value: a retry never mutates the
// solver, only passes different options.
type SolveOptions struct {
	Guard LawGuard
	Quote QuoteConfig
}

// Relaxed returns the permissive variant: guard off, short quote minimum
// everywhere.
func (o SolveOptions) Relaxed() SolveOptions {
	return SolveOptions{
		Guard: LawGuard{Enabled: false, FallbackBest: o.Guard.FallbackBest},
		Quote: o.Quote.Relaxed(),
	}
}

// SolverObserver receives per-solve telemetry.
type SolverObserver interface {
	ObserveSolve(strategy, outcome string, duration time.Duration)
}

// Solver answers one option of a question with the retrieval cascade:
// exact reference in the option, exact reference in the statement,
// shortlisted semantic search, per-law PDF fallback, topics PDF pool and
// finally (outside strict mode) ungrounded generation.
type Solver struct {
	index     *LawIndex
	retriever *Retriever
	reranker  ports.Reranker
	generator ports.Generator
	cfg       SolverConfig
	observer  SolverObserver
	log       *slog.Logger
}

func NewSolver(index *LawIndex, retriever *Retriever, reranker ports.Reranker, generator ports.Generator, cfg SolverConfig, observer SolverObserver, log *slog.Logger) *Solver {
	if log == nil {
		log = slog.Default()
	}
	return &Solver{
		index:     index,
		retriever: retriever,
		reranker:  reranker,
		generator: generator,
		cfg:       cfg.normalize(),
		observer:  observer,
		log:       log,
	}
}

// Options returns the solver's default per-call options.
func (s *Solver) Options() SolveOptions {
	return SolveOptions{Guard: s.cfg.Guard, Quote: s.cfg.Quote}
}

// Solve implements ports.QuestionSolver.
func (s *Solver) Solve(ctx context.Context, statement, option string, mode domain.Mode) (*domain.SolverResult, error) {
	return s.SolveWithOptions(ctx, statement, option, mode, s.Options())
}

// SolveWithOptions runs the cascade with explicit per-call options.
func (s *Solver) SolveWithOptions(ctx context.Context, statement, option string, mode domain.Mode, opts SolveOptions) (*domain.SolverResult, error) {
	start := time.Now()
	res, strategy, err := s.solve(ctx, statement, option, mode, opts)
	if s.observer != nil {
		outcome := "answered"
		if err != nil {
			outcome = "error"
		}
		s.observer.ObserveSolve(strategy, outcome, time.Since(start))
	}
	return res, err
}

func (s *Solver) solve(ctx context.Context, statement, option string, mode domain.Mode, opts SolveOptions) (*domain.SolverResult, string, error) {
	laws, err := s.index.Laws(ctx)
	if err != nil {
		return nil, "none", err
	}
	detector := NewRefDetector(laws)

	refOption := detector.Detect(option)
	refStatement := detector.Detect(statement)
	expectedLaw := refOption.LawID
	if expectedLaw == "" {
		expectedLaw = refStatement.LawID
	}
	query := strings.TrimSpace(statement + " " + option)

	// Strategy 1: exact reference inside the option text.
	if refOption.HasPiece() && expectedLaw != "" {
		hits, err := s.retriever.ByReference(ctx, expectedLaw, refOption, 3)
		if err != nil {
			s.log.Warn("reference_lookup_failed", "law", expectedLaw, "error", err)
		}
		res, err := s.finishStrategy(ctx, "option_ref", floorOptionRef, hits, statement, option, expectedLaw, mode, opts)
		if res != nil || err != nil {
			return res, "option_ref", err
		}
	}

	// Strategy 2: exact reference inside the statement. The law may be
	// named in either the statement or the option.
	if refStatement.HasPiece() && expectedLaw != "" {
		hits, err := s.retriever.ByReference(ctx, expectedLaw, refStatement, 3)
		if err != nil {
			s.log.Warn("reference_lookup_failed", "law", expectedLaw, "error", err)
		}
		res, err := s.finishStrategy(ctx, "statement_ref", floorStatementRef, hits, statement, option, expectedLaw, mode, opts)
		if res != nil || err != nil {
			return res, "statement_ref", err
		}
	}

	// Strategy 3: semantic search over the shortlisted laws.
	shortlist, err := s.index.Shortlist(ctx, query, s.cfg.ShortlistSize)
	if err != nil {
		return nil, "shortlist", err
	}
	shortlist = frontload(shortlist, expectedLaw)
	hits, err := s.retriever.InLaws(ctx, query, shortlist, s.cfg.PerLawHits)
	if err != nil {
		return nil, "shortlist", err
	}
	if len(hits) > s.cfg.ShortlistCap {
		hits = hits[:s.cfg.ShortlistCap]
	}
	lawHint := expectedLaw
	if lawHint == "" && len(hits) > 0 {
		lawHint = hits[0].Payload.LawID
	}
	res, err := s.finishStrategy(ctx, "shortlist", floorShortlist, hits, statement, option, expectedLaw, mode, opts)
	if res != nil || err != nil {
		return res, "shortlist", err
	}

	// Strategy 4: per-law PDF fallback.
	if lawHint != "" {
		hits, err := s.retriever.PDFLaw(ctx, lawHint, query, s.cfg.PDFLimit)
		if err != nil {
			return nil, "pdf_law", err
		}
		res, err := s.finishStrategy(ctx, "pdf_law", floorPDFLaw, hits, statement, option, expectedLaw, mode, opts)
		if res != nil || err != nil {
			return res, "pdf_law", err
		}
	}

	// Strategy 5: shared topics pool.
	hits, err = s.retriever.PDFTopics(ctx, query, s.cfg.PDFLimit)
	if err != nil {
		return nil, "pdf_topics", err
	}
	res, err = s.finishStrategy(ctx, "pdf_topics", floorPDFTopics, hits, statement, option, "", mode, opts)
	if res != nil || err != nil {
		return res, "pdf_topics", err
	}

	// Strategy 6: ungrounded generation, never in strict mode.
	if !s.cfg.StrictCitation && s.generator != nil {
		if res := s.generateFallback(ctx, statement, option, mode); res != nil {
			return res, "generated", nil
		}
	}

	return nil, "none", domain.WrapError(domain.ErrNoEvidence, "solve", errors.New("cascade exhausted"))
}

// finishStrategy turns retrieved hits into a result. It returns (nil, nil)
// when the cascade should continue with the next strategy. In strict mode a
// strategy that retrieved candidates but verified no quote aborts with
// ErrCitationNotFound instead of silently degrading.
func (s *Solver) finishStrategy(ctx context.Context, strategy string, floor float64, hits []domain.Hit, statement, option, expectedLaw string, mode domain.Mode, opts SolveOptions) (*domain.SolverResult, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	quote, payload, score, span := s.pickAndQuote(ctx, hits, statement, option, expectedLaw, mode, opts)
	if quote == "" {
		if s.cfg.StrictCitation {
			return nil, domain.WrapError(domain.ErrCitationNotFound, strategy,
				fmt.Errorf("%d candidates, none verified", len(hits)))
		}
		return nil, nil
	}

	confidence := floor
	if score > confidence {
		confidence = score
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	lawName := payload.LawName
	if name := s.index.LawName(ctx, payload.LawID); name != "" {
		lawName = name
	}

	return &domain.SolverResult{
		Justification: buildJustification(mode, quote, payload, lawName),
		Confidence:    confidence,
		Source:        domain.Source{Type: sourceTypeFor(*payload), Payload: payload},
		HasQuote:      true,
		Span:          span,
		LawID:         payload.LawID,
		LawName:       lawName,
		Mode:          mode,
	}, nil
}

// pickAndQuote walks the reranked candidates inside the mode's inspection
// window and returns the first verifiable quote. When nothing verifies, the
// guard's fallback pick is returned without a quote (attribution only).
func (s *Solver) pickAndQuote(ctx context.Context, hits []domain.Hit, statement, option, expectedLaw string, mode domain.Mode, opts SolveOptions) (string, *domain.Payload, float64, *domain.Span) {
	var texts []string
	var payloads []domain.Payload
	var lawIDs []string
	for _, hit := range hits {
		text := s.retriever.PayloadText(ctx, hit.Payload)
		if strings.TrimSpace(text) == "" {
			continue
		}
		texts = append(texts, text)
		payloads = append(payloads, hit.Payload)
		lawIDs = append(lawIDs, hit.Payload.LawID)
	}
	if len(texts) == 0 {
		return "", nil, 0, nil
	}

	query := strings.TrimSpace(statement + " " + option)
	// In incorrecta mode the quote states what the norm actually says, so
	// extraction follows the question alone and keeps the short minimum;
	// mixing in the (false) option text would steer it toward the error.
	quoteQuery := query
	quoteCfg := opts.Quote
	if mode == domain.ModeIncorrect {
		quoteQuery = strings.TrimSpace(statement)
		quoteCfg = quoteCfg.Relaxed()
	}
	order := rankCandidates(ctx, s.reranker, s.log, query, texts)

	window := 6
	if mode == domain.ModeIncorrect {
		window = 8
	}
	if window > len(order) {
		window = len(order)
	}

	for _, cand := range order[:window] {
		if !opts.Guard.Allows(expectedLaw, lawIDs[cand.index]) {
			continue
		}
		quote := findBestQuote(texts[cand.index], quoteQuery, quoteCfg)
		if quote == "" {
			continue
		}
		if mode == domain.ModeCorrect && !optionOverlapSupport(quote, option, s.cfg.OverlapMinRatio) {
			continue
		}
		span := findSpanExact(texts[cand.index], quote)
		return quote, &payloads[cand.index], cand.score, span
	}

	if idx, usable := opts.Guard.Fallback(order, lawIDs, expectedLaw); idx >= 0 && usable {
		return "", &payloads[idx], 0, nil
	}
	return "", nil, 0, nil
}

func (s *Solver) generateFallback(ctx context.Context, statement, option string, mode domain.Mode) *domain.SolverResult {
	instruction := "Explica brevemente por qué la opción es correcta."
	if mode == domain.ModeIncorrect {
		instruction = "Explica brevemente por qué la opción es incorrecta."
	}
	prompt := fmt.Sprintf("Pregunta: %s\nOpción: %s\n%s", statement, option, instruction)

	answer, err := s.generator.Generate(ctx, fallbackSystemPrompt, prompt, ports.GenerateOptions{
		Temperature: 0.2,
		TopP:        0.9,
		MaxTokens:   256,
	})
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			s.log.Warn("fallback_generation_failed", "error", err)
		}
		return nil
	}

	return &domain.SolverResult{
		Justification: strings.TrimSpace(answer),
		Confidence:    floorGenerated,
		Source:        domain.Source{Type: domain.SourceTypeNone},
		HasQuote:      false,
		Mode:          mode,
	}
}

const fallbackSystemPrompt = "Eres un asistente jurídico español. Responde de forma breve y precisa, sin inventar citas literales."

func sourceTypeFor(p domain.Payload) domain.SourceType {
	switch {
	case p.Kind == domain.SourceArticle:
		return domain.SourceTypeArticle
	case p.LawID != "":
		return domain.SourceTypePDFLaw
	default:
		return domain.SourceTypePDFTopics
	}
}

func buildJustification(mode domain.Mode, quote string, p *domain.Payload, lawName string) string {
	ref := formatReference(p, lawName)
	if mode == domain.ModeIncorrect {
		return fmt.Sprintf("La opción contradice lo dispuesto en la norma: «%s» %s", quote, ref)
	}
	return fmt.Sprintf("«%s» %s", quote, ref)
}

func formatReference(p *domain.Payload, lawName string) string {
	where := lawName
	if where == "" {
		where = p.LawID
	}
	piece := ""
	if p.Article != nil {
		piece = pieceLabel(p.Article)
	}
	switch {
	case piece != "" && where != "":
		return fmt.Sprintf("(%s, %s)", piece, where)
	case piece != "":
		return fmt.Sprintf("(%s)", piece)
	case where != "":
		return fmt.Sprintf("(%s)", where)
	default:
		return "(fuente documental)"
	}
}

func pieceLabel(a *domain.ArticlePayload) string {
	var name string
	switch a.PieceKind {
	case domain.PieceArticle:
		name = "Artículo"
	case domain.PieceProvisionAdditional:
		name = "Disposición adicional"
	case domain.PieceProvisionTransitory:
		name = "Disposición transitoria"
	case domain.PieceProvisionFinal:
		name = "Disposición final"
	case domain.PieceProvisionDerogatory:
		name = "Disposición derogatoria"
	case domain.PieceAnnex:
		name = "Anexo"
	case domain.PieceTitle:
		name = "Título"
	case domain.PieceChapter:
		name = "Capítulo"
	case domain.PieceSection:
		name = "Sección"
	case domain.PiecePreamble:
		name = "Preámbulo"
	case domain.PieceExpositionOfMotives:
		name = "Exposición de motivos"
	default:
		return ""
	}
	if a.Ordinal != "" {
		return name + " única"
	}
	if a.Number != nil {
		s := fmt.Sprintf("%s %d", name, *a.Number)
		if a.Suffix != "" {
			s += " " + a.Suffix
		}
		return s
	}
	return name
}

// frontload moves id to the head of ids, inserting it when absent. An empty
// id leaves the slice untouched.
func frontload(ids []string, id string) []string {
	if id == "" {
		return ids
	}
	out := []string{id}
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
