package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/msanchezp/lexrag/internal/core/domain"
	"github.com/msanchezp/lexrag/internal/core/ports"
)

// IngestObserver receives per-unit and per-run ingestion telemetry.
type IngestObserver interface {
	ObserveIngestUnit(unit, outcome string, duration time.Duration)
	ObserveIngestRun(outcome string, duration time.Duration)
}

// IngestorConfig tunes the ingestion pipeline.
type IngestorConfig struct {
	EmbedBatchSize int
	KeepVersions   int
}

func (c IngestorConfig) normalize() IngestorConfig {
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = 32
	}
	if c.KeepVersions < 1 {
		c.KeepVersions = 2
	}
	return c
}

// Ingestor rebuilds vector collections from the corpus. Every run writes
// new physical collections tagged with a strictly increasing version and
// atomically repoints the logical aliases; readers keep hitting the old
// version until the swap. A unit (one law's articles, or the PDF pool)
// that fails keeps its previous manifest entry so the next run retries it.
//
// Runs are serialized by an internal mutex; cross-process serialization
// comes from the single queue-group reindex worker.
type Ingestor struct {
	store    ports.VectorStore
	embedder ports.Embedder
	catalog  ports.CatalogLoader
	corpus   ports.CorpusSource
	chunker  ports.Chunker
	state    ports.ManifestStore
	cfg      IngestorConfig
	observer IngestObserver
	clock    func() time.Time
	log      *slog.Logger

	mu      sync.Mutex
	lastTag string
	seq     int
}

func NewIngestor(
	store ports.VectorStore,
	embedder ports.Embedder,
	catalog ports.CatalogLoader,
	corpus ports.CorpusSource,
	chunker ports.Chunker,
	state ports.ManifestStore,
	cfg IngestorConfig,
	observer IngestObserver,
	log *slog.Logger,
) *Ingestor {
	if log == nil {
		log = slog.Default()
	}
	return &Ingestor{
		store:    store,
		embedder: embedder,
		catalog:  catalog,
		corpus:   corpus,
		chunker:  chunker,
		state:    state,
		cfg:      cfg.normalize(),
		observer: observer,
		clock:    time.Now,
		log:      log,
	}
}

// SetClock overrides the version-tag clock. Test hook.
func (i *Ingestor) SetClock(clock func() time.Time) { i.clock = clock }

// Ingest implements ports.CorpusIngestor.
func (i *Ingestor) Ingest(ctx context.Context, scope domain.IngestScope) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	start := i.clock()
	version, err := i.ingest(ctx, scope)
	if i.observer != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		i.observer.ObserveIngestRun(outcome, i.clock().Sub(start))
	}
	return version, err
}

func (i *Ingestor) ingest(ctx context.Context, scope domain.IngestScope) (string, error) {
	laws, err := i.catalog.Load(ctx)
	if err != nil {
		return "", err
	}

	previous, err := i.state.Load(ctx)
	if err != nil {
		i.log.Warn("manifest_load_failed", "error", err)
		previous = domain.NewManifest()
	}

	version := i.nextVersionTag()
	next := domain.NewManifest()
	var failedUnits []string

	include := make(map[string]bool, len(scope.LawIDs))
	for _, id := range scope.LawIDs {
		include[id] = true
	}

	for _, law := range laws {
		if len(include) > 0 && !include[law.ID] {
			if prev, ok := previous.Articles[law.ID]; ok {
				next.Articles[law.ID] = prev
			}
			continue
		}

		snap, err := i.state.SnapshotArticles(law.ID)
		if err != nil {
			i.log.Error("article_snapshot_failed", "law", law.ID, "error", err)
			i.carryForwardLaw(previous, next, law.ID)
			failedUnits = append(failedUnits, law.ID)
			continue
		}
		if !scope.Force && maps.Equal(previous.Articles[law.ID], snap) {
			i.log.Debug("law_unchanged", "law", law.ID)
			next.Articles[law.ID] = snap
			continue
		}

		unitStart := i.clock()
		err = i.ingestLawArticles(ctx, law, version)
		if i.observer != nil {
			outcome := "success"
			if err != nil {
				outcome = "error"
			}
			i.observer.ObserveIngestUnit(law.ID, outcome, i.clock().Sub(unitStart))
		}
		if err != nil {
			i.log.Error("law_ingest_failed", "law", law.ID, "error", err)
			i.carryForwardLaw(previous, next, law.ID)
			failedUnits = append(failedUnits, law.ID)
			continue
		}
		next.Articles[law.ID] = snap
		i.log.Info("law_ingested", "law", law.ID, "version", version, "files", len(snap))
	}

	if scope.SkipPDFs {
		next.PDFs = previous.PDFs
	} else {
		next.PDFs = i.ingestPDFUnit(ctx, scope, laws, previous, version, &failedUnits)
	}

	if err := i.state.Save(ctx, next); err != nil {
		return version, fmt.Errorf("save manifest: %w", err)
	}
	if len(failedUnits) > 0 {
		i.log.Warn("ingest_completed_with_failures", "version", version, "failed_units", failedUnits)
	}
	return version, nil
}

func (i *Ingestor) carryForwardLaw(previous, next domain.Manifest, lawID string) {
	if prev, ok := previous.Articles[lawID]; ok {
		next.Articles[lawID] = prev
	}
}

func (i *Ingestor) ingestPDFUnit(ctx context.Context, scope domain.IngestScope, laws []domain.Law, previous domain.Manifest, version string, failedUnits *[]string) map[string]string {
	snap, err := i.state.SnapshotPDFs()
	if err != nil {
		i.log.Error("pdf_snapshot_failed", "error", err)
		*failedUnits = append(*failedUnits, "pdfs")
		return previous.PDFs
	}
	if !scope.Force && maps.Equal(previous.PDFs, snap) {
		i.log.Debug("pdfs_unchanged")
		return snap
	}

	unitStart := i.clock()
	err = i.ingestPDFs(ctx, laws, version)
	if i.observer != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		i.observer.ObserveIngestUnit("pdfs", outcome, i.clock().Sub(unitStart))
	}
	if err != nil {
		i.log.Error("pdf_ingest_failed", "error", err)
		*failedUnits = append(*failedUnits, "pdfs")
		return previous.PDFs
	}
	return snap
}

func (i *Ingestor) ingestLawArticles(ctx context.Context, law domain.Law, version string) error {
	docs, err := i.corpus.LoadLawArticles(ctx, law)
	if err != nil {
		return fmt.Errorf("load articles: %w", err)
	}
	if len(docs) == 0 {
		return errors.New("no article files")
	}

	points := make([]ports.Point, 0, len(docs))
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		payload := doc.Payload
		payload.VersionTag = version
		points = append(points, ports.Point{ID: doc.ID, Payload: payload})
		texts = append(texts, doc.Text)
	}
	if err := i.embedInto(ctx, texts, points); err != nil {
		return err
	}

	return i.publishVersion(ctx, articlesAlias(law.ID), version, points)
}

func (i *Ingestor) ingestPDFs(ctx context.Context, laws []domain.Law, version string) error {
	docs, err := i.corpus.LoadPDFs(ctx, laws)
	if err != nil {
		return fmt.Errorf("load pdfs: %w", err)
	}

	nameByID := make(map[string]string, len(laws))
	for _, law := range laws {
		nameByID[law.ID] = law.Name
	}

	byAlias := make(map[string][]ports.Point)
	textsByAlias := make(map[string][]string)
	for _, doc := range docs {
		alias := pdfTopicsAlias
		if doc.LawID != "" {
			alias = pdfLawAlias(doc.LawID)
		}
		for idx, chunk := range i.chunker.Split(doc.Text) {
			payload := domain.Payload{
				Kind:        domain.SourcePDF,
				LawID:       doc.LawID,
				LawName:     nameByID[doc.LawID],
				SourcePath:  doc.Path,
				ContentHash: doc.Hash,
				VersionTag:  version,
				PDF:         &domain.PDFPayload{Position: idx, Text: chunk},
			}
			byAlias[alias] = append(byAlias[alias], ports.Point{
				ID:      fmt.Sprintf("%s|%d", doc.RelPath, idx),
				Payload: payload,
			})
			textsByAlias[alias] = append(textsByAlias[alias], chunk)
		}
	}
	if len(byAlias) == 0 {
		i.log.Info("no_pdfs_found")
		return nil
	}

	aliases := make([]string, 0, len(byAlias))
	for alias := range byAlias {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		points := byAlias[alias]
		if err := i.embedInto(ctx, textsByAlias[alias], points); err != nil {
			return fmt.Errorf("%s: %w", alias, err)
		}
		if err := i.publishVersion(ctx, alias, version, points); err != nil {
			return fmt.Errorf("%s: %w", alias, err)
		}
	}
	return nil
}

func (i *Ingestor) embedInto(ctx context.Context, texts []string, points []ports.Point) error {
	for start := 0; start < len(texts); start += i.cfg.EmbedBatchSize {
		end := start + i.cfg.EmbedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := i.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return domain.WrapError(domain.ErrUpstreamUnavailable, "embed batch", err)
		}
		for j, vec := range vecs {
			points[start+j].Vector = vec
		}
	}
	return nil
}

// publishVersion creates the physical collection for this version, fills
// it, and repoints the alias. The alias swap is the only step readers see.
func (i *Ingestor) publishVersion(ctx context.Context, alias, version string, points []ports.Point) error {
	if len(points) == 0 || len(points[0].Vector) == 0 {
		return errors.New("no vectors to publish")
	}
	physical := alias + "__" + version

	exists, err := i.store.CollectionExists(ctx, physical)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		if err := i.store.CreateCollection(ctx, physical, len(points[0].Vector)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	if err := i.store.Upsert(ctx, physical, points); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	if err := i.store.SwapAlias(ctx, alias, physical); err != nil {
		return fmt.Errorf("swap alias: %w", err)
	}
	return nil
}

// GCVersions deletes old physical collections, keeping the newest `keep`
// versions per base name and never the current alias target.
func (i *Ingestor) GCVersions(ctx context.Context, keep int) error {
	if keep < 1 {
		keep = 1
	}

	names, err := i.store.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	aliases, err := i.store.ListAliases(ctx)
	if err != nil {
		return fmt.Errorf("list aliases: %w", err)
	}
	protected := make(map[string]bool, len(aliases))
	for _, target := range aliases {
		protected[target] = true
	}

	byBase := make(map[string][]string)
	for _, name := range names {
		idx := strings.LastIndex(name, "__v_")
		if idx < 0 {
			continue
		}
		base := name[:idx]
		byBase[base] = append(byBase[base], name)
	}

	for base, versions := range byBase {
		sort.Sort(sort.Reverse(sort.StringSlice(versions)))
		for pos, name := range versions {
			if pos < keep || protected[name] {
				continue
			}
			if err := i.store.DeleteCollection(ctx, name); err != nil {
				i.log.Warn("version_gc_failed", "collection", name, "error", err)
				continue
			}
			i.log.Info("version_deleted", "base", base, "collection", name)
		}
	}
	return nil
}

// nextVersionTag returns a version tag strictly greater than any tag this
// ingestor produced before, even within the same clock second.
func (i *Ingestor) nextVersionTag() string {
	tag := "v_" + i.clock().UTC().Format("20060102_150405")
	if tag <= i.lastTag {
		i.seq++
		tag = fmt.Sprintf("%s_%d", tag, i.seq)
	} else {
		i.seq = 0
	}
	i.lastTag = tag
	return tag
}
