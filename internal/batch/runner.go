package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/msanchezp/lexrag/internal/core/domain"
	"github.com/msanchezp/lexrag/internal/core/ports"
)

// quarantineDir is where unparsable question files are moved. The walker
// skips it so quarantined files are not picked up again.
const quarantineDir = "_unresolved"

type Options struct {
	Dir           string  // root of the question files tree
	OutJSONL      string  // results file, one record per line
	OutDir        string  // per-question answer files, "" disables
	ReportDir     string  // failure / validation reports, "" disables
	Workers       int     // defaults to 4
	Validate      bool    // audit mode: compare against the gold label
	MinConfidence float64 // validate: flag answers below this confidence
	Quarantine    bool    // move unparsable files into _unresolved
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MinConfidence <= 0 {
		o.MinConfidence = 0.6
	}
}

// Failure records a question file that could not be processed.
type Failure struct {
	File   string `json:"archivo"`
	Reason string `json:"motivo"`
}

// ValidationRow is one audited question in validate mode.
type ValidationRow struct {
	File            string   `json:"archivo"`
	Gold            string   `json:"correcta"`
	Chosen          string   `json:"opcion_elegida"`
	Agree           bool     `json:"coincide"`
	Confidence      float64  `json:"confianza"`
	LabelHasQuote   bool     `json:"cita_etiqueta"`
	ModelHasQuote   bool     `json:"cita_modelo"`
	Reasons         []string `json:"motivos,omitempty"`
	LabelEvidence   string   `json:"evidencia_etiqueta,omitempty"`
	ChosenEvidence  string   `json:"evidencia_modelo,omitempty"`
}

type Summary struct {
	Total    int       `json:"total"`
	Answered int       `json:"respondidas"`
	Failed   int       `json:"fallidas"`
	Failures []Failure `json:"fallos,omitempty"`

	// Validate mode only.
	Agreements int             `json:"coincidencias,omitempty"`
	Accuracy   float64         `json:"precision,omitempty"`
	Flagged    int             `json:"marcadas,omitempty"`
	Rows       []ValidationRow `json:"filas,omitempty"`
}

// Runner processes a directory of question files through the selector,
// writing JSONL results plus optional per-question answer files and
// failure reports. Store is optional; persistence errors are logged and do
// not fail the run.
type Runner struct {
	selector ports.OptionSelector
	solver   ports.QuestionSolver
	store    ports.ResultStore
	log      *slog.Logger
}

func NewRunner(selector ports.OptionSelector, solver ports.QuestionSolver, store ports.ResultStore, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{selector: selector, solver: solver, store: store, log: log}
}

func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	opts.normalize()

	files, err := collectQuestionFiles(opts.Dir)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Total: len(files)}
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		jobs    = make(chan string)
		jsonlMu sync.Mutex
		jsonlW  *os.File
	)

	if opts.OutJSONL != "" {
		if err := os.MkdirAll(filepath.Dir(opts.OutJSONL), 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		jsonlW, err = os.Create(opts.OutJSONL)
		if err != nil {
			return nil, fmt.Errorf("create results file: %w", err)
		}
		defer jsonlW.Close()
	}
	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("create answers dir: %w", err)
		}
	}

	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				rel, _ := filepath.Rel(opts.Dir, path)
				rec, row, failReason := r.processFile(ctx, path, rel, opts)

				mu.Lock()
				switch {
				case failReason != "":
					sum.Failed++
					sum.Failures = append(sum.Failures, Failure{File: rel, Reason: failReason})
				case row != nil:
					sum.Answered++
					sum.Rows = append(sum.Rows, *row)
					if row.Agree {
						sum.Agreements++
					}
					if len(row.Reasons) > 0 {
						sum.Flagged++
					}
				default:
					sum.Answered++
				}
				mu.Unlock()

				if failReason != "" && opts.Quarantine {
					r.quarantine(opts.Dir, path)
				}
				if rec != nil {
					if jsonlW != nil {
						line, err := json.Marshal(rec)
						if err == nil {
							jsonlMu.Lock()
							jsonlW.Write(append(line, '\n'))
							jsonlMu.Unlock()
						}
					}
					if opts.OutDir != "" {
						r.writeAnswerFile(opts.OutDir, rel, rec)
					}
					if r.store != nil {
						if err := r.store.SaveResult(ctx, rec); err != nil {
							r.log.Warn("result_persist_failed", "file", rel, "error", err)
						}
					}
				}
			}
		}()
	}

	for _, path := range files {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return sum, ctx.Err()
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()

	if opts.Validate && sum.Answered > 0 {
		sum.Accuracy = float64(sum.Agreements) / float64(sum.Answered)
	}
	sort.Slice(sum.Failures, func(i, j int) bool { return sum.Failures[i].File < sum.Failures[j].File })
	sort.Slice(sum.Rows, func(i, j int) bool { return sum.Rows[i].File < sum.Rows[j].File })

	if opts.ReportDir != "" {
		if err := writeReports(opts.ReportDir, opts.Validate, sum); err != nil {
			r.log.Warn("report_write_failed", "error", err)
		}
	}
	return sum, nil
}

// processFile answers (or audits) one question file. It returns the emitted
// record, the validation row (validate mode) and a failure reason; exactly
// one of record/failure is set.
func (r *Runner) processFile(ctx context.Context, path, rel string, opts Options) (*domain.ResultRecord, *ValidationRow, string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Sprintf("read: %v", err)
	}

	q, err := domain.ParseQuestion(string(raw))
	if err != nil {
		return nil, nil, "invalid_format"
	}
	if opts.Validate && q.Gold == "" {
		return nil, nil, "missing_gold"
	}
	if opts.Validate {
		if _, ok := q.Options[q.Gold]; !ok {
			return nil, nil, "missing_gold"
		}
	}

	sel, err := r.selector.Select(ctx, q)
	if err != nil {
		return nil, nil, fmt.Sprintf("select: %v", err)
	}

	rec := recordFromSelection(rel, q, sel)
	if !opts.Validate {
		return rec, nil, ""
	}

	labelRes, err := r.solver.Solve(ctx, q.Statement, q.Options[q.Gold], q.Mode)
	if err != nil {
		r.log.Warn("label_solve_failed", "file", rel, "error", err)
		labelRes = &domain.SolverResult{Mode: q.Mode}
	}

	row := &ValidationRow{
		File:          rel,
		Gold:          q.Gold,
		Chosen:        sel.Letter,
		Agree:         sel.Letter == q.Gold,
		Confidence:    rec.Confidence,
		LabelHasQuote: labelRes.HasQuote,
		ModelHasQuote: sel.Result != nil && sel.Result.HasQuote,
	}
	if labelRes.HasQuote {
		row.LabelEvidence = labelRes.Justification
	}
	if row.ModelHasQuote {
		row.ChosenEvidence = sel.Result.Justification
	}
	if !labelRes.HasQuote {
		row.Reasons = append(row.Reasons, "label_no_quote")
	}
	if !row.ModelHasQuote {
		row.Reasons = append(row.Reasons, "model_no_quote")
	}
	if !row.Agree {
		row.Reasons = append(row.Reasons, "disagreement")
	}
	if rec.Confidence < opts.MinConfidence {
		row.Reasons = append(row.Reasons, "low_confidence")
	}
	return rec, row, ""
}

func recordFromSelection(file string, q domain.Question, sel *domain.Selection) *domain.ResultRecord {
	rec := &domain.ResultRecord{
		File:             file,
		Chosen:           sel.Letter,
		Mode:             q.Mode,
		Votes:            sel.Votes,
		RobustConfidence: sel.RobustConfidence,
		Source:           domain.Source{Type: domain.SourceTypeNone},
	}
	if res := sel.Result; res != nil {
		rec.Justification = res.Justification
		rec.Source = res.Source
		rec.Confidence = res.Confidence
		rec.HasQuote = res.HasQuote
		rec.Span = res.Span
		rec.LawID = res.LawID
		rec.LawName = res.LawName
	}
	return rec
}

func (r *Runner) writeAnswerFile(dir, rel string, rec *domain.ResultRecord) {
	name := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)) + ".respuesta.txt"

	var b strings.Builder
	fmt.Fprintf(&b, "Archivo: %s\n", rec.File)
	fmt.Fprintf(&b, "Opción elegida: %s\n", rec.Chosen)
	fmt.Fprintf(&b, "Confianza: %.2f\n", rec.Confidence)
	if rec.LawID != "" {
		fmt.Fprintf(&b, "Norma: %s (%s)\n", rec.LawName, rec.LawID)
	}
	fmt.Fprintf(&b, "Fuente: %s\n", rec.Source.Type)
	if rec.Span != nil {
		fmt.Fprintf(&b, "Span: [%d, %d)\n", rec.Span.Start, rec.Span.End)
	}
	fmt.Fprintf(&b, "\n%s\n", rec.Justification)

	if err := os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644); err != nil {
		r.log.Warn("answer_write_failed", "file", rel, "error", err)
	}
}

func (r *Runner) quarantine(root, path string) {
	dest := filepath.Join(root, quarantineDir)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		r.log.Warn("quarantine_failed", "file", path, "error", err)
		return
	}
	if err := os.Rename(path, filepath.Join(dest, filepath.Base(path))); err != nil {
		r.log.Warn("quarantine_failed", "file", path, "error", err)
	}
}

func collectQuestionFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == quarantineDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".txt") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
