package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

const parsableQuestion = `¿Qué plazo establece la norma?

A) Diez días.
B) Un mes.
C) Tres meses.
D) Un año.

Correcta: B
`

type fakeSelector struct {
	letter string
	result *domain.SolverResult
	err    error
	mu     sync.Mutex
	calls  int
}

func (f *fakeSelector) Select(_ context.Context, q domain.Question) (*domain.Selection, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Selection{Letter: f.letter, Result: f.result}, nil
}

type fakeSolver struct {
	result *domain.SolverResult
	err    error
}

func (f *fakeSolver) Solve(context.Context, string, string, domain.Mode) (*domain.SolverResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type recordingResultStore struct {
	mu   sync.Mutex
	recs []*domain.ResultRecord
	err  error
}

func (s *recordingResultStore) SaveResult(_ context.Context, rec *domain.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, rec)
	return nil
}

func groundedResult() *domain.SolverResult {
	return &domain.SolverResult{
		Justification: "«Un mes desde la notificación.» (Artículo 12, Ley 3/2018)",
		Confidence:    0.9,
		Source:        domain.Source{Type: domain.SourceTypeArticle},
		HasQuote:      true,
		Span:          &domain.Span{Start: 10, End: 40},
		LawID:         "lo.3-2018",
		LawName:       "Ley Orgánica 3/2018",
		Mode:          domain.ModeCorrect,
	}
}

func writeQuestion(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunAnswersQuestionsAndWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	writeQuestion(t, dir, "q1.txt", parsableQuestion)
	writeQuestion(t, dir, "q2.txt", parsableQuestion)

	store := &recordingResultStore{}
	sel := &fakeSelector{letter: "B", result: groundedResult()}
	runner := NewRunner(sel, &fakeSolver{result: groundedResult()}, store, nil)

	out := t.TempDir()
	sum, err := runner.Run(context.Background(), Options{
		Dir:      dir,
		OutJSONL: filepath.Join(out, "resultados.jsonl"),
		OutDir:   filepath.Join(out, "respuestas"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Total != 2 || sum.Answered != 2 || sum.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	f, err := os.Open(filepath.Join(out, "resultados.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec domain.ResultRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad jsonl line: %v", err)
		}
		if rec.Chosen != "B" || !rec.HasQuote {
			t.Fatalf("unexpected record: %+v", rec)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 jsonl lines, got %d", lines)
	}

	if _, err := os.Stat(filepath.Join(out, "respuestas", "q1.respuesta.txt")); err != nil {
		t.Fatalf("answer file missing: %v", err)
	}
	if len(store.recs) != 2 {
		t.Fatalf("expected 2 persisted records, got %d", len(store.recs))
	}
}

func TestRunQuarantinesUnparsableFiles(t *testing.T) {
	dir := t.TempDir()
	writeQuestion(t, dir, "good.txt", parsableQuestion)
	writeQuestion(t, dir, "bad.txt", "solo un enunciado sin opciones")

	sel := &fakeSelector{letter: "B", result: groundedResult()}
	runner := NewRunner(sel, &fakeSolver{result: groundedResult()}, nil, nil)

	sum, err := runner.Run(context.Background(), Options{Dir: dir, Quarantine: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 1 || sum.Answered != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.Failures[0].Reason != "invalid_format" {
		t.Fatalf("unexpected failure reason: %+v", sum.Failures)
	}
	if _, err := os.Stat(filepath.Join(dir, quarantineDir, "bad.txt")); err != nil {
		t.Fatalf("quarantined file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.txt")); !os.IsNotExist(err) {
		t.Fatal("original unparsable file should be gone")
	}
}

func TestRunSkipsQuarantineDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, quarantineDir), 0o755); err != nil {
		t.Fatal(err)
	}
	writeQuestion(t, filepath.Join(dir, quarantineDir), "old.txt", parsableQuestion)
	writeQuestion(t, dir, "q1.txt", parsableQuestion)

	sel := &fakeSelector{letter: "B", result: groundedResult()}
	runner := NewRunner(sel, &fakeSolver{result: groundedResult()}, nil, nil)

	sum, err := runner.Run(context.Background(), Options{Dir: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Total != 1 {
		t.Fatalf("quarantined files must be skipped, got total %d", sum.Total)
	}
}

func TestRunValidateFlagsDisagreementAndLowConfidence(t *testing.T) {
	dir := t.TempDir()
	writeQuestion(t, dir, "q1.txt", parsableQuestion)

	weak := &domain.SolverResult{
		Justification: "Sin respaldo literal.",
		Confidence:    0.4,
		Source:        domain.Source{Type: domain.SourceTypeNone},
		Mode:          domain.ModeCorrect,
	}
	sel := &fakeSelector{letter: "C", result: weak}
	runner := NewRunner(sel, &fakeSolver{result: groundedResult()}, nil, nil)

	out := t.TempDir()
	sum, err := runner.Run(context.Background(), Options{
		Dir:           dir,
		Validate:      true,
		MinConfidence: 0.6,
		ReportDir:     out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sum.Rows) != 1 {
		t.Fatalf("expected 1 validation row, got %d", len(sum.Rows))
	}
	row := sum.Rows[0]
	if row.Agree {
		t.Fatal("gold B vs chosen C must disagree")
	}
	wantReasons := map[string]bool{"model_no_quote": true, "disagreement": true, "low_confidence": true}
	for _, reason := range row.Reasons {
		if !wantReasons[reason] {
			t.Fatalf("unexpected reason %q", reason)
		}
		delete(wantReasons, reason)
	}
	if len(wantReasons) != 0 {
		t.Fatalf("missing reasons: %v (got %v)", wantReasons, row.Reasons)
	}
	if sum.Accuracy != 0 {
		t.Fatalf("accuracy should be 0, got %f", sum.Accuracy)
	}

	for _, name := range []string{"validacion.json", "validacion.csv", "validacion.xlsx"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("report %s missing: %v", name, err)
		}
	}
}

func TestRunValidateRequiresGoldLabel(t *testing.T) {
	dir := t.TempDir()
	writeQuestion(t, dir, "nogold.txt", `¿Qué plazo establece la norma?

A) Diez días.
B) Un mes.
`)

	sel := &fakeSelector{letter: "A", result: groundedResult()}
	runner := NewRunner(sel, &fakeSolver{result: groundedResult()}, nil, nil)

	sum, err := runner.Run(context.Background(), Options{Dir: dir, Validate: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 1 || sum.Failures[0].Reason != "missing_gold" {
		t.Fatalf("expected missing_gold failure, got %+v", sum)
	}
}

func TestRunSelectorErrorIsRecordedNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeQuestion(t, dir, "q1.txt", parsableQuestion)

	sel := &fakeSelector{err: errors.New("upstream down")}
	runner := NewRunner(sel, &fakeSolver{result: groundedResult()}, nil, nil)

	sum, err := runner.Run(context.Background(), Options{Dir: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 1 || sum.Answered != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}
