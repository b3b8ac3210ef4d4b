package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/msanchezp/lexrag/internal/batch"
	"github.com/msanchezp/lexrag/internal/core/domain"
)

type fakeSelector struct {
	selection *domain.Selection
	err       error
	gotQ      domain.Question
}

func (f *fakeSelector) Select(_ context.Context, q domain.Question) (*domain.Selection, error) {
	f.gotQ = q
	if f.err != nil {
		return nil, f.err
	}
	return f.selection, nil
}

type fakeLawLister struct {
	laws []domain.Law
	err  error
}

func (f *fakeLawLister) Laws(context.Context) ([]domain.Law, error) {
	return f.laws, f.err
}

type fakeReindexQueue struct {
	published []domain.IngestScope
	err       error
}

func (f *fakeReindexQueue) PublishReindex(_ context.Context, scope domain.IngestScope) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, scope)
	return nil
}

func (f *fakeReindexQueue) SubscribeReindex(ctx context.Context, _ func(context.Context, domain.IngestScope) error) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeBatchService struct {
	summary *batch.Summary
	gotOpts batch.Options
}

func (f *fakeBatchService) Run(_ context.Context, opts batch.Options) (*batch.Summary, error) {
	f.gotOpts = opts
	return f.summary, nil
}

func newTestRouter(sel *fakeSelector, queue *fakeReindexQueue, apiKey string) *Router {
	return NewRouter(
		sel,
		&fakeLawLister{laws: []domain.Law{{ID: "lo.3-2018", Name: "Ley Orgánica 3/2018"}}},
		queue,
		&fakeBatchService{summary: &batch.Summary{Total: 1, Answered: 1}},
		nil,
		apiKey,
	)
}

const askBody = `{"texto": "¿Qué plazo fija la norma?\n\nA) Diez días.\nB) Un mes.\n"}`

func TestAskReturnsSelection(t *testing.T) {
	sel := &fakeSelector{selection: &domain.Selection{Letter: "B"}}
	handler := newTestRouter(sel, &fakeReindexQueue{}, "").Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(askBody))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got domain.Selection
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Letter != "B" {
		t.Fatalf("letter = %q", got.Letter)
	}
	if sel.gotQ.Statement == "" || len(sel.gotQ.Options) != 2 {
		t.Fatalf("selector got unparsed question: %+v", sel.gotQ)
	}
}

func TestAskRejectsUnparsableQuestion(t *testing.T) {
	handler := newTestRouter(&fakeSelector{}, &fakeReindexQueue{}, "").Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"texto": "sin opciones"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAskMapsUpstreamFailureTo503(t *testing.T) {
	sel := &fakeSelector{err: domain.WrapError(domain.ErrUpstreamUnavailable, "search", context.DeadlineExceeded)}
	handler := newTestRouter(sel, &fakeReindexQueue{}, "").Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(askBody))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestReindexPublishesScope(t *testing.T) {
	queue := &fakeReindexQueue{}
	handler := newTestRouter(&fakeSelector{}, queue, "").Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/reindex", strings.NewReader(`{"law_ids": ["lo.3-2018"], "force": true}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected 1 published scope, got %d", len(queue.published))
	}
	scope := queue.published[0]
	if len(scope.LawIDs) != 1 || scope.LawIDs[0] != "lo.3-2018" || !scope.Force {
		t.Fatalf("unexpected scope: %+v", scope)
	}
	if !strings.HasPrefix(scope.RequestedBy, "api:") {
		t.Fatalf("RequestedBy = %q", scope.RequestedBy)
	}
}

func TestStatusListsLaws(t *testing.T) {
	handler := newTestRouter(&fakeSelector{}, &fakeReindexQueue{}, "").Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Status string       `json:"status"`
		Laws   []domain.Law `json:"laws"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "ok" || len(got.Laws) != 1 {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestBatchDelegatesToRunner(t *testing.T) {
	svc := &fakeBatchService{summary: &batch.Summary{Total: 3, Answered: 2, Failed: 1}}
	rt := NewRouter(&fakeSelector{}, &fakeLawLister{}, &fakeReindexQueue{}, svc, nil, "")
	handler := rt.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/batch", strings.NewReader(`{"dir": "/data/preguntas", "validar": true}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.gotOpts.Dir != "/data/preguntas" || !svc.gotOpts.Validate {
		t.Fatalf("unexpected options: %+v", svc.gotOpts)
	}
}

func TestAPIKeyGuardsV1Surface(t *testing.T) {
	handler := newTestRouter(&fakeSelector{selection: &domain.Selection{Letter: "A"}}, &fakeReindexQueue{}, "secreto").Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(askBody))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(askBody))
	req.Header.Set(apiKeyHeader, "secreto")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid key: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz must stay open, status = %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(&fakeSelector{}, &fakeReindexQueue{}, "").Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/ask", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
