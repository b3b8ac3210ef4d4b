package httpadapter

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/msanchezp/lexrag/internal/batch"
	"github.com/msanchezp/lexrag/internal/core/domain"
	"github.com/msanchezp/lexrag/internal/core/ports"
)

const apiKeyHeader = "X-API-Key"

// LawLister exposes the loaded catalog for the status endpoint.
type LawLister interface {
	Laws(ctx context.Context) ([]domain.Law, error)
}

// BatchService runs a batch of question files synchronously.
type BatchService interface {
	Run(ctx context.Context, opts batch.Options) (*batch.Summary, error)
}

type Router struct {
	selector ports.OptionSelector
	laws     LawLister
	queue    ports.ReindexQueue
	batch    BatchService
	metrics  http.Handler
	apiKey   string
}

func NewRouter(
	selector ports.OptionSelector,
	laws LawLister,
	queue ports.ReindexQueue,
	batchSvc BatchService,
	metrics http.Handler,
	apiKey string,
) *Router {
	return &Router{
		selector: selector,
		laws:     laws,
		queue:    queue,
		batch:    batchSvc,
		metrics:  metrics,
		apiKey:   apiKey,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/status", rt.status)
	mux.HandleFunc("/v1/ask", rt.ask)
	mux.HandleFunc("/v1/batch", rt.runBatch)
	mux.HandleFunc("/v1/reindex", rt.reindex)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}

	var handler http.Handler = mux
	handler = rt.apiKeyMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

// apiKeyMiddleware guards the /v1 surface. Health and metrics stay open so
// probes and scrapers work without credentials.
func (rt *Router) apiKeyMiddleware(next http.Handler) http.Handler {
	if rt.apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/") {
			next.ServeHTTP(w, r)
			return
		}
		provided := r.Header.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(rt.apiKey)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	laws, err := rt.laws.Laws(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"laws":   laws,
	})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Text string `json:"texto"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "texto is required"})
		return
	}

	q, err := domain.ParseQuestion(req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	selection, err := rt.selector.Select(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selection)
}

func (rt *Router) runBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.batch == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "batch runner not configured"})
		return
	}

	var req struct {
		Dir      string `json:"dir"`
		Validate bool   `json:"validar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Dir) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dir is required"})
		return
	}

	sum, err := rt.batch.Run(r.Context(), batch.Options{Dir: req.Dir, Validate: req.Validate})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (rt *Router) reindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var scope domain.IngestScope
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&scope); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}
	scope.RequestedBy = "api:" + requestIDFromContext(r.Context())

	if err := rt.queue.PublishReindex(r.Context(), scope); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
