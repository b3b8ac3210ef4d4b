package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msanchezp/lexrag/internal/core/domain"
	"github.com/msanchezp/lexrag/internal/core/ports"
	"github.com/msanchezp/lexrag/internal/infrastructure/resilience"
)

// Client talks to Qdrant over its REST API and implements
// ports.VectorStore. Physical point ids are UUIDv5 hashes of the logical
// point id, so re-ingesting the same unit overwrites instead of
// duplicating.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewClient(baseURL, apiKey string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type searchRequest struct {
	Vector      []float32      `json:"vector"`
	Limit       int            `json:"limit"`
	WithPayload bool           `json:"with_payload"`
	Filter      *qdrantFilter  `json:"filter,omitempty"`
}

type searchResponse struct {
	Result []scoredPoint `json:"result"`
}

type scoredPoint struct {
	Score   float64        `json:"score"`
	Payload domain.Payload `json:"payload"`
}

func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int, filter ports.SearchFilter) ([]domain.Hit, error) {
	req := searchRequest{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
		Filter:      buildFilter(filter),
	}
	var resp searchResponse
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(collection))
	if err := c.call(ctx, "qdrant search", http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	hits := make([]domain.Hit, 0, len(resp.Result))
	for _, p := range resp.Result {
		hits = append(hits, domain.Hit{Score: p.Score, Collection: collection, Payload: p.Payload})
	}
	return hits, nil
}

type scrollRequest struct {
	Filter      *qdrantFilter `json:"filter,omitempty"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
}

type scrollResponse struct {
	Result struct {
		Points []scoredPoint `json:"points"`
	} `json:"result"`
}

func (c *Client) ScrollByFilter(ctx context.Context, collection string, filter ports.SearchFilter, limit int) ([]domain.Hit, error) {
	req := scrollRequest{Filter: buildFilter(filter), Limit: limit, WithPayload: true}
	var resp scrollResponse
	path := fmt.Sprintf("/collections/%s/points/scroll", url.PathEscape(collection))
	if err := c.call(ctx, "qdrant scroll", http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	hits := make([]domain.Hit, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		hits = append(hits, domain.Hit{Collection: collection, Payload: p.Payload})
	}
	return hits, nil
}

type upsertRequest struct {
	Points []upsertPoint `json:"points"`
}

type upsertPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload domain.Payload `json:"payload"`
}

func (c *Client) Upsert(ctx context.Context, collection string, points []ports.Point) error {
	req := upsertRequest{Points: make([]upsertPoint, 0, len(points))}
	for _, p := range points {
		req.Points = append(req.Points, upsertPoint{
			ID:      PointID(p.ID),
			Vector:  p.Vector,
			Payload: p.Payload,
		})
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(collection))
	return c.call(ctx, "qdrant upsert", http.MethodPut, path, req, nil)
}

// PointID derives the deterministic physical id for a logical point id.
func PointID(logical string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(logical)).String()
}

type existsResponse struct {
	Result struct {
		Exists bool `json:"exists"`
	} `json:"result"`
}

func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	var resp existsResponse
	path := fmt.Sprintf("/collections/%s/exists", url.PathEscape(name))
	if err := c.call(ctx, "qdrant collection exists", http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Result.Exists, nil
}

type createCollectionRequest struct {
	Vectors vectorParams `json:"vectors"`
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

func (c *Client) CreateCollection(ctx context.Context, name string, vectorSize int) error {
	req := createCollectionRequest{Vectors: vectorParams{Size: vectorSize, Distance: "Cosine"}}
	path := fmt.Sprintf("/collections/%s", url.PathEscape(name))
	return c.call(ctx, "qdrant create collection", http.MethodPut, path, req, nil)
}

type aliasActionsRequest struct {
	Actions []aliasAction `json:"actions"`
}

type aliasAction struct {
	Delete *deleteAlias `json:"delete_alias,omitempty"`
	Create *createAlias `json:"create_alias,omitempty"`
}

type deleteAlias struct {
	AliasName string `json:"alias_name"`
}

type createAlias struct {
	AliasName      string `json:"alias_name"`
	CollectionName string `json:"collection_name"`
}

// SwapAlias repoints alias to collection. Delete and create travel in one
// actions request, which Qdrant applies atomically: readers see either the
// old target or the new one, never a missing alias.
func (c *Client) SwapAlias(ctx context.Context, alias, collection string) error {
	current, err := c.ListAliases(ctx)
	if err != nil {
		return err
	}

	var actions []aliasAction
	if _, ok := current[alias]; ok {
		actions = append(actions, aliasAction{Delete: &deleteAlias{AliasName: alias}})
	}
	actions = append(actions, aliasAction{Create: &createAlias{AliasName: alias, CollectionName: collection}})

	return c.call(ctx, "qdrant swap alias", http.MethodPost, "/collections/aliases", aliasActionsRequest{Actions: actions}, nil)
}

type collectionsResponse struct {
	Result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	} `json:"result"`
}

func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var resp collectionsResponse
	if err := c.call(ctx, "qdrant list collections", http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, col := range resp.Result.Collections {
		names = append(names, col.Name)
	}
	return names, nil
}

type aliasesResponse struct {
	Result struct {
		Aliases []struct {
			AliasName      string `json:"alias_name"`
			CollectionName string `json:"collection_name"`
		} `json:"aliases"`
	} `json:"result"`
}

func (c *Client) ListAliases(ctx context.Context) (map[string]string, error) {
	var resp aliasesResponse
	if err := c.call(ctx, "qdrant list aliases", http.MethodGet, "/aliases", nil, &resp); err != nil {
		return nil, err
	}
	aliases := make(map[string]string, len(resp.Result.Aliases))
	for _, a := range resp.Result.Aliases {
		aliases[a.AliasName] = a.CollectionName
	}
	return aliases, nil
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(name))
	return c.call(ctx, "qdrant delete collection", http.MethodDelete, path, nil, nil)
}

type qdrantFilter struct {
	Must []fieldCondition `json:"must"`
}

type fieldCondition struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type matchValue struct {
	Value any `json:"value"`
}

func buildFilter(filter ports.SearchFilter) *qdrantFilter {
	if len(filter.Match) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter.Match))
	for k := range filter.Match {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &qdrantFilter{Must: make([]fieldCondition, 0, len(keys))}
	for _, k := range keys {
		out.Must = append(out.Must, fieldCondition{Key: k, Match: matchValue{Value: filter.Match[k]}})
	}
	return out
}

func (c *Client) call(ctx context.Context, operation, method, path string, payload, out any) error {
	run := func(ctx context.Context) error {
		return c.doJSON(ctx, method, path, payload, out, operation)
	}
	if c.executor == nil {
		return wrapTemporaryIfNeeded(operation, run(ctx))
	}
	err := c.executor.Execute(ctx, operation, run, classifyQdrantError)
	return wrapTemporaryIfNeeded(operation, err)
}
