package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/msanchezp/lexrag/internal/core/domain"
	"github.com/msanchezp/lexrag/internal/infrastructure/resilience"
)

const (
	reindexSubject = "lexrag.reindex"
	workerGroup    = "ingesters"
)

// Queue transports reindex requests over NATS and implements
// ports.ReindexQueue. Subscribers join one queue group, so exactly one
// worker handles each request: that is the cross-process serialization of
// ingestion runs.
type Queue struct {
	conn     *nats.Conn
	executor *resilience.Executor
	log      *slog.Logger
}

func Connect(url string, executor *resilience.Executor, log *slog.Logger) (*Queue, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{conn: conn, executor: executor, log: log}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishReindex(ctx context.Context, scope domain.IngestScope) error {
	payload, err := json.Marshal(scope)
	if err != nil {
		return fmt.Errorf("marshal reindex request: %w", err)
	}

	publish := func(context.Context) error {
		if err := q.conn.Publish(reindexSubject, payload); err != nil {
			return err
		}
		return q.conn.Flush()
	}

	if q.executor == nil {
		return wrapTemporaryIfNeeded(publish(ctx))
	}
	return wrapTemporaryIfNeeded(q.executor.Execute(ctx, "nats publish reindex", publish, classifyNATSError))
}

// SubscribeReindex consumes reindex requests until ctx is cancelled.
// Handler errors are logged, not retried: the manifest carry-forward makes
// the next ingestion run pick failed units up again.
func (q *Queue) SubscribeReindex(ctx context.Context, handler func(context.Context, domain.IngestScope) error) error {
	sub, err := q.conn.QueueSubscribe(reindexSubject, workerGroup, func(msg *nats.Msg) {
		var scope domain.IngestScope
		if err := json.Unmarshal(msg.Data, &scope); err != nil {
			q.log.Error("reindex_request_malformed", "error", err)
			return
		}
		q.log.Info("reindex_request_received", "law_ids", scope.LawIDs, "force", scope.Force, "requested_by", scope.RequestedBy)
		if err := handler(ctx, scope); err != nil {
			q.log.Error("reindex_failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", reindexSubject, err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		q.log.Warn("nats_drain_failed", "error", err)
	}
	return ctx.Err()
}
