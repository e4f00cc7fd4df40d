package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-pricing/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuditReplay re-records a resolution audit entry whose
	// synchronous write failed.
	TaskTypeAuditReplay = "audit:replay"
)

// NewAuditReplayTask constructs an Asynq task carrying the audit entry.
func NewAuditReplayTask(entry audit.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditReplay, data, asynq.Queue(QueueDefault)), nil
}

// AuditReplayHandler processes TaskTypeAuditReplay tasks against the sink.
type AuditReplayHandler struct {
	sink   audit.Sink
	logger *slog.Logger
}

func NewAuditReplayHandler(sink audit.Sink, logger *slog.Logger) *AuditReplayHandler {
	return &AuditReplayHandler{sink: sink, logger: logger}
}

// Handle re-records the entry. Undecodable payloads are dropped; sink errors
// are returned so Asynq retries with backoff.
func (h *AuditReplayHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var entry audit.Entry
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		if h.logger != nil {
			h.logger.Error("audit replay payload undecodable", slog.Any("error", err))
		}
		return asynq.SkipRetry
	}
	if err := h.sink.Record(ctx, entry); err != nil {
		return err
	}
	if h.logger != nil {
		h.logger.Info("audit entry replayed",
			slog.String("event_type", entry.EventType),
			slog.String("entity_id", entry.EntityID))
	}
	return nil
}

// AuditEscalator enqueues replay tasks for failed synchronous audit writes.
// Enqueueing is itself best-effort; a failure here is logged and dropped so
// pricing is never blocked on the broker.
type AuditEscalator struct {
	client *asynq.Client
	logger *slog.Logger
}

func NewAuditEscalator(client *asynq.Client, logger *slog.Logger) *AuditEscalator {
	return &AuditEscalator{client: client, logger: logger}
}

func (e *AuditEscalator) EscalateAuditFailure(ctx context.Context, entry audit.Entry) {
	if e == nil || e.client == nil {
		return
	}
	task, err := NewAuditReplayTask(entry)
	if err != nil {
		if e.logger != nil {
			e.logger.Error("build audit replay task", slog.Any("error", err))
		}
		return
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil && e.logger != nil {
		e.logger.Error("enqueue audit replay", slog.Any("error", err))
	}
}
