package queue

import (
	"context"

	"insights-backend/internal/shared/telemetry"
)

// Client publishes domain events to downstream consumers.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// LogClient stands in for SQS when no queue is configured: each message is
// written to the log instead of being delivered.
type LogClient struct{}

func (LogClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	telemetry.Info("queue.message_logged", map[string]any{
		"type":          msg.Type,
		"source_id":     msg.SourceID,
		"insight_count": msg.InsightCount,
		"version":       msg.Version,
	})
	return nil
}

var _ Client = LogClient{}
