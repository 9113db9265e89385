package clickhouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"user-service/internal/client"
	"user-service/internal/models"
	"user-service/internal/util"
)

const insertEventQuery = `
    INSERT INTO security_events
        (event_bucket, user_id, event_date, event_time, event_type, phone_hash, details)
    VALUES (?, ?, ?, ?, ?, ?, ?)`

// AuditRepository writes security events to the ClickHouse audit trail.
// Writes are best effort; callers log failures and move on.
type AuditRepository struct {
	client *client.ClickHouseClient
}

func NewAuditRepository(client *client.ClickHouseClient, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{client: client}
}

func (r *AuditRepository) Record(ctx context.Context, event *models.SecurityEvent) error {
	if event.EventTime.IsZero() {
		event.EventTime = time.Now().UTC()
	}
	if event.EventDate == "" {
		event.EventDate = event.EventTime.Format("2006-01-02")
	}

	err := r.client.Exec(ctx, insertEventQuery,
		event.EventBucket, event.UserID, event.EventDate, event.EventTime,
		event.EventType, event.PhoneHash, event.Details)
	if err != nil {
		util.Error("Failed to record security event",
			zap.String("event_type", event.EventType),
			zap.String("user_id", event.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to record security event: %w", err)
	}

	util.Debug("Security event recorded",
		zap.String("event_type", event.EventType),
		zap.String("user_id", event.UserID))
	return nil
}

// RecordBatch inserts multiple events in one round trip.
func (r *AuditRepository) RecordBatch(ctx context.Context, events []*models.SecurityEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(events))
	for _, event := range events {
		if event.EventTime.IsZero() {
			event.EventTime = time.Now().UTC()
		}
		if event.EventDate == "" {
			event.EventDate = event.EventTime.Format("2006-01-02")
		}
		rows = append(rows, []interface{}{
			event.EventBucket, event.UserID, event.EventDate, event.EventTime,
			event.EventType, event.PhoneHash, event.Details,
		})
	}

	if err := r.client.BatchInsert(ctx, insertEventQuery, rows); err != nil {
		util.Error("Failed to record security event batch",
			zap.Int("event_count", len(events)),
			zap.Error(err))
		return fmt.Errorf("failed to record security event batch: %w", err)
	}

	return nil
}
