package emailchange

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditLogs persists append-only audit records.
type AuditLogs = repository.Repository[*AuditLog]

func NewAuditLogsRepository(db *bun.DB) AuditLogs {
	handlers := repository.ModelHandlers[*AuditLog]{
		NewRecord: func() *AuditLog {
			return &AuditLog{}
		},
		GetID: func(record *AuditLog) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *AuditLog, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "action"
		},
	}
	return repository.NewRepository(db, handlers)
}

type auditTrailSink struct {
	logs   AuditLogs
	logger Logger
}

// NewAuditTrailSink returns an ActivitySink that appends events to the
// audit_logs table.
func NewAuditTrailSink(db *bun.DB, logger Logger) ActivitySink {
	if logger == nil {
		logger = defLogger{}
	}
	return &auditTrailSink{
		logs:   NewAuditLogsRepository(db),
		logger: logger,
	}
}

func (s *auditTrailSink) Record(ctx context.Context, event ActivityEvent) error {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	meta := map[string]any{
		"member_id": event.MemberID,
	}
	for k, v := range event.Metadata {
		meta[k] = v
	}

	actorType := event.Actor.Type
	if actorType == "" {
		actorType = "system"
	}

	entry := &AuditLog{
		ActorType: actorType,
		ActorID:   event.Actor.ID,
		Action:    string(event.EventType),
		Meta:      meta,
		CreatedAt: &occurred,
	}

	if _, err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Error("audit trail write failed for %s: %v", event.EventType, err)
		return err
	}

	return nil
}
