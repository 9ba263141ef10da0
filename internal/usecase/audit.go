package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/atelier/internal/adapter/metrics"
	"github.com/atelierhq/atelier/internal/adapter/store/scoped"
	"github.com/atelierhq/atelier/internal/domain"
)

// Change is one field transition within a mutation.
type Change struct {
	Old any
	New any
}

// historyLimit caps a single history read.
const historyLimit = 100

// AuditLog appends immutable per-field change records to task_history
// and reads them back. Writes share the caller's fate: if the batch
// insert fails, the caller must treat its own mutation as failed, so
// no change ever goes unaudited.
type AuditLog struct {
	store   domain.Store
	logger  *slog.Logger
	metrics *metrics.CoreMetrics
	now     func() time.Time
}

// NewAuditLog creates an audit log.
func NewAuditLog(store domain.Store, logger *slog.Logger, m *metrics.CoreMetrics) *AuditLog {
	return &AuditLog{
		store:   store,
		logger:  logger.With("component", "audit"),
		metrics: m,
		now:     time.Now,
	}
}

// Record writes one entry per changed field, all sharing a single
// timestamp. A status transition to "blocked" carries the comment on
// the status entry alone; any other comment is preserved on every
// entry of the batch. Ensuring a block transition actually has a
// comment is the caller's precondition; this component only promises
// not to drop it.
func (l *AuditLog) Record(ctx context.Context, tenantID, entityID, actorID string, changes map[string]Change, comment string) error {
	if len(changes) == 0 {
		return nil
	}

	timestamp := l.now().UTC()

	blocked := false
	if status, ok := changes["status"]; ok && stringify(status.New) == "blocked" {
		blocked = true
	}

	entries := make([]any, 0, len(changes))
	for field, change := range changes {
		entryComment := ""
		if blocked {
			if field == "status" {
				entryComment = comment
			}
		} else {
			entryComment = comment
		}
		entries = append(entries, domain.AuditEntry{
			ID:        uuid.NewString(),
			TaskID:    entityID,
			ChangedBy: actorID,
			Field:     field,
			OldValue:  stringify(change.Old),
			NewValue:  stringify(change.New),
			Comment:   entryComment,
			Timestamp: timestamp,
		})
	}

	err := scoped.ForTenant(l.store, tenantID).TaskHistory().InsertMany(ctx, entries)
	if err != nil {
		if l.metrics != nil {
			l.metrics.AuditWriteFailures.Inc()
		}
		l.logger.Error("audit batch write failed, enclosing mutation must fail", "error", err, "entity_id", entityID)
		return fmt.Errorf("write audit entries: %w", err)
	}

	if l.metrics != nil {
		l.metrics.AuditEntriesWritten.Add(float64(len(entries)))
	}
	return nil
}

// History returns the audit trail for an entity, newest first,
// tenant-scoped. Entries written before tenancy scoping existed lack
// the scope field and stay invisible here; that is the accepted
// fail-closed trade-off, not something to backfill silently.
func (l *AuditLog) History(ctx context.Context, tenantID, entityID string) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := scoped.ForTenant(l.store, tenantID).TaskHistory().Find(ctx,
		bson.M{"task_id": entityID},
		&domain.FindOptions{
			Sort:  bson.D{{Key: "timestamp", Value: -1}},
			Limit: historyLimit,
		},
		&entries,
	)
	if err != nil {
		return nil, fmt.Errorf("read audit history: %w", err)
	}
	return entries, nil
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
