package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/atelier/internal/adapter/metrics"
	"github.com/atelierhq/atelier/internal/adapter/store/scoped"
	"github.com/atelierhq/atelier/internal/domain"
)

// TakenFunc reports whether an issued identifier already exists, e.g.
// on records migrated in from outside the generator.
type TakenFunc func(ctx context.Context, id string) (bool, error)

// Sequences issues monotonically increasing, per-tenant-per-category
// counters formatted as human-readable identifiers like KN-2026-0001.
//
// Correctness under concurrent creation rests entirely on the store's
// find-and-increment-or-create being a single atomic round trip; there
// is deliberately no in-process locking here.
type Sequences struct {
	store   domain.Store
	logger  *slog.Logger
	metrics *metrics.CoreMetrics
	now     func() time.Time
}

// NewSequences creates a sequence generator.
func NewSequences(store domain.Store, logger *slog.Logger, m *metrics.CoreMetrics) *Sequences {
	return &Sequences{
		store:   store,
		logger:  logger.With("component", "sequences"),
		metrics: m,
		now:     time.Now,
	}
}

// Next issues the next identifier for (tenant, category) in the
// current period. Two concurrent callers for the same key never
// receive the same value.
func (s *Sequences) Next(ctx context.Context, tenantID, category string) (string, error) {
	period := strconv.Itoa(s.now().UTC().Year())

	var counter domain.SequenceCounter
	err := scoped.ForTenant(s.store, tenantID).SequenceCounters().FindOneAndUpdate(ctx,
		bson.M{"category": category, "period": period},
		bson.M{
			"$inc": bson.M{"seq": 1},
			"$setOnInsert": bson.M{
				"id":         uuid.NewString(),
				"created_at": s.now().UTC(),
			},
		},
		&domain.FindOneAndUpdateOptions{Upsert: true, ReturnAfter: true},
		&counter,
	)
	if err != nil {
		return "", fmt.Errorf("increment sequence counter: %w", err)
	}

	if s.metrics != nil {
		s.metrics.SequencesIssued.Inc()
	}
	return fmt.Sprintf("%s-%s-%04d", strings.ToUpper(category), period, counter.Seq), nil
}

// NextUnique issues an identifier and verifies it against taken. If
// the identifier already exists the atomic increment is retried once;
// a second collision is reported as domain.ErrIdentifierCollision,
// since a counter that keeps landing on taken values is corrupted and
// retrying forever would loop.
func (s *Sequences) NextUnique(ctx context.Context, tenantID, category string, taken TakenFunc) (string, error) {
	id, err := s.Next(ctx, tenantID, category)
	if err != nil {
		return "", err
	}
	exists, err := taken(ctx, id)
	if err != nil {
		return "", err
	}
	if !exists {
		return id, nil
	}

	if s.metrics != nil {
		s.metrics.SequenceRetries.Inc()
	}
	s.logger.Warn("issued identifier already taken, retrying once", "id", id, "tenant_id", tenantID, "category", category)

	id, err = s.Next(ctx, tenantID, category)
	if err != nil {
		return "", err
	}
	exists, err = taken(ctx, id)
	if err != nil {
		return "", err
	}
	if exists {
		if s.metrics != nil {
			s.metrics.SequenceCollisions.Inc()
		}
		s.logger.Error("persistent identifier collision, counter state is corrupted", "id", id, "tenant_id", tenantID, "category", category)
		return "", fmt.Errorf("identifier %q: %w", id, domain.ErrIdentifierCollision)
	}
	return id, nil
}
