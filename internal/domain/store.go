package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Collection names used by this core. Everything else is owned by the
// surrounding CRUD layer and accessed through the same scoped handles.
const (
	CollTasks            = "tasks"
	CollTaskHistory      = "task_history"
	CollProjects         = "projects"
	CollClients          = "clients"
	CollUsers            = "users"
	CollAssociates       = "associates"
	CollNotifications    = "notifications"
	CollAgencyConfigs    = "agency_configs"
	CollSequenceCounters = "sequence_counters"
)

// FindOptions narrows a multi-document read.
type FindOptions struct {
	Sort  bson.D
	Limit int64
	Skip  int64
}

// FindOneAndUpdateOptions controls the atomic read-modify-write
// primitive. ReturnAfter requests the post-update document, which is
// what the sequence generator depends on.
type FindOneAndUpdateOptions struct {
	Upsert      bool
	ReturnAfter bool
	Sort        bson.D
}

// UpdateResult reports what an update touched.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
}

// Collection is a raw, unscoped handle to one named collection of the
// underlying document store. Filters and update documents use the
// store's native operator syntax (bson.M). Implementations decode
// results into out, which must be a pointer; single-document reads
// return ErrNotFound when nothing matches.
type Collection interface {
	Name() string

	FindOne(ctx context.Context, filter bson.M, out any) error
	Find(ctx context.Context, filter bson.M, opts *FindOptions, out any) error
	CountDocuments(ctx context.Context, filter bson.M) (int64, error)

	InsertOne(ctx context.Context, doc any) error
	InsertMany(ctx context.Context, docs []any) error

	UpdateOne(ctx context.Context, filter bson.M, update any) (*UpdateResult, error)
	UpdateMany(ctx context.Context, filter bson.M, update any) (*UpdateResult, error)

	DeleteOne(ctx context.Context, filter bson.M) (int64, error)
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)

	// FindOneAndUpdate performs a single atomic read-modify-write.
	// With Upsert and ReturnAfter set it is the increment-or-create
	// primitive the sequence generator requires: one round trip, no
	// intervening read.
	FindOneAndUpdate(ctx context.Context, filter bson.M, update any, opts *FindOneAndUpdateOptions, out any) error

	// Aggregate runs a pipeline, one bson.M per stage, and decodes
	// all results into out (a pointer to a slice).
	Aggregate(ctx context.Context, pipeline []bson.M, out any) error
}

// Store hands out raw collection handles by name. It is the unscoped
// boundary this core wraps; application code should only ever see the
// scoped variant.
type Store interface {
	Collection(name string) Collection
}
