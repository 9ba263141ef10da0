// Package scoped wraps a raw document store so that every operation
// issued through it is confined to a single tenant. Handlers receive a
// scoped handle and need no per-call discipline: the guard injects the
// tenant predicate into filters and pipelines and stamps the tenant
// field onto inserts.
package scoped

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/atelier/internal/domain"
)

// Store is a tenant-confined view over a raw domain.Store. It is a
// pure filter-injection layer: it never validates document shape and
// errors from the underlying store propagate unchanged.
type Store struct {
	raw      domain.Store
	tenantID string
}

// ForTenant returns a store whose collection handles are confined to
// the given tenant.
func ForTenant(raw domain.Store, tenantID string) *Store {
	return &Store{raw: raw, tenantID: tenantID}
}

// TenantID reports which tenant this store is confined to.
func (s *Store) TenantID() string { return s.tenantID }

// Collection returns a scoped handle to the named collection. The
// scope field is resolved per collection; callers never need to know
// which attribute a given collection uses.
func (s *Store) Collection(name string) domain.Collection {
	return &Collection{
		inner:      s.raw.Collection(name),
		tenantID:   s.tenantID,
		scopeField: ScopeField(name),
	}
}

// Typed accessors for the collections this core and its callers touch.
// These replace the source system's dynamic attribute-style dispatch
// with explicit lookups.

func (s *Store) Tasks() domain.Collection            { return s.Collection(domain.CollTasks) }
func (s *Store) TaskHistory() domain.Collection      { return s.Collection(domain.CollTaskHistory) }
func (s *Store) Projects() domain.Collection         { return s.Collection(domain.CollProjects) }
func (s *Store) Clients() domain.Collection          { return s.Collection(domain.CollClients) }
func (s *Store) Users() domain.Collection            { return s.Collection(domain.CollUsers) }
func (s *Store) Associates() domain.Collection       { return s.Collection(domain.CollAssociates) }
func (s *Store) Notifications() domain.Collection    { return s.Collection(domain.CollNotifications) }
func (s *Store) AgencyConfigs() domain.Collection    { return s.Collection(domain.CollAgencyConfigs) }
func (s *Store) SequenceCounters() domain.Collection { return s.Collection(domain.CollSequenceCounters) }

// Collection enforces tenant scoping on a single raw collection
// handle. It implements domain.Collection so scoped and raw handles
// are interchangeable downstream.
type Collection struct {
	inner      domain.Collection
	tenantID   string
	scopeField string
}

// Name returns the underlying collection name.
func (c *Collection) Name() string { return c.inner.Name() }

// mergeFilter combines the caller's filter with the tenant predicate.
// If the caller set the scope field themselves, the guard's value
// silently wins: a caller can never widen its own scope, by accident
// or otherwise.
func (c *Collection) mergeFilter(filter bson.M) bson.M {
	merged := make(bson.M, len(filter)+1)
	for k, v := range filter {
		merged[k] = v
	}
	merged[c.scopeField] = c.tenantID
	return merged
}

// stamp returns the document as bson.M with the scope field set to
// this tenant, overwriting any caller-supplied value. Non-map
// documents take one extra bson round trip; the driver would marshal
// them anyway.
func (c *Collection) stamp(doc any) (bson.M, error) {
	var m bson.M
	switch d := doc.(type) {
	case bson.M:
		m = make(bson.M, len(d)+1)
		for k, v := range d {
			m[k] = v
		}
	default:
		raw, err := bson.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("scoped: marshal document: %w", err)
		}
		if err := bson.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("scoped: unmarshal document: %w", err)
		}
	}
	m[c.scopeField] = c.tenantID
	return m, nil
}

func (c *Collection) FindOne(ctx context.Context, filter bson.M, out any) error {
	return c.inner.FindOne(ctx, c.mergeFilter(filter), out)
}

func (c *Collection) Find(ctx context.Context, filter bson.M, opts *domain.FindOptions, out any) error {
	return c.inner.Find(ctx, c.mergeFilter(filter), opts, out)
}

func (c *Collection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	return c.inner.CountDocuments(ctx, c.mergeFilter(filter))
}

func (c *Collection) InsertOne(ctx context.Context, doc any) error {
	stamped, err := c.stamp(doc)
	if err != nil {
		return err
	}
	return c.inner.InsertOne(ctx, stamped)
}

func (c *Collection) InsertMany(ctx context.Context, docs []any) error {
	stamped := make([]any, len(docs))
	for i, doc := range docs {
		m, err := c.stamp(doc)
		if err != nil {
			return err
		}
		stamped[i] = m
	}
	return c.inner.InsertMany(ctx, stamped)
}

func (c *Collection) UpdateOne(ctx context.Context, filter bson.M, update any) (*domain.UpdateResult, error) {
	return c.inner.UpdateOne(ctx, c.mergeFilter(filter), update)
}

func (c *Collection) UpdateMany(ctx context.Context, filter bson.M, update any) (*domain.UpdateResult, error) {
	return c.inner.UpdateMany(ctx, c.mergeFilter(filter), update)
}

func (c *Collection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	return c.inner.DeleteOne(ctx, c.mergeFilter(filter))
}

func (c *Collection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	return c.inner.DeleteMany(ctx, c.mergeFilter(filter))
}

// FindOneAndUpdate scopes the filter of the atomic read-modify-write.
// On an upsert the equality predicate, scope field included, is copied
// into the created document by the store, so upserted documents are
// born scoped.
func (c *Collection) FindOneAndUpdate(ctx context.Context, filter bson.M, update any, opts *domain.FindOneAndUpdateOptions, out any) error {
	return c.inner.FindOneAndUpdate(ctx, c.mergeFilter(filter), update, opts, out)
}

// Aggregate prepends a $match on the scope field rather than merging
// into the caller's first stage, so every downstream stage operates on
// this tenant's documents regardless of what the pipeline author
// wrote.
func (c *Collection) Aggregate(ctx context.Context, pipeline []bson.M, out any) error {
	scopedPipeline := make([]bson.M, 0, len(pipeline)+1)
	scopedPipeline = append(scopedPipeline, bson.M{"$match": bson.M{c.scopeField: c.tenantID}})
	scopedPipeline = append(scopedPipeline, pipeline...)
	return c.inner.Aggregate(ctx, scopedPipeline, out)
}
