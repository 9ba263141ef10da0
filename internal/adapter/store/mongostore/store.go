// Package mongostore implements the domain.Store boundary on the
// official MongoDB driver. It is the only package that imports the
// driver's collection API; everything above it works against
// domain.Collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atelierhq/atelier/internal/domain"
)

// Store is a mongo-backed document store. Construct it with Connect at
// process start and Close it at shutdown; there are no package-level
// handles.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// Connect dials the server, verifies the connection and returns a
// Store bound to the named database.
func Connect(ctx context.Context, uri, dbName string, logger *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	logger.Info("connected to document store", "db", dbName)
	return &Store{
		client: client,
		db:     client.Database(dbName),
		logger: logger.With("component", "mongostore"),
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Collection returns a raw, unscoped handle. Application code should
// reach collections through the scoped wrapper instead.
func (s *Store) Collection(name string) domain.Collection {
	return &collection{coll: s.db.Collection(name)}
}

type collection struct {
	coll *mongo.Collection
}

func (c *collection) Name() string { return c.coll.Name() }

func (c *collection) FindOne(ctx context.Context, filter bson.M, out any) error {
	err := c.coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}

func (c *collection) Find(ctx context.Context, filter bson.M, opts *domain.FindOptions, out any) error {
	findOpts := options.Find()
	if opts != nil {
		if opts.Sort != nil {
			findOpts.SetSort(opts.Sort)
		}
		if opts.Limit > 0 {
			findOpts.SetLimit(opts.Limit)
		}
		if opts.Skip > 0 {
			findOpts.SetSkip(opts.Skip)
		}
	}
	cursor, err := c.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

func (c *collection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	return c.coll.CountDocuments(ctx, filter)
}

func (c *collection) InsertOne(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return err
}

func (c *collection) InsertMany(ctx context.Context, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := c.coll.InsertMany(ctx, docs)
	return err
}

func (c *collection) UpdateOne(ctx context.Context, filter bson.M, update any) (*domain.UpdateResult, error) {
	res, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return toUpdateResult(res), nil
}

func (c *collection) UpdateMany(ctx context.Context, filter bson.M, update any) (*domain.UpdateResult, error) {
	res, err := c.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return toUpdateResult(res), nil
}

func (c *collection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *collection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *collection) FindOneAndUpdate(ctx context.Context, filter bson.M, update any, opts *domain.FindOneAndUpdateOptions, out any) error {
	updateOpts := options.FindOneAndUpdate()
	if opts != nil {
		if opts.Upsert {
			updateOpts.SetUpsert(true)
		}
		if opts.ReturnAfter {
			updateOpts.SetReturnDocument(options.After)
		}
		if opts.Sort != nil {
			updateOpts.SetSort(opts.Sort)
		}
	}
	err := c.coll.FindOneAndUpdate(ctx, filter, update, updateOpts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}

func (c *collection) Aggregate(ctx context.Context, pipeline []bson.M, out any) error {
	cursor, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

func toUpdateResult(res *mongo.UpdateResult) *domain.UpdateResult {
	return &domain.UpdateResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
}
