// Package mocks provides hand-written test doubles for the domain
// interfaces. MockStore is an in-memory document store supporting the
// filter and update-operator subset this core issues, so invariants
// like atomic increments and scope injection can be exercised without
// a running server.
package mocks

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atelierhq/atelier/internal/domain"
)

// MockStore implements domain.Store over in-memory collections. All
// operations on all collections share one mutex, which makes
// FindOneAndUpdate a true atomic read-modify-write.
type MockStore struct {
	mu          sync.Mutex
	collections map[string]*MockCollection
}

// NewMockStore returns an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{collections: make(map[string]*MockCollection)}
}

// Collection implements domain.Store.
func (s *MockStore) Collection(name string) domain.Collection {
	return s.Coll(name)
}

// Coll returns the concrete mock collection for error injection and
// inspection from tests.
func (s *MockStore) Coll(name string) *MockCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &MockCollection{name: name, mu: &s.mu}
		s.collections[name] = c
	}
	return c
}

// Docs returns a snapshot of the raw documents in a collection.
func (s *MockStore) Docs(name string) []bson.M {
	c := s.Coll(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bson.M, len(c.docs))
	copy(out, c.docs)
	return out
}

// MockCollection is one in-memory collection. Error fields, when set,
// are returned by the corresponding operations.
type MockCollection struct {
	name string
	mu   *sync.Mutex
	docs []bson.M

	FindErr   error
	InsertErr error
	UpdateErr error
	DeleteErr error

	// LastPipeline records the most recent Aggregate call so tests can
	// assert on stage injection. AggregateDocs, when set, is decoded
	// as the aggregation result.
	LastPipeline  []bson.M
	AggregateDocs []bson.M
}

func (c *MockCollection) Name() string { return c.name }

func (c *MockCollection) FindOne(ctx context.Context, filter bson.M, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FindErr != nil {
		return c.FindErr
	}
	for _, doc := range c.docs {
		if matches(doc, filter) {
			return decode(doc, out)
		}
	}
	return domain.ErrNotFound
}

func (c *MockCollection) Find(ctx context.Context, filter bson.M, opts *domain.FindOptions, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FindErr != nil {
		return c.FindErr
	}
	var matched []bson.M
	for _, doc := range c.docs {
		if matches(doc, filter) {
			matched = append(matched, doc)
		}
	}
	if opts != nil && len(opts.Sort) > 0 {
		sortDocs(matched, opts.Sort)
	}
	if opts != nil && opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts != nil && opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return decodeList(matched, out)
}

func (c *MockCollection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FindErr != nil {
		return 0, c.FindErr
	}
	var n int64
	for _, doc := range c.docs {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (c *MockCollection) InsertOne(ctx context.Context, doc any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.InsertErr != nil {
		return c.InsertErr
	}
	m, err := toBsonM(doc)
	if err != nil {
		return err
	}
	c.docs = append(c.docs, m)
	return nil
}

func (c *MockCollection) InsertMany(ctx context.Context, docs []any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.InsertErr != nil {
		return c.InsertErr
	}
	for _, doc := range docs {
		m, err := toBsonM(doc)
		if err != nil {
			return err
		}
		c.docs = append(c.docs, m)
	}
	return nil
}

func (c *MockCollection) UpdateOne(ctx context.Context, filter bson.M, update any) (*domain.UpdateResult, error) {
	return c.update(filter, update, 1)
}

func (c *MockCollection) UpdateMany(ctx context.Context, filter bson.M, update any) (*domain.UpdateResult, error) {
	return c.update(filter, update, -1)
}

func (c *MockCollection) update(filter bson.M, update any, max int) (*domain.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.UpdateErr != nil {
		return nil, c.UpdateErr
	}
	upd, err := toBsonM(update)
	if err != nil {
		return nil, err
	}
	res := &domain.UpdateResult{}
	for i, doc := range c.docs {
		if !matches(doc, filter) {
			continue
		}
		applyUpdate(c.docs[i], upd, false)
		res.MatchedCount++
		res.ModifiedCount++
		if max > 0 && res.MatchedCount >= int64(max) {
			break
		}
	}
	return res, nil
}

func (c *MockCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	return c.delete(filter, 1)
}

func (c *MockCollection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	return c.delete(filter, -1)
}

func (c *MockCollection) delete(filter bson.M, max int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DeleteErr != nil {
		return 0, c.DeleteErr
	}
	var kept []bson.M
	var deleted int64
	for _, doc := range c.docs {
		if matches(doc, filter) && (max < 0 || deleted < int64(max)) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return deleted, nil
}

func (c *MockCollection) FindOneAndUpdate(ctx context.Context, filter bson.M, update any, opts *domain.FindOneAndUpdateOptions, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.UpdateErr != nil {
		return c.UpdateErr
	}
	upd, err := toBsonM(update)
	if err != nil {
		return err
	}
	for i, doc := range c.docs {
		if !matches(doc, filter) {
			continue
		}
		if opts != nil && opts.ReturnAfter {
			applyUpdate(c.docs[i], upd, false)
			return decode(c.docs[i], out)
		}
		before := cloneDoc(doc)
		applyUpdate(c.docs[i], upd, false)
		return decode(before, out)
	}
	if opts == nil || !opts.Upsert {
		return domain.ErrNotFound
	}
	// Upsert: equality fields of the filter seed the new document,
	// the same way the server copies them in.
	created := bson.M{}
	for k, v := range filter {
		if _, isOp := v.(bson.M); !isOp {
			created[k] = v
		}
	}
	applyUpdate(created, upd, true)
	c.docs = append(c.docs, created)
	if opts.ReturnAfter {
		return decode(created, out)
	}
	return domain.ErrNotFound
}

func (c *MockCollection) Aggregate(ctx context.Context, pipeline []bson.M, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FindErr != nil {
		return c.FindErr
	}
	c.LastPipeline = pipeline
	return decodeList(c.AggregateDocs, out)
}

// --- document helpers ---

func toBsonM(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func cloneDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func decode(doc bson.M, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func decodeList(docs []bson.M, out any) error {
	ptr := reflect.ValueOf(out)
	if ptr.Kind() != reflect.Ptr || ptr.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("mocks: decode target must be a pointer to a slice, got %T", out)
	}
	slice := ptr.Elem()
	elemType := slice.Type().Elem()
	result := reflect.MakeSlice(slice.Type(), 0, len(docs))
	for _, doc := range docs {
		elem := reflect.New(elemType)
		if err := decode(doc, elem.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, elem.Elem())
	}
	slice.Set(result)
	return nil
}

func matches(doc bson.M, filter bson.M) bool {
	for key, want := range filter {
		got, exists := doc[key]
		if op, isOp := want.(bson.M); isOp {
			if !matchOperator(got, exists, op) {
				return false
			}
			continue
		}
		if !exists || !equalValues(got, want) {
			return false
		}
	}
	return true
}

func matchOperator(got any, exists bool, op bson.M) bool {
	for name, arg := range op {
		switch name {
		case "$in":
			vals := reflect.ValueOf(arg)
			if vals.Kind() != reflect.Slice {
				return false
			}
			found := false
			for i := 0; i < vals.Len(); i++ {
				if exists && equalValues(got, vals.Index(i).Interface()) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "$ne":
			if exists && equalValues(got, arg) {
				return false
			}
		case "$exists":
			want, _ := arg.(bool)
			if exists != want {
				return false
			}
		default:
			// Unsupported operator in a test filter is a test bug.
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func sortDocs(docs []bson.M, sort bson.D) {
	less := func(i, j int) bool {
		for _, field := range sort {
			dir := 1
			if d, ok := field.Value.(int); ok && d < 0 {
				dir = -1
			}
			cmp := compareValues(docs[i][field.Key], docs[j][field.Key])
			if cmp == 0 {
				continue
			}
			return cmp*dir < 0
		}
		return false
	}
	// Insertion sort keeps this dependency-free and stable.
	for i := 1; i < len(docs); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			docs[j], docs[j-1] = docs[j-1], docs[j]
		}
	}
}

func compareValues(a, b any) int {
	at, aok := toTime(a)
	bt, bok := toTime(b)
	if aok && bok {
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		default:
			return 0
		}
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	default:
		return time.Time{}, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func applyUpdate(doc bson.M, update bson.M, isInsert bool) {
	if set, ok := update["$set"].(bson.M); ok {
		for k, v := range set {
			doc[k] = v
		}
	}
	if isInsert {
		if setOnInsert, ok := update["$setOnInsert"].(bson.M); ok {
			for k, v := range setOnInsert {
				if _, exists := doc[k]; !exists {
					doc[k] = v
				}
			}
		}
	}
	if inc, ok := update["$inc"].(bson.M); ok {
		for k, v := range inc {
			delta, _ := toFloat(v)
			current, _ := toFloat(doc[k])
			doc[k] = int64(current + delta)
		}
	}
}
