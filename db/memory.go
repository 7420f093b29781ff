package db

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps documents in process. Transactions are serialized
// and their writes are staged until commit.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]Document
	failWrites  error
	failReads   error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string]map[string]Document{}}
}

// FailCommits makes every following commit and direct write return err.
// Pass nil to restore normal behaviour.
func (s *MemoryStore) FailCommits(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

// FailReads makes every following read return err.
func (s *MemoryStore) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = err
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads != nil {
		return nil, s.failReads
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (s *MemoryStore) Find(ctx context.Context, q Query) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads != nil {
		return nil, s.failReads
	}
	return selectDocuments(s.collections[q.Collection], q), nil
}

func selectDocuments(docs map[string]Document, q Query) []Document {
	var out []Document
	for _, doc := range docs {
		if matches(doc, q.Where) {
			out = append(out, clone(doc))
		}
	}
	sortDocuments(out, q.OrderBy, q.Desc)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, doc Document) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Create(ctx, collection, id, doc)
	})
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc Document) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Set(ctx, collection, id, doc)
	})
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, m Mutation) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Update(ctx, collection, id, m)
	})
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Delete(ctx, collection, id)
	})
}

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s, staged: map[string]map[string]*Document{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if len(tx.staged) > 0 && s.failWrites != nil {
		return s.failWrites
	}
	for collection, docs := range tx.staged {
		if s.collections[collection] == nil {
			s.collections[collection] = map[string]Document{}
		}
		for id, doc := range docs {
			if doc == nil {
				delete(s.collections[collection], id)
				continue
			}
			s.collections[collection][id] = *doc
		}
	}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

type memoryTx struct {
	store  *MemoryStore
	staged map[string]map[string]*Document
}

func (tx *memoryTx) lookup(collection, id string) (Document, bool) {
	if docs, ok := tx.staged[collection]; ok {
		if doc, ok := docs[id]; ok {
			if doc == nil {
				return nil, false
			}
			return *doc, true
		}
	}
	doc, ok := tx.store.collections[collection][id]
	return doc, ok
}

func (tx *memoryTx) stage(collection, id string, doc *Document) {
	if tx.staged[collection] == nil {
		tx.staged[collection] = map[string]*Document{}
	}
	tx.staged[collection][id] = doc
}

func (tx *memoryTx) Get(ctx context.Context, collection, id string) (Document, error) {
	if tx.store.failReads != nil {
		return nil, tx.store.failReads
	}
	doc, ok := tx.lookup(collection, id)
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

// Find runs the query over committed documents overlaid with the
// transaction's staged writes.
func (tx *memoryTx) Find(ctx context.Context, q Query) ([]Document, error) {
	if tx.store.failReads != nil {
		return nil, tx.store.failReads
	}
	view := map[string]Document{}
	for id, doc := range tx.store.collections[q.Collection] {
		view[id] = doc
	}
	for id, doc := range tx.staged[q.Collection] {
		if doc == nil {
			delete(view, id)
			continue
		}
		view[id] = *doc
	}
	return selectDocuments(view, q), nil
}

func (tx *memoryTx) Create(ctx context.Context, collection, id string, doc Document) error {
	if _, ok := tx.lookup(collection, id); ok {
		return ErrAlreadyExists
	}
	return tx.Set(ctx, collection, id, doc)
}

func (tx *memoryTx) Set(ctx context.Context, collection, id string, doc Document) error {
	stored := Document{}
	for k, v := range doc {
		if k == IDField {
			continue
		}
		c, err := canonical(stampNow(v))
		if err != nil {
			return err
		}
		stored[k] = c
	}
	stored[IDField] = id
	tx.stage(collection, id, &stored)
	return nil
}

func (tx *memoryTx) Update(ctx context.Context, collection, id string, m Mutation) error {
	current, ok := tx.lookup(collection, id)
	if !ok {
		return ErrNotFound
	}
	next := clone(current)
	if err := apply(next, m); err != nil {
		return err
	}
	tx.stage(collection, id, &next)
	return nil
}

func (tx *memoryTx) Delete(ctx context.Context, collection, id string) error {
	tx.stage(collection, id, nil)
	return nil
}

func stampNow(v interface{}) interface{} {
	if _, ok := v.(serverTimestamp); ok {
		return time.Now().UTC()
	}
	return v
}

func apply(doc Document, m Mutation) error {
	for field, v := range m.Set {
		c, err := canonical(stampNow(v))
		if err != nil {
			return fmt.Errorf("set %s: %w", field, err)
		}
		doc[field] = c
	}
	for _, field := range m.Unset {
		delete(doc, field)
	}
	for field, delta := range m.Inc {
		switch cur := doc[field].(type) {
		case nil:
			doc[field] = delta
		case int32:
			doc[field] = int64(cur) + delta
		case int64:
			doc[field] = cur + delta
		case float64:
			doc[field] = cur + float64(delta)
		default:
			return fmt.Errorf("increment %s: field holds %T", field, cur)
		}
	}
	for field, values := range m.Union {
		arr := toArray(doc[field])
		for _, v := range values {
			c, err := canonical(v)
			if err != nil {
				return err
			}
			if !containsValue(arr, c) {
				arr = append(arr, c)
			}
		}
		doc[field] = arr
	}
	for field, values := range m.Remove {
		arr := toArray(doc[field])
		kept := primitive.A{}
		for _, have := range arr {
			drop := false
			for _, v := range values {
				c, err := canonical(v)
				if err != nil {
					return err
				}
				if equalValues(have, c) {
					drop = true
					break
				}
			}
			if !drop {
				kept = append(kept, have)
			}
		}
		if _, exists := doc[field]; exists {
			doc[field] = kept
		}
	}
	return nil
}

func toArray(v interface{}) primitive.A {
	switch t := v.(type) {
	case primitive.A:
		return append(primitive.A{}, t...)
	case []interface{}:
		return append(primitive.A{}, t...)
	default:
		return primitive.A{}
	}
}

func containsValue(arr primitive.A, v interface{}) bool {
	for _, have := range arr {
		if equalValues(have, v) {
			return true
		}
	}
	return false
}

func clone(doc Document) Document {
	raw, err := bson.Marshal(doc)
	if err != nil {
		out := Document{}
		for k, v := range doc {
			out[k] = v
		}
		return out
	}
	out := Document{}
	_ = bson.Unmarshal(raw, &out)
	return out
}

func lookupPath(doc Document, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case primitive.M:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]interface{}:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

func matches(doc Document, conds []Cond) bool {
	for _, c := range conds {
		v, ok := lookupPath(doc, c.Field)
		want, err := canonical(c.Value)
		if err != nil {
			return false
		}
		if c.Op == Ne {
			if ok && equalValues(v, want) {
				return false
			}
			continue
		}
		if !ok {
			return false
		}
		if c.Op == Eq {
			if !equalValues(v, want) {
				return false
			}
			continue
		}
		cmp, comparable := compareValues(v, want)
		if !comparable {
			return false
		}
		switch c.Op {
		case Lt:
			if cmp >= 0 {
				return false
			}
		case Lte:
			if cmp > 0 {
				return false
			}
		case Gt:
			if cmp <= 0 {
				return false
			}
		case Gte:
			if cmp < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func equalValues(a, b interface{}) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders numbers, strings, booleans and times. ok is false
// when the two values are not of comparable kinds.
func compareValues(a, b interface{}) (int, bool) {
	if af, ok := number(a); ok {
		bf, ok := number(b)
		if !ok {
			return 0, false
		}
		return cmpFloat(af, bf), true
	}
	if at, ok := instant(a); ok {
		bt, ok := instant(b)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func instant(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// sortDocuments orders by field, documents missing the field first. Ties
// fall back to the document id so results are stable.
func sortDocuments(docs []Document, orderBy string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		if orderBy != "" {
			a, aok := lookupPath(docs[i], orderBy)
			b, bok := lookupPath(docs[j], orderBy)
			if aok != bok {
				return !aok != desc
			}
			if cmp, ok := compareValues(a, b); ok && cmp != 0 {
				if desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		ai, _ := docs[i][IDField].(string)
		bi, _ := docs[j][IDField].(string)
		return ai < bi
	})
}
