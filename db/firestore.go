package db

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect firestore: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	return fromSnapshot(snap, err)
}

func (s *FirestoreStore) Find(ctx context.Context, q Query) ([]Document, error) {
	query, serverSort := firestoreQuery(s.client, q)
	return firestoreCollect(query.Documents(ctx), q, serverSort)
}

/*
* Firestore needs the first order field to match an inequality filter
* When they differ the ordering and limit are applied after the read
 */
func firestoreQuery(client *firestore.Client, q Query) (firestore.Query, bool) {
	query := client.Collection(q.Collection).Query
	rangeField := ""
	for _, c := range q.Where {
		query = query.Where(c.Field, string(c.Op), firestoreValue(c.Value))
		if c.Op != Eq && rangeField == "" {
			rangeField = c.Field
		}
	}
	serverSort := q.OrderBy != "" && (rangeField == "" || rangeField == q.OrderBy)
	if serverSort {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
		if q.Limit > 0 {
			query = query.Limit(q.Limit)
		}
	} else if q.OrderBy == "" && q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query, serverSort
}

func firestoreCollect(iter *firestore.DocumentIterator, q Query, serverSort bool) ([]Document, error) {
	defer iter.Stop()
	var docs []Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		doc, err := fromSnapshot(snap, err)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if !serverSort {
		if q.OrderBy != "" {
			sortDocuments(docs, q.OrderBy, q.Desc)
		}
		if q.Limit > 0 && len(docs) > q.Limit {
			docs = docs[:q.Limit]
		}
	}
	return docs, nil
}

func (s *FirestoreStore) Create(ctx context.Context, collection, id string, doc Document) error {
	_, err := s.client.Collection(collection).Doc(id).Create(ctx, firestoreData(doc))
	return firestoreErr(err)
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, doc Document) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, firestoreData(doc))
	return firestoreErr(err)
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, m Mutation) error {
	ref := s.client.Collection(collection).Doc(id)
	updates := firestoreUpdates(m)
	if len(updates) == 0 {
		_, err := ref.Get(ctx)
		return firestoreErr(err)
	}
	_, err := ref.Update(ctx, updates)
	return firestoreErr(err)
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	return firestoreErr(err)
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{client: s.client, tx: t})
	})
}

func (s *FirestoreStore) Close(ctx context.Context) error {
	return s.client.Close()
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	return fromSnapshot(snap, err)
}

func (t *firestoreTx) Find(ctx context.Context, q Query) ([]Document, error) {
	query, serverSort := firestoreQuery(t.client, q)
	return firestoreCollect(t.tx.Documents(query), q, serverSort)
}

func (t *firestoreTx) Create(ctx context.Context, collection, id string, doc Document) error {
	return t.tx.Create(t.client.Collection(collection).Doc(id), firestoreData(doc))
}

func (t *firestoreTx) Set(ctx context.Context, collection, id string, doc Document) error {
	return t.tx.Set(t.client.Collection(collection).Doc(id), firestoreData(doc))
}

func (t *firestoreTx) Update(ctx context.Context, collection, id string, m Mutation) error {
	updates := firestoreUpdates(m)
	if len(updates) == 0 {
		return nil
	}
	return t.tx.Update(t.client.Collection(collection).Doc(id), updates)
}

func (t *firestoreTx) Delete(ctx context.Context, collection, id string) error {
	return t.tx.Delete(t.client.Collection(collection).Doc(id))
}

func fromSnapshot(snap *firestore.DocumentSnapshot, err error) (Document, error) {
	if err != nil {
		return nil, firestoreErr(err)
	}
	if !snap.Exists() {
		return nil, ErrNotFound
	}
	doc := Document{}
	for k, v := range snap.Data() {
		doc[k] = v
	}
	doc[IDField] = snap.Ref.ID
	return doc, nil
}

func firestoreErr(err error) error {
	switch status.Code(err) {
	case codes.OK:
		return err
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrAlreadyExists
	default:
		return err
	}
}

func firestoreValue(v interface{}) interface{} {
	if _, ok := v.(serverTimestamp); ok {
		return firestore.ServerTimestamp
	}
	c, err := canonical(v)
	if err != nil {
		return v
	}
	return plain(c)
}

func firestoreData(doc Document) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		out[k] = firestoreValue(v)
	}
	return out
}

func firestoreUpdates(m Mutation) []firestore.Update {
	var updates []firestore.Update
	for k, v := range m.Set {
		updates = append(updates, firestore.Update{Path: k, Value: firestoreValue(v)})
	}
	for _, k := range m.Unset {
		updates = append(updates, firestore.Update{Path: k, Value: firestore.Delete})
	}
	for k, v := range m.Inc {
		updates = append(updates, firestore.Update{Path: k, Value: firestore.Increment(v)})
	}
	for k, vs := range m.Union {
		updates = append(updates, firestore.Update{Path: k, Value: firestore.ArrayUnion(firestoreValues(vs)...)})
	}
	for k, vs := range m.Remove {
		updates = append(updates, firestore.Update{Path: k, Value: firestore.ArrayRemove(firestoreValues(vs)...)})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Path < updates[j].Path })
	return updates
}

func firestoreValues(vs []interface{}) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = firestoreValue(v)
	}
	return out
}
