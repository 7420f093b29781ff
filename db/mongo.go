package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

/*
* Connect to the given uri and ping the primary
* Transactions need a replica set or sharded cluster
 */
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, database: client.Database(database)}, nil
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.database.Collection(name)
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	return mongoGet(ctx, s.collection(collection), id)
}

func (s *MongoStore) Find(ctx context.Context, q Query) ([]Document, error) {
	return mongoFind(ctx, s.collection(q.Collection), q)
}

func mongoFind(ctx context.Context, coll *mongo.Collection, q Query) ([]Document, error) {
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: IDField, Value: 1}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cursor, err := coll.Find(ctx, mongoFilter(q.Where), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *MongoStore) Create(ctx context.Context, collection, id string, doc Document) error {
	return mongoCreate(ctx, s.collection(collection), id, doc)
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, doc Document) error {
	return mongoSet(ctx, s.collection(collection), id, doc)
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, m Mutation) error {
	return mongoUpdate(ctx, s.collection(collection), id, m)
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.collection(collection).DeleteOne(ctx, bson.M{IDField: id})
	return err
}

/*
* Start a session and run fn through WithTransaction
* The driver retries fn on transient transaction errors
* Every operation made through tx is bound to the session context
 */
func (s *MongoStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &mongoTx{store: s})
	})
	return err
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoTx struct {
	store *MongoStore
}

func (tx *mongoTx) Get(ctx context.Context, collection, id string) (Document, error) {
	return mongoGet(ctx, tx.store.collection(collection), id)
}

func (tx *mongoTx) Find(ctx context.Context, q Query) ([]Document, error) {
	return mongoFind(ctx, tx.store.collection(q.Collection), q)
}

func (tx *mongoTx) Create(ctx context.Context, collection, id string, doc Document) error {
	return mongoCreate(ctx, tx.store.collection(collection), id, doc)
}

func (tx *mongoTx) Set(ctx context.Context, collection, id string, doc Document) error {
	return mongoSet(ctx, tx.store.collection(collection), id, doc)
}

func (tx *mongoTx) Update(ctx context.Context, collection, id string, m Mutation) error {
	return mongoUpdate(ctx, tx.store.collection(collection), id, m)
}

func (tx *mongoTx) Delete(ctx context.Context, collection, id string) error {
	_, err := tx.store.collection(collection).DeleteOne(ctx, bson.M{IDField: id})
	return err
}

func mongoGet(ctx context.Context, coll *mongo.Collection, id string) (Document, error) {
	var doc Document
	err := coll.FindOne(ctx, bson.M{IDField: id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func mongoCreate(ctx context.Context, coll *mongo.Collection, id string, doc Document) error {
	_, err := coll.InsertOne(ctx, mongoDoc(id, doc))
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

func mongoSet(ctx context.Context, coll *mongo.Collection, id string, doc Document) error {
	_, err := coll.ReplaceOne(ctx, bson.M{IDField: id}, mongoDoc(id, doc), options.Replace().SetUpsert(true))
	return err
}

func mongoDoc(id string, doc Document) Document {
	stored := Document{}
	for k, v := range doc {
		stored[k] = mongoValue(v)
	}
	stored[IDField] = id
	return stored
}

func mongoUpdate(ctx context.Context, coll *mongo.Collection, id string, m Mutation) error {
	update := mongoUpdateDoc(m)
	if len(update) == 0 {
		count, err := coll.CountDocuments(ctx, bson.M{IDField: id})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return nil
	}
	res, err := coll.UpdateOne(ctx, bson.M{IDField: id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func mongoUpdateDoc(m Mutation) bson.M {
	update := bson.M{}
	if len(m.Set) > 0 {
		set := bson.M{}
		for k, v := range m.Set {
			set[k] = mongoValue(v)
		}
		update["$set"] = set
	}
	if len(m.Unset) > 0 {
		unset := bson.M{}
		for _, k := range m.Unset {
			unset[k] = ""
		}
		update["$unset"] = unset
	}
	if len(m.Inc) > 0 {
		inc := bson.M{}
		for k, v := range m.Inc {
			inc[k] = v
		}
		update["$inc"] = inc
	}
	if len(m.Union) > 0 {
		add := bson.M{}
		for k, vs := range m.Union {
			add[k] = bson.M{"$each": vs}
		}
		update["$addToSet"] = add
	}
	if len(m.Remove) > 0 {
		pull := bson.M{}
		for k, vs := range m.Remove {
			pull[k] = bson.M{"$in": vs}
		}
		update["$pull"] = pull
	}
	return update
}

func mongoValue(v interface{}) interface{} {
	if _, ok := v.(serverTimestamp); ok {
		return time.Now().UTC()
	}
	return v
}

var mongoOps = map[Op]string{
	Ne:  "$ne",
	Lt:  "$lt",
	Lte: "$lte",
	Gt:  "$gt",
	Gte: "$gte",
}

func mongoFilter(conds []Cond) bson.M {
	if len(conds) == 0 {
		return bson.M{}
	}
	clauses := make([]bson.M, 0, len(conds))
	for _, c := range conds {
		if c.Op == Eq {
			clauses = append(clauses, bson.M{c.Field: c.Value})
			continue
		}
		clauses = append(clauses, bson.M{c.Field: bson.M{mongoOps[c.Op]: c.Value}})
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return bson.M{"$and": clauses}
}
