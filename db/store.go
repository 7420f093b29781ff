package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// Document is a stored record. The "_id" key carries the document id.
type Document = bson.M

const IDField = "_id"

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

type Op string

const (
	Eq  Op = "=="
	Ne  Op = "!="
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
)

type Cond struct {
	Field string
	Op    Op
	Value interface{}
}

func Where(field string, op Op, value interface{}) Cond {
	return Cond{Field: field, Op: op, Value: value}
}

type Query struct {
	Collection string
	Where      []Cond
	OrderBy    string
	Desc       bool
	Limit      int
}

type serverTimestamp struct{}

// ServerTimestamp in a Set mutation is replaced by the commit time.
var ServerTimestamp = serverTimestamp{}

// Mutation is a field level change applied to one document. An empty
// mutation is a no-op.
type Mutation struct {
	Set    map[string]interface{}
	Unset  []string
	Inc    map[string]int64
	Union  map[string][]interface{}
	Remove map[string][]interface{}
}

func (m Mutation) Empty() bool {
	return len(m.Set) == 0 && len(m.Unset) == 0 && len(m.Inc) == 0 && len(m.Union) == 0 && len(m.Remove) == 0
}

// Tx is the view of the store inside a transaction. Reads must happen
// before writes.
type Tx interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Find sees the transaction's own staged writes where the driver
	// supports it.
	Find(ctx context.Context, q Query) ([]Document, error)
	Create(ctx context.Context, collection, id string, doc Document) error
	// Set writes doc whether or not the document exists.
	Set(ctx context.Context, collection, id string, doc Document) error
	Update(ctx context.Context, collection, id string, m Mutation) error
	Delete(ctx context.Context, collection, id string) error
}

type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Find(ctx context.Context, q Query) ([]Document, error)
	Create(ctx context.Context, collection, id string, doc Document) error
	Set(ctx context.Context, collection, id string, doc Document) error
	Update(ctx context.Context, collection, id string, m Mutation) error
	// Delete is idempotent, a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// RunTransaction commits every write made through tx or none of them.
	// fn may be invoked more than once when the driver retries contention.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close(ctx context.Context) error
}
