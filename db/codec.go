package db

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Encode turns a bson tagged struct into a Document.
func Encode(v interface{}) (Document, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := Document{}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decode fills a bson tagged struct from a Document.
func Decode(doc Document, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := Decode(doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// canonical runs a single value through the bson codec so that stored
// values have the same representation whatever the caller passed in.
func canonical(v interface{}) (interface{}, error) {
	if _, ok := v.(serverTimestamp); ok {
		return v, nil
	}
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out["v"], nil
}

// plain converts bson container types into plain maps and slices and
// bson datetimes into time.Time.
func plain(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.M:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	default:
		return v
	}
}
