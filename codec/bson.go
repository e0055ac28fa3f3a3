package codec

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// BSON encodes V as a BSON document. Paired with the mongo backend, overwrite
// stores then keep each value as a native embedded document instead of an
// opaque binary blob.
//
// V must marshal to a document (struct, map, bson.D); scalars and slices fail
// on Encode.
type BSON[V any] struct{}

func (BSON[V]) Encode(v V) ([]byte, error) {
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("bson encode: %w", err)
	}
	return b, nil
}

func (BSON[V]) Decode(b []byte) (V, error) {
	var v V
	if err := bson.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("bson decode: %w", err)
	}
	return v, nil
}
