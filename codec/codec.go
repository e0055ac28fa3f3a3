// Package codec converts application values to and from the bytes a backend stores.
//
// Codecs never substitute a default on failure: an Encode or Decode error is
// returned as is and the store reports it as a serialization or deserialization
// failure.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Record is the schemaless document shape served over HTTP.
type Record = map[string]any
