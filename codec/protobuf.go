package codec

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *mypb.Session { return &mypb.Session{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}

// StructPB stores schemaless records as google.protobuf.Struct.
// Numbers come back as float64, as with JSON.
type StructPB struct{}

func (StructPB) Encode(r Record) ([]byte, error) {
	s, err := structpb.NewStruct(r)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func (StructPB) Decode(b []byte) (Record, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return s.AsMap(), nil
}
