package codec

import "fmt"

// Names lists the record codecs selectable by configuration.
var Names = []string{"json", "bson", "cbor", "msgpack", "protobuf"}

// ForRecords returns the record codec registered under name.
func ForRecords(name string) (Codec[Record], error) {
	switch name {
	case "", "json":
		return JSON[Record]{}, nil
	case "bson":
		return BSON[Record]{}, nil
	case "cbor":
		return NewCBOR[Record](true)
	case "msgpack":
		return Msgpack[Record]{}, nil
	case "protobuf":
		return StructPB{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
