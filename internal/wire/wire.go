// Package wire frames the ordered collections kept by append stores.
//
// Overwrite stores hand the codec payload to the backend unframed, so a
// document store can keep it as a native document. Append stores need the
// item boundaries, which this package records.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const (
	version  byte = 1
	kindList byte = 1
	hdrLen        = 4 + 1 + 1 + 4
)

var (
	ErrCorrupt  = errors.New("kvstore: corrupt collection")
	ErrTooLarge = errors.New("kvstore: collection item too large")
	magic4      = [...]byte{'K', 'V', 'L', 'S'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// List:
//
//	magic(4) | ver(1) | kind(1=list) | n(u32 be)
//	vlen(u32 be) | payload(vlen) * n
func EncodeList(items [][]byte) ([]byte, error) {
	total := hdrLen
	for _, it := range items {
		if uint64(len(it)) > math.MaxUint32 {
			return nil, ErrTooLarge
		}
		total += 4 + len(it)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindList)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(items)))
	buf.Write(u4[:])

	for _, it := range items {
		binary.BigEndian.PutUint32(u4[:], uint32(len(it)))
		buf.Write(u4[:])
		buf.Write(it)
	}
	return buf.Bytes(), nil
}

// DecodeList returns the item payloads as subslices of b (no copy).
// Trailing bytes after the last item are treated as corruption.
func DecodeList(b []byte) ([][]byte, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version || b[5] != kindList {
		return nil, ErrCorrupt
	}

	off := 6
	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// every item needs at least its 4-byte length
	if n < 0 || n > (len(b)-off)/4 {
		return nil, ErrCorrupt
	}

	items := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if vlen < 0 || vlen > len(b)-off { // overflow-safe bound check
			return nil, ErrCorrupt
		}
		items = append(items, b[off:off+vlen:off+vlen])
		off += vlen
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}
	return items, nil
}
