package wire

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func mustDecodeList(t *testing.T, b []byte) [][]byte {
	t.Helper()
	items, err := DecodeList(b)
	if err != nil {
		t.Fatalf("DecodeList error: %v", err)
	}
	return items
}

func mustEncodeList(t *testing.T, items [][]byte) []byte {
	t.Helper()
	enc, err := EncodeList(items)
	if err != nil {
		t.Fatalf("EncodeList error: %v", err)
	}
	return enc
}

func TestListRoundTrip(t *testing.T) {
	cases := [][][]byte{
		nil, // n=0
		{[]byte("x")},
		{[]byte("x"), nil, {9, 8, 7}}, // empty payload in the middle
		{[]byte("dup"), []byte("dup")},
	}
	for _, items := range cases {
		got := mustDecodeList(t, mustEncodeList(t, items))
		if len(got) != len(items) {
			t.Fatalf("len mismatch: got %d want %d", len(got), len(items))
		}
		for i := range items {
			if !bytes.Equal(got[i], items[i]) {
				t.Fatalf("item %d mismatch: got=%x want=%x", i, got[i], items[i])
			}
		}
	}
}

func TestListPreservesOrder(t *testing.T) {
	got := mustDecodeList(t, mustEncodeList(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}))
	if string(got[0]) != "a" || string(got[1]) != "b" || string(got[2]) != "c" {
		t.Fatalf("order lost: %q", got)
	}
}

func TestListRejectsTrailingBytes(t *testing.T) {
	enc := mustEncodeList(t, [][]byte{[]byte("v")})
	enc = append(enc, 0xBE, 0xEF)
	if _, err := DecodeList(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestListBogusCountAndTruncation(t *testing.T) {
	// Wrong n (very large) with no items -> must error, not panic or allocate.
	var buf bytes.Buffer
	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindList)
	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], ^uint32(0))
	buf.Write(u4[:])
	if _, err := DecodeList(buf.Bytes()); err == nil {
		t.Fatalf("expected error on bogus n with insufficient bytes")
	}

	// Declare n=1 but provide no item body -> error
	buf.Reset()
	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindList)
	binary.BigEndian.PutUint32(u4[:], 1)
	buf.Write(u4[:])
	if _, err := DecodeList(buf.Bytes()); err == nil {
		t.Fatalf("expected error on truncated item list")
	}

	enc := mustEncodeList(t, [][]byte{[]byte("abc")})
	if _, err := DecodeList(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated payload")
	}
}

func TestListCorruptHeaders(t *testing.T) {
	enc := mustEncodeList(t, [][]byte{[]byte("xyz")})

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := DecodeList(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := DecodeList(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	badKind := append([]byte(nil), enc...)
	badKind[5] = kindList + 1
	if _, err := DecodeList(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	// vlen of the first item sits right after the 10-byte header
	badVlen := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(badVlen[10:14], uint32(len("xyz")+1))
	if _, err := DecodeList(badVlen); err == nil {
		t.Fatalf("expected error on vlen beyond buffer")
	}
}

func TestListRejectsPlainPayload(t *testing.T) {
	// an unframed value written by an overwrite store must not parse as a list
	if _, err := DecodeList([]byte(`{"user":"alice"}`)); err == nil {
		t.Fatalf("expected error on unframed payload")
	}
}

func TestListZeroCopyPayloadSlices(t *testing.T) {
	enc := mustEncodeList(t, [][]byte{[]byte("X"), []byte("Y")})
	got := mustDecodeList(t, enc)

	// mutate decoded payload. should mutate underlying enc bytes
	got[0][0] = 'Q'
	got2 := mustDecodeList(t, enc)
	if got2[0][0] != 'Q' {
		t.Fatalf("expected zero-copy payload subslices into enc buffer")
	}
}

func TestListAppendDoesNotClobberNeighbour(t *testing.T) {
	enc := mustEncodeList(t, [][]byte{[]byte("A"), []byte("B")})
	got := mustDecodeList(t, enc)
	// capacity is clipped, so appending to one item must reallocate
	_ = append(got[0], 'Z')
	if got[1][0] != 'B' {
		t.Fatalf("append to item 0 overwrote item 1")
	}
}
