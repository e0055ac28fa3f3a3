package kvstore

import (
	"errors"
	"fmt"
)

// Kind classifies a storage failure. The set is closed; callers branch on it
// with KindOf or errors.Is against the Err* sentinels.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindConnectionFailed: backend unreachable or misconfigured at init. Fatal.
	KindConnectionFailed
	KindSerializationFailed
	KindDeserializationFailed
	KindBackendWriteFailed
	KindBackendReadFailed
	KindBackendDeleteFailed
	// KindUnsupported: the backend lacks the capability (Expire on a durable store).
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindConnectionFailed:
		return "connection failed"
	case KindSerializationFailed:
		return "serialization failed"
	case KindDeserializationFailed:
		return "deserialization failed"
	case KindBackendWriteFailed:
		return "backend write failed"
	case KindBackendReadFailed:
		return "backend read failed"
	case KindBackendDeleteFailed:
		return "backend delete failed"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrConnectionFailed      = &Error{Kind: KindConnectionFailed}
	ErrSerializationFailed   = &Error{Kind: KindSerializationFailed}
	ErrDeserializationFailed = &Error{Kind: KindDeserializationFailed}
	ErrBackendWriteFailed    = &Error{Kind: KindBackendWriteFailed}
	ErrBackendReadFailed     = &Error{Kind: KindBackendReadFailed}
	ErrBackendDeleteFailed   = &Error{Kind: KindBackendDeleteFailed}
	ErrUnsupported           = &Error{Kind: KindUnsupported}
)

// Error is returned by every store and connect operation.
type Error struct {
	Kind Kind
	Op   string // "init", "set", "get", "delete", "expire"
	Key  string // caller key, empty for init
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Key != "" && e.Err != nil:
		return fmt.Sprintf("kvstore: %s %q: %s: %v", e.Op, e.Key, e.Kind, e.Err)
	case e.Key != "":
		return fmt.Sprintf("kvstore: %s %q: %s", e.Op, e.Key, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("kvstore: %s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("kvstore: %s: %s", e.Op, e.Kind)
	default:
		return "kvstore: " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Key == "" && t.Err == nil
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op, key string, err error) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}
