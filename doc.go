// Package kvstore implements a backend-agnostic key-value store: one contract
// over a durable document store (MongoDB, or a local bbolt file) and an
// ephemeral cache (Redis, or an in-process cache).
//
// Components:
//   - Backend: byte store with TTL (see package backend and its subpackages).
//     Obtain one from a connection URL with connect.Open.
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Store[V, R]: the contract callers use. NewValues gives overwrite
//     semantics (Get returns V); NewLog gives append semantics (Get returns []V).
//
// Expiry:
//
//	SetWithExpiry(ctx, k, v, ttl) // ttl <= 0 => gone immediately, never "no expiry"
//	Set(ctx, k, v)                // clears any earlier expiry on k
//
// Durable backends reap expired entries in the background and filter them on
// read until then. Caches expire whole keys natively and also support Expire.
//
// Keys:
//
//	<ns>:<key>  - when Options.Namespace is set
//	<key>       - otherwise
//
// Failures are *Error values carrying a Kind; a missing or expired key is
// ok=false with a nil error.
package kvstore
