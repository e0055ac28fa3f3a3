package kvstore

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The store calls them on hot paths.
type Hooks interface {
	// The backend declined a write (in-process caches under pressure).
	WriteDropped(storageKey string)

	// A stored payload could not be decoded and the read failed.
	// reason ∈ {"frame", "codec"}
	DecodeFailed(storageKey, reason string, err error)

	// A backend call failed.
	// op ∈ {"get", "set", "delete", "expire"}
	BackendFailed(op, storageKey string, err error)

	// An append rewrote a collection that now holds n items.
	Appended(storageKey string, n int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) WriteDropped(string)                 {}
func (NopHooks) DecodeFailed(string, string, error)  {}
func (NopHooks) BackendFailed(string, string, error) {}
func (NopHooks) Appended(string, int)                {}

// MultiHooks fans every event out to each member in order.
type MultiHooks []Hooks

var _ Hooks = MultiHooks(nil)

func (m MultiHooks) WriteDropped(k string) {
	for _, h := range m {
		h.WriteDropped(k)
	}
}

func (m MultiHooks) DecodeFailed(k, reason string, err error) {
	for _, h := range m {
		h.DecodeFailed(k, reason, err)
	}
}

func (m MultiHooks) BackendFailed(op, k string, err error) {
	for _, h := range m {
		h.BackendFailed(op, k, err)
	}
}

func (m MultiHooks) Appended(k string, n int) {
	for _, h := range m {
		h.Appended(k, n)
	}
}
