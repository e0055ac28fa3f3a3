package util

// StorageKey isolates a caller key inside a namespace.
// An empty namespace leaves the key untouched so stores can share data written
// by other clients of the same backend.
func StorageKey(ns, key string) string {
	if ns == "" {
		return key
	}
	return ns + ":" + key
}
