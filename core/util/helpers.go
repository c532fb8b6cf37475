package util

import (
	"cmp"
	"slices"
)

// SortedKeys returns the keys of m in ascending order.
//
// Map iteration order is random in Go; this helper is used wherever output must
// be reproducible across runs.
//
// Example:
//
//	for _, id := range util.SortedKeys(accounts) {
//		rows = append(rows, accounts[id].snapshot())
//	}
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
