package resolve

import (
	"sort"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
)

// parseSignature decodes a slice's raw signature, consulting the injected
// cache when one is configured. Parsing is total: malformed documents yield
// ok=false and the slice is excluded like any other ineligible slice.
func parseSignature(raw []byte, cache SignatureCache) (v1.Signature, bool) {
	if cache != nil {
		if sig, ok := cache.Get(string(raw)); ok {
			return sig, true
		}
	}
	sig, ok := v1.ParseSignature(raw)
	if !ok {
		return v1.Signature{}, false
	}
	if cache != nil {
		cache.Put(string(raw), sig)
	}
	return sig, true
}

// hashUnavailable reports whether a context hash carries a sentinel value.
// Sentinels never match anything, including the same sentinel.
func hashUnavailable(h string) bool {
	return h == v1.HashMissing || h == v1.HashError || h == ""
}

// Compatible decides whether a slice's signature matches the query's over
// the dimension keys relevant to the comparison: the keys the slice was
// partitioned by. Keys the query asks for but the slice does not carry are
// a structural concern, not a signature one; the coverage stage reports
// those per generation. On failure the returned reason identifies which
// part of the identity diverged, so callers can distinguish a changed
// event definition from a changed taxonomy.
func Compatible(sliceSig, querySig v1.Signature, relevantKeys []string) (bool, string) {
	if sliceSig.CoreHash != querySig.CoreHash {
		return false, ReasonCoreHashMismatch
	}

	// Sorted iteration so the first failure reported is deterministic.
	keys := make([]string, len(relevantKeys))
	copy(keys, relevantKeys)
	sort.Strings(keys)

	for _, key := range keys {
		sliceHash := sliceSig.ContextHash(key)
		queryHash := querySig.ContextHash(key)

		// A key neither side ever recorded does not constrain compatibility.
		_, sliceHas := sliceSig.ContextHashes[key]
		_, queryHas := querySig.ContextHashes[key]
		if !sliceHas && !queryHas {
			continue
		}

		if hashUnavailable(sliceHash) || hashUnavailable(queryHash) {
			return false, ReasonContextHashUnavailable(key)
		}
		if sliceHash != queryHash {
			return false, ReasonContextDefChanged
		}
	}

	return true, ""
}

// sliceKeys is the sorted set of dimension keys the slice was partitioned by.
func sliceKeys(constraints map[string]string) []string {
	keys := make([]string, 0, len(constraints))
	for k := range constraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
