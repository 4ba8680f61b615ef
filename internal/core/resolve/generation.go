package resolve

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
)

// generation is an ephemeral grouping of slices that share an identical
// dimension-key set and signature bundle. Slices collected under different
// partitioning schemes or taxonomy versions land in different generations
// and are never mixed, even when both "look like channel data". Recomputed
// fresh on every call; no persistent identity.
type generation struct {
	dims    []string // sorted dimension keys; empty for uncontexted
	bundle  string   // canonical signature restricted to core + dims
	key     string   // deterministic compact identifier
	members []member
}

// signatureBundle renders the part of a signature that matters for a given
// key set: the core hash plus the context hash of each key in the set.
func signatureBundle(sig v1.Signature, dims []string) string {
	var b strings.Builder
	b.WriteString("core=")
	b.WriteString(sig.CoreHash)
	for _, k := range dims {
		b.WriteString(";")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(sig.ContextHash(k))
	}
	return b.String()
}

// generationKey compacts (dims, bundle) into a stable identifier. FNV-32a
// keeps the key short without sacrificing determinism.
func generationKey(dims []string, bundle string) string {
	h := fnv.New32a()
	h.Write([]byte(bundle))
	return strings.Join(dims, "|") + "#" + strconv.FormatUint(uint64(h.Sum32()), 16)
}

// group partitions members into generations: first by exact dimension-key
// set, then by signature bundle within the key set. The second split is what
// prevents silently merging data collected under different taxonomy versions
// into one apparently complete partition. Output is sorted by key so every
// later stage iterates deterministically.
func group(members []member) []*generation {
	byKey := make(map[string]*generation)

	for _, m := range members {
		dims := make([]string, 0, len(m.values))
		for k := range m.values {
			dims = append(dims, k)
		}
		sort.Strings(dims)

		bundle := signatureBundle(m.sig, dims)
		key := generationKey(dims, bundle)

		g, ok := byKey[key]
		if !ok {
			g = &generation{dims: dims, bundle: bundle, key: key}
			byKey[key] = g
		}
		g.members = append(g.members, m)
	}

	out := make([]*generation, 0, len(byKey))
	for _, g := range byKey {
		sort.Slice(g.members, func(i, j int) bool { return g.members[i].slice.ID < g.members[j].slice.ID })
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// dimsKey is the tie-break form of a generation's key set.
func (g *generation) dimsKey() string {
	return strings.Join(g.dims, "|")
}

// hasDim reports whether the generation partitions by key.
func (g *generation) hasDim(key string) bool {
	for _, d := range g.dims {
		if d == key {
			return true
		}
	}
	return false
}
