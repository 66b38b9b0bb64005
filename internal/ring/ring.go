// Package ring implements a consistent-hash ring used by the placement
// subsystem to map actor identities onto candidate silos. Lookups are
// lock-free; membership changes copy-and-swap the underlying point slice so
// readers never block writers (spec §5: "the hash ring is copy-on-write on
// membership change; lookups never block writers").
package ring

import (
	"hash/fnv"
	"sort"
	"strconv"
	"sync/atomic"
)

// DefaultVirtualNodes is the number of ring points contributed by each
// logical node when none is specified.
const DefaultVirtualNodes = 100

// point is one position on the ring.
type point struct {
	hash   uint64
	nodeID string
}

// snapshot is an immutable, sorted view of the ring's points. Ring swaps the
// atomic pointer to a new snapshot on every membership change instead of
// mutating in place.
type snapshot struct {
	points []point
}

// Ring is a consistent-hash ring over a set of logical nodes, each
// contributing a configurable number of virtual points. It is safe for
// concurrent use: Lookup never blocks on AddNode/RemoveNode and vice versa.
type Ring struct {
	virtualNodes int
	current      atomic.Pointer[snapshot]
}

// NewRing creates an empty ring. virtualNodes controls how many points each
// node contributes; values <= 0 fall back to DefaultVirtualNodes.
func NewRing(virtualNodes int) *Ring {
	if virtualNodes <= 0 {
		virtualNodes = DefaultVirtualNodes
	}

	r := &Ring{virtualNodes: virtualNodes}
	r.current.Store(&snapshot{})

	return r
}

// hashKey computes a 64-bit FNV-1a hash of the input string.
func hashKey(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// AddNode adds a logical node to the ring, contributing r.virtualNodes
// points. Adding a node already present replaces its existing points (it is
// not idempotent in the sense of being a no-op, but the end state is the
// same set of points for that node).
func (r *Ring) AddNode(nodeID string) {
	old := r.current.Load()

	filtered := make([]point, 0, len(old.points))
	for _, p := range old.points {
		if p.nodeID != nodeID {
			filtered = append(filtered, p)
		}
	}

	for i := 0; i < r.virtualNodes; i++ {
		vKey := nodeID + "#" + strconv.Itoa(i)
		filtered = append(filtered, point{hash: hashKey(vKey), nodeID: nodeID})
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].hash < filtered[j].hash
	})

	r.current.Store(&snapshot{points: filtered})
}

// RemoveNode removes all points belonging to nodeID from the ring.
func (r *Ring) RemoveNode(nodeID string) {
	old := r.current.Load()

	filtered := make([]point, 0, len(old.points))
	for _, p := range old.points {
		if p.nodeID != nodeID {
			filtered = append(filtered, p)
		}
	}

	r.current.Store(&snapshot{points: filtered})
}

// Lookup returns the node owning key: the node of the smallest point with
// hash >= hash(key), wrapping around to the first point if key's hash
// exceeds every point's hash. Lookup returns ("", false) if the ring has no
// nodes.
func (r *Ring) Lookup(key string) (string, bool) {
	snap := r.current.Load()
	if len(snap.points) == 0 {
		return "", false
	}

	h := hashKey(key)
	idx := sort.Search(len(snap.points), func(i int) bool {
		return snap.points[i].hash >= h
	})
	if idx == len(snap.points) {
		idx = 0
	}

	return snap.points[idx].nodeID, true
}

// Nodes returns the distinct set of logical node IDs currently on the ring.
func (r *Ring) Nodes() []string {
	snap := r.current.Load()

	seen := make(map[string]struct{})
	nodes := make([]string, 0)
	for _, p := range snap.points {
		if _, ok := seen[p.nodeID]; !ok {
			seen[p.nodeID] = struct{}{}
			nodes = append(nodes, p.nodeID)
		}
	}

	return nodes
}

// WalkClockwise returns the first node starting at key's ring position
// (inclusive) that is also present in candidates, walking clockwise and
// wrapping around at most once. It returns ("", false) if no point's node
// is in candidates.
func (r *Ring) WalkClockwise(key string, candidates map[string]struct{}) (string, bool) {
	snap := r.current.Load()
	n := len(snap.points)
	if n == 0 {
		return "", false
	}

	h := hashKey(key)
	start := sort.Search(n, func(i int) bool {
		return snap.points[i].hash >= h
	})

	for i := 0; i < n; i++ {
		p := snap.points[(start+i)%n]
		if _, ok := candidates[p.nodeID]; ok {
			return p.nodeID, true
		}
	}

	return "", false
}
