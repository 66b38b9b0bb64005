// Package placement implements the policies that choose which silo should
// host a given actor identity. Every policy shares the contract that
// selecting from an empty candidate set returns ("", false) — spec §4.4 /
// invariant 5 ("placement policy returns none iff candidate list is empty").
package placement

import (
	"math/rand/v2"
	"sort"
	"sync/atomic"

	"github.com/silocore/vactor/internal/locality"
	"github.com/silocore/vactor/internal/ring"
)

// Policy selects a silo for (actorID, actorType) from an ordered list of
// candidate silo IDs. It returns ("", false) iff candidates is empty.
type Policy interface {
	SelectSilo(actorID, actorType string, candidates []string) (string, bool)
}

// Random uniformly chooses among the candidates.
type Random struct{}

// SelectSilo implements Policy.
func (Random) SelectSilo(_, _ string, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	return candidates[rand.IntN(len(candidates))], true
}

// ConsistentHash returns the hash-ring owner of actorID intersected with
// candidates, walking the ring clockwise to the next candidate if the ring
// owner itself isn't a candidate.
type ConsistentHash struct {
	Ring *ring.Ring
}

// NewConsistentHash constructs a ConsistentHash policy backed by r.
func NewConsistentHash(r *ring.Ring) *ConsistentHash {
	return &ConsistentHash{Ring: r}
}

// SelectSilo implements Policy.
func (c *ConsistentHash) SelectSilo(actorID, _ string, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	set := make(map[string]struct{}, len(candidates))
	for _, cand := range candidates {
		set[cand] = struct{}{}
	}

	return c.Ring.WalkClockwise(actorID, set)
}

// LocalPreferred returns localSiloID whenever it's a candidate, falling
// back to consistent hashing otherwise.
type LocalPreferred struct {
	LocalSiloID string
	fallback    *ConsistentHash
}

// NewLocalPreferred constructs a LocalPreferred policy. localSiloID is
// returned whenever present in the candidate list; otherwise it falls back
// to hash-ring placement over r.
func NewLocalPreferred(localSiloID string, r *ring.Ring) *LocalPreferred {
	return &LocalPreferred{
		LocalSiloID: localSiloID,
		fallback:    NewConsistentHash(r),
	}
}

// SelectSilo implements Policy.
func (l *LocalPreferred) SelectSilo(actorID, actorType string, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	for _, cand := range candidates {
		if cand == l.LocalSiloID {
			return l.LocalSiloID, true
		}
	}

	return l.fallback.SelectSilo(actorID, actorType, candidates)
}

// StatelessWorker round-robins over the candidate list using a
// monotonically advancing counter shared across calls, independent of
// actorID. Over k*len(candidates) placements each silo receives exactly k,
// matching internal/actorutil.Pool's round-robin counter idiom.
type StatelessWorker struct {
	next atomic.Uint64
}

// NewStatelessWorker constructs a fresh round-robin policy.
func NewStatelessWorker() *StatelessWorker {
	return &StatelessWorker{}
}

// SelectSilo implements Policy.
func (s *StatelessWorker) SelectSilo(_, _ string, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	idx := s.next.Add(1) - 1
	return candidates[idx%uint64(len(candidates))], true
}

// Directory maps an actorID to the siloID currently hosting its activation,
// as consulted by LocalityAware when scoring candidates by where an actor's
// hot peers currently live.
type Directory interface {
	// Lookup returns the silo hosting actorID, or ("", false) if unknown.
	Lookup(actorID string) (string, bool)
}

// MapDirectory is a minimal in-memory Directory implementation.
type MapDirectory map[string]string

// Lookup implements Directory.
func (m MapDirectory) Lookup(actorID string) (string, bool) {
	siloID, ok := m[actorID]
	return siloID, ok
}

// LocalityAwareOptions configures LocalityAware.
type LocalityAwareOptions struct {
	// HotPeers bounds how many of the actor's hottest communication
	// partners are consulted when scoring candidates.
	HotPeers int
}

// DefaultLocalityAwareOptions returns sane defaults.
func DefaultLocalityAwareOptions() LocalityAwareOptions {
	return LocalityAwareOptions{HotPeers: 10}
}

// LocalityAware scores each candidate by how many of the actor's hot
// communication peers are already hosted there (weighted by edge message
// count), returning the highest-scoring candidate. It falls back to random
// placement if the communication graph has no edges for actorID or the
// directory resolves none of its peers.
type LocalityAware struct {
	Analyzer  *locality.Analyzer
	Directory Directory
	Options   LocalityAwareOptions
	fallback  Random
}

// NewLocalityAware constructs a LocalityAware policy.
func NewLocalityAware(analyzer *locality.Analyzer, dir Directory, opts LocalityAwareOptions) *LocalityAware {
	if opts.HotPeers <= 0 {
		opts.HotPeers = DefaultLocalityAwareOptions().HotPeers
	}

	return &LocalityAware{Analyzer: analyzer, Directory: dir, Options: opts}
}

// SelectSilo implements Policy.
func (l *LocalityAware) SelectSilo(actorID, actorType string, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	edges := l.Analyzer.EdgesFrom(actorID)
	if len(edges) == 0 {
		return l.fallback.SelectSilo(actorID, actorType, candidates)
	}

	if len(edges) > l.Options.HotPeers {
		sort.Slice(edges, func(i, j int) bool {
			return edges[i].MessageCount > edges[j].MessageCount
		})
		edges = edges[:l.Options.HotPeers]
	}

	scores := make(map[string]int64)
	for _, edge := range edges {
		siloID, ok := l.Directory.Lookup(edge.To)
		if !ok {
			continue
		}
		scores[siloID] += edge.MessageCount
	}

	if len(scores) == 0 {
		return l.fallback.SelectSilo(actorID, actorType, candidates)
	}

	var (
		best      []string
		bestScore int64
	)
	for _, cand := range candidates {
		score, ok := scores[cand]
		if !ok {
			continue
		}
		switch {
		case score > bestScore || best == nil:
			best = []string{cand}
			bestScore = score
		case score == bestScore:
			best = append(best, cand)
		}
	}

	if len(best) == 0 {
		return l.fallback.SelectSilo(actorID, actorType, candidates)
	}

	return best[rand.IntN(len(best))], true
}
