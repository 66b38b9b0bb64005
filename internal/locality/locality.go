// Package locality tracks pairwise actor-to-actor communication and exposes
// "hot pairs" to the placement subsystem's locality-aware policy. The
// mutex-guarded map shape follows the teacher's Receptionist
// (internal/baselib/actor/system.go), applied here to communication edges
// instead of service registrations.
package locality

import (
	"sort"
	"sync"
	"time"
)

// edgeKey identifies a directed (from, to) pair.
type edgeKey struct {
	from, to string
}

// Edge is one directed communication edge with aggregate metrics.
type Edge struct {
	From string
	To   string

	MessageCount int64
	TotalBytes   int64
	FirstSeen    time.Time
	LastSeen     time.Time
}

// Graph is a snapshot of the communication graph restricted to some time
// window.
type Graph struct {
	Edges []Edge
}

// Analyzer maintains a time-indexed, directed communication graph between
// actors and answers locality queries over it.
type Analyzer struct {
	mu    sync.RWMutex
	edges map[edgeKey]*Edge

	// now returns the current time; overridable for deterministic tests.
	now func() time.Time
}

// NewAnalyzer creates an empty locality Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		edges: make(map[edgeKey]*Edge),
		now:   time.Now,
	}
}

// RecordInteraction increments the (from, to) edge's message counter by one
// and its byte counter by bytes, refreshing LastSeen (and FirstSeen, if this
// is the edge's first observation).
func (a *Analyzer) RecordInteraction(from, to string, bytes int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := edgeKey{from: from, to: to}
	now := a.now()

	edge, ok := a.edges[key]
	if !ok {
		edge = &Edge{From: from, To: to, FirstSeen: now}
		a.edges[key] = edge
	}

	edge.MessageCount++
	edge.TotalBytes += bytes
	edge.LastSeen = now
}

// Graph returns the edges whose LastSeen lies within window of now. A
// window of 0 returns all edges regardless of age.
func (a *Analyzer) Graph(window time.Duration) Graph {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := a.now()

	g := Graph{}
	for _, edge := range a.edges {
		if window > 0 && now.Sub(edge.LastSeen) > window {
			continue
		}
		g.Edges = append(g.Edges, *edge)
	}

	return g
}

// EdgesFrom returns a copy of all outgoing edges from actorID.
func (a *Analyzer) EdgesFrom(actorID string) []Edge {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var edges []Edge
	for key, edge := range a.edges {
		if key.from == actorID {
			edges = append(edges, *edge)
		}
	}

	return edges
}

// HotPairs returns the edges sorted descending by MessageCount, truncated to
// the top n entries. Ties are broken by From then To for determinism.
func (a *Analyzer) HotPairs(top int) []Edge {
	a.mu.RLock()
	all := make([]Edge, 0, len(a.edges))
	for _, edge := range a.edges {
		all = append(all, *edge)
	}
	a.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].MessageCount != all[j].MessageCount {
			return all[i].MessageCount > all[j].MessageCount
		}
		if all[i].From != all[j].From {
			return all[i].From < all[j].From
		}
		return all[i].To < all[j].To
	})

	if top >= 0 && top < len(all) {
		all = all[:top]
	}

	return all
}

// ClearOldData removes edges with LastSeen older than maxAge. maxAge == 0
// clears every edge.
func (a *Analyzer) ClearOldData(maxAge time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if maxAge == 0 {
		a.edges = make(map[edgeKey]*Edge)
		return
	}

	now := a.now()
	for key, edge := range a.edges {
		if now.Sub(edge.LastSeen) > maxAge {
			delete(a.edges, key)
		}
	}
}
