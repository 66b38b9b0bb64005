package placement

import (
	"testing"

	"github.com/silocore/vactor/internal/locality"
	"github.com/silocore/vactor/internal/ring"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPolicies_EmptyCandidatesReturnNone(t *testing.T) {
	policies := []Policy{
		Random{},
		NewConsistentHash(ring.NewRing(10)),
		NewLocalPreferred("silo-1", ring.NewRing(10)),
		NewStatelessWorker(),
		NewLocalityAware(locality.NewAnalyzer(), MapDirectory{}, DefaultLocalityAwareOptions()),
	}

	for _, p := range policies {
		siloID, ok := p.SelectSilo("actor-1", "Greeter", nil)
		require.False(t, ok)
		require.Empty(t, siloID)
	}
}

func TestConsistentHash_Deterministic(t *testing.T) {
	r := ring.NewRing(50)
	r.AddNode("silo-1")
	r.AddNode("silo-2")
	r.AddNode("silo-3")

	p := NewConsistentHash(r)
	candidates := []string{"silo-1", "silo-2", "silo-3"}

	first, ok := p.SelectSilo("actor-42", "Greeter", candidates)
	require.True(t, ok)

	for i := 0; i < 20; i++ {
		got, ok := p.SelectSilo("actor-42", "Greeter", candidates)
		require.True(t, ok)
		require.Equal(t, first, got)
	}
}

func TestConsistentHash_SkipsNonCandidateOwner(t *testing.T) {
	r := ring.NewRing(50)
	r.AddNode("silo-1")
	r.AddNode("silo-2")

	p := NewConsistentHash(r)

	siloID, ok := p.SelectSilo("actor-7", "Greeter", []string{"silo-2"})
	require.True(t, ok)
	require.Equal(t, "silo-2", siloID)
}

func TestLocalPreferred_PrefersLocal(t *testing.T) {
	r := ring.NewRing(10)
	r.AddNode("silo-1")
	r.AddNode("silo-2")

	p := NewLocalPreferred("silo-2", r)

	siloID, ok := p.SelectSilo("actor-1", "Greeter", []string{"silo-1", "silo-2"})
	require.True(t, ok)
	require.Equal(t, "silo-2", siloID)
}

func TestLocalPreferred_FallsBackWhenAbsent(t *testing.T) {
	r := ring.NewRing(10)
	r.AddNode("silo-1")

	p := NewLocalPreferred("silo-99", r)

	siloID, ok := p.SelectSilo("actor-1", "Greeter", []string{"silo-1"})
	require.True(t, ok)
	require.Equal(t, "silo-1", siloID)
}

func TestStatelessWorker_RoundRobinsEvenly(t *testing.T) {
	p := NewStatelessWorker()
	candidates := []string{"silo-1", "silo-2", "silo-3"}

	counts := make(map[string]int)
	for i := 0; i < 300; i++ {
		siloID, ok := p.SelectSilo("", "", candidates)
		require.True(t, ok)
		counts[siloID]++
	}

	for _, c := range candidates {
		require.Equal(t, 100, counts[c])
	}
}

func TestLocalityAware_PrefersHotPeerSilo(t *testing.T) {
	analyzer := locality.NewAnalyzer()
	for i := 0; i < 5; i++ {
		analyzer.RecordInteraction("actor-1", "actor-2", 10)
	}
	analyzer.RecordInteraction("actor-1", "actor-3", 10)

	dir := MapDirectory{"actor-2": "silo-a", "actor-3": "silo-b"}
	p := NewLocalityAware(analyzer, dir, DefaultLocalityAwareOptions())

	siloID, ok := p.SelectSilo("actor-1", "Greeter", []string{"silo-a", "silo-b"})
	require.True(t, ok)
	require.Equal(t, "silo-a", siloID)
}

func TestLocalityAware_FallsBackWithoutGraphData(t *testing.T) {
	p := NewLocalityAware(locality.NewAnalyzer(), MapDirectory{}, DefaultLocalityAwareOptions())

	siloID, ok := p.SelectSilo("actor-1", "Greeter", []string{"silo-a"})
	require.True(t, ok)
	require.Equal(t, "silo-a", siloID)
}

// TestConsistentHash_AlwaysReturnsCandidate exercises invariant 5 (none iff
// candidates empty) and the ring-ownership containment guarantee: whenever
// candidates is non-empty the returned silo is always drawn from it.
func TestConsistentHash_AlwaysReturnsCandidate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		r := ring.NewRing(20)
		candidates := make([]string, n)
		for i := 0; i < n; i++ {
			id := rapid.StringMatching(`[a-z]{3,8}`).Draw(t, "silo")
			candidates[i] = id
			r.AddNode(id)
		}

		key := rapid.String().Draw(t, "key")
		p := NewConsistentHash(r)

		siloID, ok := p.SelectSilo(key, "Greeter", candidates)
		require.True(t, ok)
		require.Contains(t, candidates, siloID)
	})
}
