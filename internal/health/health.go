// Package health implements the composite per-silo health score and the
// trend detectors (failure prediction, gradual degradation) used to drive
// cluster rebalancing decisions. Shape follows the teacher's small
// value-type-plus-calculator convention (cf. internal/baselib/actor's
// ActorConfig/NewActor pairing).
package health

import "time"

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SiloHealthScore is a point-in-time health reading for one silo. CPU and
// memory percentages are clamped to [0,100]; latency is clamped to >= 0.
type SiloHealthScore struct {
	CPUPct    float64
	MemPct    float64
	LatencyMs float64
	Timestamp time.Time

	// OverallScore is derived at construction time:
	// 0.3*(100-cpu) + 0.3*(100-mem) + 0.4*max(0, 100-latency/10).
	OverallScore float64
}

// HealthyAt reports whether this score is healthy at threshold t, i.e.
// OverallScore >= t.
func (s SiloHealthScore) HealthyAt(threshold float64) bool {
	return s.OverallScore >= threshold
}

// HealthScoreCalculator derives SiloHealthScore readings and detects trends
// across a time-ordered sequence of them.
type HealthScoreCalculator struct {
	// Now returns the current time; overridable for deterministic tests.
	Now func() time.Time

	// CriticalThreshold is the overall-score ceiling below which a
	// monotonically declining sequence is considered a failure
	// prediction. Defaults to 30 (spec §4.6) when zero.
	CriticalThreshold float64

	// DegradationSlope is the per-step linear-regression slope (in
	// overall-score points) at or below which a sequence is considered
	// gradually degrading. Defaults to -3 (spec §4.6) when zero.
	DegradationSlope float64
}

// NewCalculator returns a HealthScoreCalculator configured with the
// defaults from spec §4.6.
func NewCalculator() *HealthScoreCalculator {
	return &HealthScoreCalculator{
		Now:               time.Now,
		CriticalThreshold: 30,
		DegradationSlope:  -3,
	}
}

// Calculate clamps the raw inputs and computes a SiloHealthScore timestamped
// with c.Now().
func (c *HealthScoreCalculator) Calculate(cpuPct, memPct, latencyMs float64) SiloHealthScore {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	cpu := clamp(cpuPct, 0, 100)
	mem := clamp(memPct, 0, 100)
	lat := latencyMs
	if lat < 0 {
		lat = 0
	}

	overall := 0.3*(100-cpu) + 0.3*(100-mem) + 0.4*clamp(100-lat/10, 0, 100)

	return SiloHealthScore{
		CPUPct:       cpu,
		MemPct:       mem,
		LatencyMs:    lat,
		Timestamp:    now(),
		OverallScore: clamp(overall, 0, 100),
	}
}

// threshold returns c's configured critical threshold, defaulting to 30.
func (c *HealthScoreCalculator) threshold() float64 {
	if c.CriticalThreshold == 0 {
		return 30
	}
	return c.CriticalThreshold
}

// slope returns c's configured degradation slope, defaulting to -3.
func (c *HealthScoreCalculator) slope() float64 {
	if c.DegradationSlope == 0 {
		return -3
	}
	return c.DegradationSlope
}

// PredictFailure reports true iff scores (ordered by time) has at least 3
// samples, each consecutive pair is non-increasing, and the final score is
// at or below the critical threshold.
func (c *HealthScoreCalculator) PredictFailure(scores []SiloHealthScore) bool {
	if len(scores) < 3 {
		return false
	}

	for i := 1; i < len(scores); i++ {
		if scores[i].OverallScore > scores[i-1].OverallScore {
			return false
		}
	}

	return scores[len(scores)-1].OverallScore <= c.threshold()
}

// DetectGradualDegradation reports true iff scores has at least 3 samples
// and the linear-regression slope of OverallScore vs. sample index is at or
// below c's configured DegradationSlope (points per step).
func (c *HealthScoreCalculator) DetectGradualDegradation(scores []SiloHealthScore) bool {
	if len(scores) < 3 {
		return false
	}

	return linearRegressionSlope(scores) <= c.slope()
}

// linearRegressionSlope computes the ordinary-least-squares slope of
// OverallScore against sample index (0..n-1).
func linearRegressionSlope(scores []SiloHealthScore) float64 {
	n := float64(len(scores))

	var sumX, sumY, sumXY, sumXX float64
	for i, s := range scores {
		x := float64(i)
		y := s.OverallScore
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}

	return (n*sumXY - sumX*sumY) / denom
}
