// Package rebalance schedules the periodic cluster maintenance jobs that
// keep the locality graph fresh and surface rebalance hints derived from
// silo health trends, driven by robfig/cron/v3 the same way the pack uses
// it for scheduled background jobs.
package rebalance

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/silocore/vactor/internal/health"
	"github.com/silocore/vactor/internal/locality"
)

// Hint describes a recommended rebalance action for one silo, derived from
// its recent health trend.
type Hint struct {
	SiloID string
	Reason string
}

// HintSink receives rebalance hints as they're produced.
type HintSink func(Hint)

// HealthHistory supplies the recent health-score window for a silo, as
// maintained by whatever component samples health.HealthScoreCalculator
// over time.
type HealthHistory interface {
	// Recent returns up to n of the most recent SiloHealthScore samples
	// for siloID, oldest first.
	Recent(siloID string, n int) []health.SiloHealthScore
}

// Scheduler owns a cron instance driving two recurring jobs: clearing stale
// locality data, and scanning silo health trends for rebalance hints.
type Scheduler struct {
	cron     *cron.Cron
	analyzer *locality.Analyzer
	history  HealthHistory
	calc     *health.HealthScoreCalculator
	sink     HintSink
	siloIDs  func() []string
}

// Config configures a Scheduler's job cadence.
type Config struct {
	// ClearOldDataSpec is the cron spec for the locality-graph pruning
	// job (standard 5-field cron syntax). Defaults to hourly.
	ClearOldDataSpec string
	// HealthScanSpec is the cron spec for the health-trend scan.
	// Defaults to every 5 minutes.
	HealthScanSpec string
}

// DefaultConfig returns the default cadence: locality pruning hourly,
// health scanning every 5 minutes.
func DefaultConfig() Config {
	return Config{
		ClearOldDataSpec: "0 * * * *",
		HealthScanSpec:   "*/5 * * * *",
	}
}

// NewScheduler constructs a Scheduler. siloIDs returns the current set of
// silo IDs to scan for rebalance hints.
func NewScheduler(
	cfg Config,
	analyzer *locality.Analyzer,
	history HealthHistory,
	calc *health.HealthScoreCalculator,
	siloIDs func() []string,
	sink HintSink,
) (*Scheduler, error) {
	if cfg.ClearOldDataSpec == "" {
		cfg = DefaultConfig()
	}

	s := &Scheduler{
		cron:     cron.New(),
		analyzer: analyzer,
		history:  history,
		calc:     calc,
		sink:     sink,
		siloIDs:  siloIDs,
	}

	if _, err := s.cron.AddFunc(cfg.ClearOldDataSpec, s.clearOldLocalityData); err != nil {
		return nil, fmt.Errorf("rebalance: scheduling locality prune: %w", err)
	}
	if _, err := s.cron.AddFunc(cfg.HealthScanSpec, s.scanHealthTrends); err != nil {
		return nil, fmt.Errorf("rebalance: scheduling health scan: %w", err)
	}

	return s, nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) clearOldLocalityData() {
	s.analyzer.ClearOldData(24 * time.Hour)
}

func (s *Scheduler) scanHealthTrends() {
	if s.history == nil || s.siloIDs == nil {
		return
	}

	for _, siloID := range s.siloIDs() {
		scores := s.history.Recent(siloID, 10)
		if len(scores) == 0 {
			continue
		}

		hint, ok := s.evaluate(siloID, scores)
		if ok && s.sink != nil {
			s.sink(hint)
		}
	}
}

func (s *Scheduler) evaluate(siloID string, scores []health.SiloHealthScore) (Hint, bool) {
	switch {
	case s.calc.PredictFailure(scores):
		return Hint{SiloID: siloID, Reason: "predicted failure: move activations off this silo"}, true
	case s.calc.DetectGradualDegradation(scores):
		return Hint{SiloID: siloID, Reason: "gradual degradation: prefer other silos for new placements"}, true
	default:
		return Hint{}, false
	}
}
