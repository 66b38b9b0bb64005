package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	btclog "github.com/btcsuite/btclog/v2"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/spf13/cobra"

	"github.com/silocore/vactor/internal/baselib/actor"
	"github.com/silocore/vactor/internal/burst"
	"github.com/silocore/vactor/internal/deadletter"
	"github.com/silocore/vactor/internal/dispatch"
	"github.com/silocore/vactor/internal/factory"
	"github.com/silocore/vactor/internal/health"
	"github.com/silocore/vactor/internal/identity"
	"github.com/silocore/vactor/internal/locality"
	vlog "github.com/silocore/vactor/internal/log"
	"github.com/silocore/vactor/internal/placement"
	"github.com/silocore/vactor/internal/rebalance"
	"github.com/silocore/vactor/internal/ring"
	"github.com/silocore/vactor/internal/storage"
	"github.com/silocore/vactor/internal/storage/memstore"
	"github.com/silocore/vactor/internal/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run this silo, blocking until terminated",
	RunE:  runServe,
}

// echoActor is the demo actor type: it holds a running counter of how many
// messages it has handled, persisted through internal/storage so a restart
// can pick the count back up.
type echoActor struct {
	id    identity.Actor
	store storage.Provider
	stats actor.TellOnlyRef[echoCountEvent]

	mu      sync.Mutex
	version int64
}

// echoCountEvent is what an echoActor reports after handling a message. It
// deliberately says nothing about the stats aggregator's own message shape,
// so echoActor doesn't need to import or know about statsMsg; a MapInputRef
// between the two adapts one into the other.
type echoCountEvent struct {
	actor.BaseMessage
	ActorType string
	Count     int64
}

func (echoCountEvent) MessageType() string { return "echoCountEvent" }

// statsMsg is the stats aggregator's own message type, reported via a
// MapInputRef that transforms echoCountEvent into it.
type statsMsg struct {
	actor.BaseMessage
	ActorType string
	Count     int64
}

func (statsMsg) MessageType() string { return "statsMsg" }

// statsKey identifies the stats aggregator actor in the ActorSystem's
// receptionist, so any actor type in the silo can look it up and report to
// it without a direct reference being threaded through its constructor.
var statsKey = actor.NewServiceKey[statsMsg, any]("stats-aggregator")

// echoMsg is the message echoActor's "Echo" method handles.
type echoMsg struct {
	actor.BaseMessage
	Text string
}

func (echoMsg) MessageType() string { return "echoMsg" }

// echoResponse is the result of handling an echoMsg.
type echoResponse struct {
	Text  string
	Count int64
}

// handleEcho is registered with the dispatch.Registry under
// ("echo", "Echo"). It bumps the actor's persisted counter and echoes the
// text back with the new count.
func handleEcho(ctx context.Context, a *echoActor, msg echoMsg) (echoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.version == 0 {
		if rec, err := a.store.LoadWithVersion(ctx, "echo", a.id.ActorID); err == nil {
			a.version = rec.Version
		}
	}

	next, err := a.store.SaveWithVersion(
		ctx, "echo", a.id.ActorID, []byte(msg.Text), a.version,
	)
	if err != nil {
		return echoResponse{}, fmt.Errorf("persisting echo count: %w", err)
	}
	a.version = next

	if a.stats != nil {
		a.stats.Tell(ctx, echoCountEvent{ActorType: a.id.TypeName, Count: next})
	}

	return echoResponse{Text: msg.Text, Count: next}, nil
}

// dispatchBehavior adapts the dispatch.Registry's reflect-based invocation
// into an actor.ActorBehavior, so factory.Factory can activate echoActor
// instances that route their messages through the same named-method
// registry a wire-level RPC call site would use.
type dispatchBehavior struct {
	registry *dispatch.Registry
	receiver *echoActor
}

func (b *dispatchBehavior) Receive(ctx context.Context, msg echoMsg) fn.Result[echoResponse] {
	out, err := b.registry.Invoke(ctx, "echo", "Echo", b.receiver, msg)
	if err != nil {
		return fn.Err[echoResponse](err)
	}
	return fn.Ok(out.(echoResponse))
}

// deadLetterRef adapts a deadletter.Queue into the actor.ActorRef[Message,
// any] shape internal/factory's Options.DLO expects, so messages drained
// from a stopped mailbox land in the queue instead of being silently
// dropped.
type deadLetterRef struct {
	actorType string
	queue     *deadletter.Queue
}

func (d *deadLetterRef) ID() string { return "dlo/" + d.actorType }

func (d *deadLetterRef) Tell(_ context.Context, msg actor.Message) {
	d.queue.Append(deadletter.Entry{
		ActorType:   d.actorType,
		MessageType: msg.MessageType(),
		Reason:      "undeliverable",
		Timestamp:   time.Now(),
	})
}

func (d *deadLetterRef) Ask(_ context.Context, msg actor.Message) actor.Future[any] {
	d.Tell(context.Background(), msg)
	promise := actor.NewPromise[any]()
	promise.Complete(fn.Err[any](fmt.Errorf("vactorsilo: %s routed to dead letters", msg.MessageType())))
	return promise.Future()
}

// factoryNotifier adapts a factory.Factory so the stream broker can
// auto-activate echoActor instances the moment a stream with an implicit
// subscription receives its first publish.
type factoryNotifier struct {
	fac *factory.Factory[echoMsg, echoResponse]
}

func (n *factoryNotifier) Notify(ctx context.Context, actorType, actorID string, ev stream.Event) error {
	id, err := identity.NewActor(actorType, actorID)
	if err != nil {
		return err
	}

	ref := n.fac.GetOrCreate(id)
	ref.Tell(ctx, echoMsg{Text: string(ev.Payload)})
	return nil
}

// loggingActivityTracker adapts the silo's logger into an
// actor.ActivityTracker, so mailbox enqueue/disposal events are observable
// without a dedicated metrics backend.
type loggingActivityTracker struct {
	logger btclog.Logger
}

func (t *loggingActivityTracker) RecordEnqueued(actorID, actorType string) {
	t.logger.TraceS(context.Background(), "mailbox enqueue",
		"actor_id", actorID, "actor_type", actorType)
}

func (t *loggingActivityTracker) RemoveActor(actorID string) {
	t.logger.DebugS(context.Background(), "mailbox disposed", "actor_id", actorID)
}

// rejectedMessageSink adapts a deadletter.Queue into an actor.RejectSink, so
// messages a mailbox refuses because it's full or closed are recorded with
// their rejection reason rather than just dropped.
type rejectedMessageSink struct {
	queue *deadletter.Queue
}

func (s *rejectedMessageSink) Reject(actorID, actorType string, msg echoMsg, reason string) {
	s.queue.Append(deadletter.Entry{
		ActorType:   actorType,
		ActorID:     actorID,
		MessageType: msg.MessageType(),
		Reason:      reason,
		Timestamp:   time.Now(),
	})
}

// staticHealthHistory is a fixed, in-memory rebalance.HealthHistory for the
// demo silo: a real deployment would sample live CPU/memory/latency and
// append to a rolling window per silo instead.
type staticHealthHistory map[string][]health.SiloHealthScore

func (h staticHealthHistory) Recent(siloID string, n int) []health.SiloHealthScore {
	scores := h[siloID]
	if len(scores) > n {
		return scores[len(scores)-n:]
	}
	return scores
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := vlog.New(os.Stderr, btclog.LevelDebug)
	actor.UseLogger(logger)

	bgCtx := context.Background()
	logger.InfoS(bgCtx, "starting silo", "silo_id", siloID)

	// Dead-letter queue and dispatch registry.
	dlq := deadletter.NewQueue(deadletter.Config{})
	dispatchRegistry := dispatch.NewRegistry()
	if err := dispatchRegistry.RegisterMethod("echo", "Echo", handleEcho); err != nil {
		return fmt.Errorf("registering echo dispatch: %w", err)
	}

	// Actor system: hosts the silo-wide stats aggregator under the
	// receptionist, so it's discoverable by service key rather than wired
	// through factory's per-type identity cache like the echo actors are.
	sys := actor.NewActorSystem()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := sys.Shutdown(shutdownCtx); err != nil {
			logger.WarnS(bgCtx, "actor system shutdown incomplete", err)
		}
	}()

	statsCounts := make(map[string]int64)
	var statsMu sync.Mutex
	statsBehavior := actor.NewFunctionBehavior(
		func(ctx context.Context, msg statsMsg) fn.Result[any] {
			statsMu.Lock()
			statsCounts[msg.ActorType]++
			total := statsCounts[msg.ActorType]
			statsMu.Unlock()

			logger.DebugS(ctx, "stats aggregator observed message",
				"actor_type", msg.ActorType, "actor_total", total,
				"actor_count", msg.Count)
			return fn.Ok[any](nil)
		},
	)
	statsRef := statsKey.Spawn(sys, "stats-aggregator", statsBehavior)
	statsSink := actor.NewMapInputRef[echoCountEvent, statsMsg](
		statsRef,
		func(e echoCountEvent) statsMsg {
			return statsMsg{ActorType: e.ActorType, Count: e.Count}
		},
	)

	// State storage: a memory backend registered under "memory".
	storageRegistry := storage.NewRegistry()
	storageRegistry.RegisterBackend("memory", func() (storage.Provider, error) {
		return memstore.New(), nil
	})
	store, err := storageRegistry.Provider("memory")
	if err != nil {
		return fmt.Errorf("opening storage provider: %w", err)
	}
	defer storageRegistry.CloseAll()

	// Circuit breaker wrapping dispatch invocation, so a misbehaving echo
	// handler trips open instead of stalling every activation of its type.
	cbOpts := burst.DefaultCircuitBreakerOptions("echo")
	cbOpts.Enabled = true
	cb := burst.NewCircuitBreaker[echoResponse](cbOpts)

	// Actor factory: activates echoActor behaviors on demand, bounded by
	// an LRU and supervised with the default (always-restart) policy. The
	// activity tracker and reject sink wire every activation's mailbox
	// into the silo's logger and dead-letter queue respectively.
	fac, err := factory.New[echoMsg, echoResponse](
		func(id identity.Actor) actor.ActorBehavior[echoMsg, echoResponse] {
			receiver := &echoActor{id: id, store: store, stats: statsSink}
			inner := &dispatchBehavior{registry: dispatchRegistry, receiver: receiver}
			return cbBehavior{cb: cb, inner: inner}
		},
		factory.Options[echoMsg, echoResponse]{
			MailboxSize:     64,
			CacheSize:       1000,
			DLO:             &deadLetterRef{actorType: "echo", queue: dlq},
			ActivityTracker: &loggingActivityTracker{logger: logger},
			RejectSink:      &rejectedMessageSink{queue: dlq},
		},
	)
	if err != nil {
		return fmt.Errorf("constructing echo factory: %w", err)
	}
	defer fac.Shutdown()

	// Placement: a consistent-hash ring over the configured peer silos.
	hashRing := ring.NewRing(100)
	for _, peer := range peerSilos {
		hashRing.AddNode(peer)
	}
	placementPolicy := placement.NewLocalPreferred(siloID, hashRing)
	if target, ok := placementPolicy.SelectSilo("demo-actor", "echo", peerSilos); ok {
		logger.InfoS(bgCtx, "placement decision", "actor_id", "demo-actor", "silo", target)
	}

	// Stream broker: publishing to "echo-events" auto-activates an echo
	// actor keyed by the stream's key, without a prior explicit Subscribe.
	broker := stream.NewBroker()
	defer broker.Close()
	if err := broker.RegisterImplicitSubscription(
		"echo-events", "echo", &factoryNotifier{fac: fac},
	); err != nil {
		return fmt.Errorf("registering implicit subscription: %w", err)
	}

	// Rebalance scheduler: periodic locality-graph pruning and health-trend
	// scans that surface hints through the logger.
	analyzer := locality.NewAnalyzer()
	history := staticHealthHistory{}
	rebalanceCfg := rebalance.DefaultConfig()
	if healthScanSpec != "" {
		rebalanceCfg.HealthScanSpec = healthScanSpec
	}
	scheduler, err := rebalance.NewScheduler(
		rebalanceCfg, analyzer, history, health.NewCalculator(),
		func() []string { return peerSilos },
		func(hint rebalance.Hint) {
			logger.WarnS(bgCtx, "rebalance hint", nil,
				"silo_id", hint.SiloID, "reason", hint.Reason)
		},
	)
	if err != nil {
		return fmt.Errorf("constructing rebalance scheduler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Seed the demo stream with one event so the implicit subscription
	// fires at least once on startup.
	demoStream, err := identity.NewStream("echo-events", "demo-actor")
	if err != nil {
		return fmt.Errorf("constructing demo stream identity: %w", err)
	}
	if err := broker.Publish(bgCtx, demoStream, []byte("hello from vactorsilo")); err != nil {
		logger.WarnS(bgCtx, "demo publish failed", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.InfoS(ctx, "received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	<-ctx.Done()
	return nil
}

// cbBehavior wraps an ActorBehavior's Receive call with a circuit breaker,
// tripping open instead of continuing to invoke a handler that has failed
// FailureThreshold times in a row.
type cbBehavior struct {
	cb interface {
		Execute(func() (echoResponse, error)) (echoResponse, error)
	}
	inner actor.ActorBehavior[echoMsg, echoResponse]
}

func (b cbBehavior) Receive(ctx context.Context, msg echoMsg) fn.Result[echoResponse] {
	out, err := b.cb.Execute(func() (echoResponse, error) {
		result := b.inner.Receive(ctx, msg)
		return result.Unpack()
	})
	if err != nil {
		return fn.Err[echoResponse](err)
	}
	return fn.Ok(out)
}
