package actor

// ActivityTracker observes the enqueue and disposal events of a mailbox,
// independent of any specific metrics backend. A silo typically has one
// tracker shared across every mailbox it hosts, so it can answer "is this
// actor still doing work" without each mailbox knowing how that's recorded.
type ActivityTracker interface {
	// RecordEnqueued is called each time a message is successfully
	// enqueued onto actorID's mailbox.
	RecordEnqueued(actorID, actorType string)

	// RemoveActor is called exactly once, when the actor's mailbox is
	// disposed.
	RemoveActor(actorID string)
}

// noopActivityTracker is the default used when a mailbox is constructed
// without an explicit tracker.
type noopActivityTracker struct{}

func (noopActivityTracker) RecordEnqueued(_, _ string) {}
func (noopActivityTracker) RemoveActor(_ string)       {}

// RejectSink receives a message a mailbox refused to enqueue, for example
// because it was already closed or at capacity. It is deliberately narrower
// than the DLO's ActorRef so a mailbox can record *why* a message was
// rejected without needing a full actor reference.
type RejectSink[M Message] interface {
	Reject(actorID, actorType string, msg M, reason string)
}
