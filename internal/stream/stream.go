// Package stream implements the namespaced pub/sub broker actors use to
// exchange events outside of direct method dispatch, including implicit
// subscriptions that auto-activate a subscribing actor type the moment a
// matching stream receives its first publish. Transport rides on
// watermill's in-memory GoChannel pub/sub, following the
// publisher/EventDispatcher split used by the pack's pubsub adapter
// (webitel-im-delivery-service's internal/adapter/pubsub).
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/silocore/vactor/internal/identity"
)

// ErrNilSubscriber indicates RegisterImplicitSubscription was called with a
// nil notifier.
var ErrNilSubscriber = errors.New("stream: implicit subscriber must not be nil")

// Event is one published stream message.
type Event struct {
	Stream  identity.Stream
	Payload []byte
}

// ActivationNotifier is consulted for every event published to a namespace
// with an implicit subscription, so the subscribing actor type is activated
// on demand at the first one instead of requiring an explicit prior
// Subscribe call. Implemented by internal/factory.Factory adapters.
type ActivationNotifier interface {
	// Notify delivers ev to the actor identified by actorType/actorID,
	// activating it first if necessary.
	Notify(ctx context.Context, actorType, actorID string, ev Event) error
}

// Broker is a namespaced publish/subscribe hub. Each namespace maps to one
// watermill topic; Subscribe callers receive every event published to that
// namespace regardless of key, while implicit subscriptions are scoped to
// the (namespace) -> actorType binding registered via
// RegisterImplicitSubscription.
type Broker struct {
	pubsub *gochannel.GoChannel

	mu                    sync.RWMutex
	implicitSubscriptions map[string]implicitSub
}

type implicitSub struct {
	actorType string
	notifier  ActivationNotifier
}

// NewBroker constructs a Broker backed by an in-process GoChannel pub/sub.
func NewBroker() *Broker {
	return &Broker{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			watermill.NopLogger{},
		),
		implicitSubscriptions: make(map[string]implicitSub),
	}
}

// RegisterImplicitSubscription binds namespace so that every event
// published to it is also delivered to an activation of actorType, keyed by
// the event's stream key as the actor ID, via notifier. Registering twice
// for the same namespace replaces the prior binding.
func (b *Broker) RegisterImplicitSubscription(namespace, actorType string, notifier ActivationNotifier) error {
	if notifier == nil {
		return ErrNilSubscriber
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.implicitSubscriptions[namespace] = implicitSub{actorType: actorType, notifier: notifier}
	return nil
}

// Publish sends payload to s, fanning it out to explicit Subscribe callers
// and notifying any implicit subscriber registered for s.Namespace.
func (b *Broker) Publish(ctx context.Context, s identity.Stream, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("stream_key", s.Key)
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(s.Namespace, msg); err != nil {
		return fmt.Errorf("stream: publish to %s: %w", s.Namespace, err)
	}

	return b.notifyImplicitSubscribers(ctx, s, payload)
}

// notifyImplicitSubscribers activates (if needed) and delivers ev to the
// actor type implicitly subscribed to s.Namespace, if any.
func (b *Broker) notifyImplicitSubscribers(ctx context.Context, s identity.Stream, payload []byte) error {
	b.mu.RLock()
	sub, ok := b.implicitSubscriptions[s.Namespace]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	return sub.notifier.Notify(ctx, sub.actorType, s.Key, Event{Stream: s, Payload: payload})
}

// Subscribe returns a channel of raw watermill messages for namespace,
// for consumers that want every event regardless of implicit-subscription
// wiring.
func (b *Broker) Subscribe(ctx context.Context, namespace string) (<-chan *message.Message, error) {
	ch, err := b.pubsub.Subscribe(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("stream: subscribe to %s: %w", namespace, err)
	}
	return ch, nil
}

// Close releases the broker's transport resources.
func (b *Broker) Close() error {
	return b.pubsub.Close()
}
