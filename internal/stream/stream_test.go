package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/silocore/vactor/internal/identity"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []Event
}

func (n *recordingNotifier) Notify(_ context.Context, _, _ string, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, ev)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func TestRegisterImplicitSubscription_RejectsNilNotifier(t *testing.T) {
	b := NewBroker()
	t.Cleanup(func() { _ = b.Close() })

	err := b.RegisterImplicitSubscription("orders", "OrderWatcher", nil)
	require.ErrorIs(t, err, ErrNilSubscriber)
}

// TestPublish_AutoActivatesImplicitSubscriberWithin100ms exercises the
// spec's stream auto-activation scenario: publishing to a namespace with a
// registered implicit subscription activates the subscriber promptly.
func TestPublish_AutoActivatesImplicitSubscriberWithin100ms(t *testing.T) {
	b := NewBroker()
	t.Cleanup(func() { _ = b.Close() })

	notifier := &recordingNotifier{}
	require.NoError(t, b.RegisterImplicitSubscription("orders", "OrderWatcher", notifier))

	s, err := identity.NewStream("orders", "order-42")
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, b.Publish(context.Background(), s, []byte("created")))
	require.Less(t, time.Since(start), 100*time.Millisecond)

	require.Equal(t, 1, notifier.count())
}

func TestPublish_NoImplicitSubscriptionIsANoop(t *testing.T) {
	b := NewBroker()
	t.Cleanup(func() { _ = b.Close() })

	s, err := identity.NewStream("orders", "order-1")
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), s, []byte("x")))
}

func TestSubscribe_ReceivesPublishedMessage(t *testing.T) {
	b := NewBroker()
	t.Cleanup(func() { _ = b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "orders")
	require.NoError(t, err)

	s, err := identity.NewStream("orders", "order-1")
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, s, []byte("payload")))

	select {
	case msg := <-ch:
		require.Equal(t, []byte("payload"), msg.Payload)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}
