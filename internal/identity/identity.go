// Package identity defines the addressing value types used throughout the
// runtime: actor identities and stream identities. Both are small validated
// value types following the teacher's ServiceKey/message-type convention of
// constructors that return an error rather than panicking on bad input.
package identity

import (
	"errors"
	"strings"
)

// ErrInvalidArgument is returned when an identity is constructed from
// empty or whitespace-only components.
var ErrInvalidArgument = errors.New("invalid argument")

// ActorID is a non-empty, trimmed logical identifier for an actor instance
// within its type. Uniqueness is only guaranteed within a TypeName.
type ActorID = string

// Actor is the pair (typeName, actorId) that addresses an activation
// cluster-wide. TypeName is opaque to the runtime but must be stable across
// the cluster; ActorID must be non-empty and non-whitespace.
type Actor struct {
	// TypeName identifies the actor class (matches a dispatcher
	// registration).
	TypeName string

	// ActorID is the logical identity within TypeName.
	ActorID string
}

// NewActor validates and constructs an Actor identity. It fails with
// ErrInvalidArgument if actorID is empty or entirely whitespace, or if
// typeName is empty.
func NewActor(typeName, actorID string) (Actor, error) {
	trimmedID := strings.TrimSpace(actorID)
	if trimmedID == "" {
		return Actor{}, errors.Join(
			ErrInvalidArgument, errors.New("actorID must not be empty or whitespace"),
		)
	}

	if strings.TrimSpace(typeName) == "" {
		return Actor{}, errors.Join(
			ErrInvalidArgument, errors.New("typeName must not be empty"),
		)
	}

	return Actor{TypeName: typeName, ActorID: trimmedID}, nil
}

// String returns a canonical "typeName/actorId" rendering, used as a cache
// key throughout the runtime.
func (a Actor) String() string {
	return a.TypeName + "/" + a.ActorID
}

// Stream is the pair (namespace, key) that addresses a pub/sub channel.
// Equality is componentwise; canonical rendering is "namespace/key".
type Stream struct {
	// Namespace groups related streams (e.g. "orders/processed").
	Namespace string

	// Key identifies one channel within Namespace, and doubles as the
	// actor id used for implicit-subscription auto-activation.
	Key string
}

// NewStream validates and constructs a Stream identity. Namespace and Key
// must both be non-empty and non-whitespace.
func NewStream(namespace, key string) (Stream, error) {
	if strings.TrimSpace(namespace) == "" {
		return Stream{}, errors.Join(
			ErrInvalidArgument, errors.New("namespace must not be empty or whitespace"),
		)
	}

	if strings.TrimSpace(key) == "" {
		return Stream{}, errors.Join(
			ErrInvalidArgument, errors.New("key must not be empty or whitespace"),
		)
	}

	return Stream{Namespace: namespace, Key: key}, nil
}

// String returns the canonical "namespace/key" rendering.
func (s Stream) String() string {
	return s.Namespace + "/" + s.Key
}

// Equal reports whether two Stream identities refer to the same channel.
func (s Stream) Equal(other Stream) bool {
	return s.Namespace == other.Namespace && s.Key == other.Key
}
