// Package dispatch implements the process-wide method-dispatch registry:
// actor types register named methods once, and callers invoke them by
// (typeName, methodName) without holding a reference to the method value
// itself. This mirrors how internal/baselib/actor's Receptionist indexes
// service registrations by name behind a single mutex-guarded map, applied
// here to reflect-invoked methods instead of actor references.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrUnknownType indicates Invoke was called for a typeName with no
// registered dispatcher.
var ErrUnknownType = errors.New("dispatch: unknown actor type")

// ErrUnknownMethod indicates Invoke was called for a methodName not
// registered on the resolved type's dispatcher.
var ErrUnknownMethod = errors.New("dispatch: unknown method")

// ErrArgTypeMismatch indicates the payload passed to Invoke does not match
// the argument type the method was registered with.
var ErrArgTypeMismatch = errors.New("dispatch: argument type mismatch")

// ErrReceiverTypeMismatch indicates the receiver passed to Invoke does not
// match the receiver type the method was registered with.
var ErrReceiverTypeMismatch = errors.New("dispatch: receiver type mismatch")

// ErrDuplicateRegistration indicates RegisterMethod was called for a
// (typeName, methodName) pair that is already registered.
var ErrDuplicateRegistration = errors.New("dispatch: duplicate method registration")

var (
	ctxType = reflect.TypeFor[context.Context]()
	errType = reflect.TypeFor[error]()
)

// method holds one registered method's reflected signature and callable
// value: func(context.Context, Receiver, Arg) (Result, error).
type method struct {
	fn          reflect.Value
	receiverTyp reflect.Type
	argTyp      reflect.Type
}

// Dispatcher holds the registered methods for a single actor type.
type Dispatcher struct {
	mu      sync.RWMutex
	methods map[string]method
}

func newDispatcher() *Dispatcher {
	return &Dispatcher{methods: make(map[string]method)}
}

// register validates fn's signature and stores it under methodName. fn must
// have the shape func(context.Context, Receiver, Arg) (Result, error) for
// some concrete Receiver, Arg and Result types.
func (d *Dispatcher) register(methodName string, fn any) error {
	fnVal := reflect.ValueOf(fn)
	fnTyp := fnVal.Type()

	if fnTyp.Kind() != reflect.Func {
		return fmt.Errorf("dispatch: %s: handler must be a function, got %s", methodName, fnTyp.Kind())
	}
	if fnTyp.NumIn() != 3 || fnTyp.NumOut() != 2 {
		return fmt.Errorf("dispatch: %s: handler must be func(context.Context, Receiver, Arg) (Result, error)", methodName)
	}
	if !fnTyp.In(0).Implements(ctxType) {
		return fmt.Errorf("dispatch: %s: first parameter must be context.Context", methodName)
	}
	if !fnTyp.Out(1).Implements(errType) {
		return fmt.Errorf("dispatch: %s: second return value must be error", methodName)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.methods[methodName]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistration, methodName)
	}

	d.methods[methodName] = method{
		fn:          fnVal,
		receiverTyp: fnTyp.In(1),
		argTyp:      fnTyp.In(2),
	}
	return nil
}

// invoke calls the registered method by name with receiver and arg, both
// passed as dynamically typed values that must match the types the method
// was registered with.
func (d *Dispatcher) invoke(ctx context.Context, methodName string, receiver, arg any) (any, error) {
	d.mu.RLock()
	m, ok := d.methods[methodName]
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, methodName)
	}

	receiverVal := reflect.ValueOf(receiver)
	if !receiverVal.IsValid() || receiverVal.Type() != m.receiverTyp {
		return nil, fmt.Errorf("%w: method %s expects receiver %s, got %T",
			ErrReceiverTypeMismatch, methodName, m.receiverTyp, receiver)
	}

	argVal := reflect.ValueOf(arg)
	if !argVal.IsValid() {
		argVal = reflect.Zero(m.argTyp)
	}
	if argVal.Type() != m.argTyp {
		return nil, fmt.Errorf("%w: method %s expects argument %s, got %T",
			ErrArgTypeMismatch, methodName, m.argTyp, arg)
	}

	out := m.fn.Call([]reflect.Value{reflect.ValueOf(ctx), receiverVal, argVal})

	var err error
	if e, ok := out[1].Interface().(error); ok {
		err = e
	}

	return out[0].Interface(), err
}

// Registry is the process-wide typeName -> Dispatcher index.
type Registry struct {
	mu          sync.RWMutex
	dispatchers map[string]*Dispatcher
}

// NewRegistry constructs an empty dispatch Registry.
func NewRegistry() *Registry {
	return &Registry{dispatchers: make(map[string]*Dispatcher)}
}

// RegisterMethod registers fn as typeName's handler for methodName. fn must
// have the shape func(context.Context, Receiver, Arg) (Result, error).
// Registering the same (typeName, methodName) twice fails with
// ErrDuplicateRegistration and keeps the first registration.
func (r *Registry) RegisterMethod(typeName, methodName string, fn any) error {
	r.mu.Lock()
	d, ok := r.dispatchers[typeName]
	if !ok {
		d = newDispatcher()
		r.dispatchers[typeName] = d
	}
	r.mu.Unlock()

	return d.register(methodName, fn)
}

// Invoke dispatches (methodName) on typeName's registered handler, passing
// receiver and arg. It returns ErrUnknownType if typeName has no
// registrations, ErrUnknownMethod if methodName isn't registered on it, and
// ErrReceiverTypeMismatch / ErrArgTypeMismatch if the dynamic types of
// receiver/arg don't match the registered signature.
func (r *Registry) Invoke(ctx context.Context, typeName, methodName string, receiver, arg any) (any, error) {
	r.mu.RLock()
	d, ok := r.dispatchers[typeName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}

	return d.invoke(ctx, methodName, receiver, arg)
}

// HasMethod reports whether typeName has methodName registered.
func (r *Registry) HasMethod(typeName, methodName string) bool {
	r.mu.RLock()
	d, ok := r.dispatchers[typeName]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok = d.methods[methodName]
	return ok
}

// Methods returns the names registered for typeName, in no particular order.
func (r *Registry) Methods(typeName string) []string {
	r.mu.RLock()
	d, ok := r.dispatchers[typeName]
	r.mu.RUnlock()

	if !ok {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	return names
}
