package errcode

import (
	"fmt"
	"sync"
)

// Registry rejects two different errors sharing one code.
type Registry struct {
	mu     sync.RWMutex
	codes  map[int]string
	locked bool
}

var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{codes: make(map[int]string)}
}

// Register records err in the global registry and returns it, so it can
// wrap a package-level var declaration. It panics on a conflicting code.
func Register(err *LayeredError) *LayeredError {
	return globalRegistry.Register(err)
}

func (r *Registry) Register(err *LayeredError) *LayeredError {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		panic(fmt.Sprintf("errcode: registry is locked, cannot register %d", err.Code()))
	}

	key := err.Module() + ":" + err.MsgKey()
	if existing, ok := r.codes[err.Code()]; ok {
		if existing != key {
			panic(fmt.Sprintf("errcode: code %d already registered as %s, cannot register as %s",
				err.Code(), existing, key))
		}
		return err
	}

	r.codes[err.Code()] = key
	return err
}

// Lock forbids further registration. Called once startup finishes.
func (r *Registry) Lock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = true
}

func (r *Registry) IsLocked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked
}

func (r *Registry) GetAll() map[int]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make(map[int]string, len(r.codes))
	for k, v := range r.codes {
		codes[k] = v
	}
	return codes
}

func LockGlobalRegistry() {
	globalRegistry.Lock()
}

func GetAllRegisteredCodes() map[int]string {
	return globalRegistry.GetAll()
}
