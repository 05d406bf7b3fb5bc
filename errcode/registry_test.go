package errcode

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	err := New(30, 1, "limiter", "error.limiter.exceeded", "Too many requests")

	assert.Same(t, err, r.Register(err))
	assert.Equal(t, "limiter:error.limiter.exceeded", r.GetAll()[300001])
}

func TestRegistry_Idempotent(t *testing.T) {
	r := NewRegistry()
	r.Register(New(30, 1, "limiter", "k", "m"))
	assert.NotPanics(t, func() { r.Register(New(30, 1, "limiter", "k", "other message")) })
	assert.Len(t, r.GetAll(), 1)
}

func TestRegistry_Conflict(t *testing.T) {
	r := NewRegistry()
	r.Register(New(30, 1, "limiter", "k1", "m"))
	assert.Panics(t, func() { r.Register(New(30, 1, "limiter", "k2", "m")) })
}

func TestRegistry_Lock(t *testing.T) {
	r := NewRegistry()
	r.Lock()
	assert.True(t, r.IsLocked())
	assert.Panics(t, func() { r.Register(New(1, 9999, "common", "k", "m")) })
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Register(New(99, n, "load", "k", "m"))
			_ = r.GetAll()
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.GetAll(), 50)
}

func TestGlobalRegistry_CommonCodes(t *testing.T) {
	codes := GetAllRegisteredCodes()
	assert.Equal(t, "common:error.common.validation_failed", codes[11010])
	assert.Equal(t, "common:error.common.internal", codes[11000])
}
