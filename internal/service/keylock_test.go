package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLock_SerializaPorClave(t *testing.T) {
	k := newKeyLock()
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("2025-03-01")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, k.locks)
}

func TestKeyLock_ClavesIndependientes(t *testing.T) {
	k := newKeyLock()
	unlockA := k.Lock("a")
	// a different key must not wait on "a"
	unlockB := k.Lock("b")
	unlockB()
	unlockA()
	assert.Empty(t, k.locks)
}
