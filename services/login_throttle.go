package services

import (
	"math"
	"sync"
	"time"
)

const ThrottleCooldownCapSeconds = 30

type throttleEntry struct {
	failCount     int
	cooldownUntil time.Time
}

// LoginThrottle slows down repeated credential failures per scope (chat).
type LoginThrottle struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]*throttleEntry
}

func NewLoginThrottle() *LoginThrottle {
	return &LoginThrottle{now: time.Now, entries: make(map[string]*throttleEntry)}
}

// WaitSeconds returns how many seconds the scope must wait before trying again (0 if no cooldown).
func (t *LoginThrottle) WaitSeconds(scope string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[scope]
	if !ok {
		return 0
	}
	now := t.now()
	if now.Before(e.cooldownUntil) {
		return int(e.cooldownUntil.Sub(now).Seconds()) + 1 // round up
	}
	return 0
}

// RecordFailed increments the fail count and sets cooldown = now + min(30, 2^failCount) seconds.
func (t *LoginThrottle) RecordFailed(scope string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[scope]
	if !ok {
		e = &throttleEntry{}
		t.entries[scope] = e
	}
	e.failCount++
	e.cooldownUntil = t.now().Add(time.Duration(CooldownSecondsForFailCount(e.failCount)) * time.Second)
}

// RecordSuccess resets the scope.
func (t *LoginThrottle) RecordSuccess(scope string) {
	t.mu.Lock()
	delete(t.entries, scope)
	t.mu.Unlock()
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	if failCount >= 5 {
		return ThrottleCooldownCapSeconds
	}
	s := int(math.Pow(2, float64(failCount)))
	if s > ThrottleCooldownCapSeconds {
		return ThrottleCooldownCapSeconds
	}
	return s
}
