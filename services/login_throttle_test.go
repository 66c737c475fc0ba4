package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownSecondsForFailCount(t *testing.T) {
	tests := []struct {
		failCount int
		want      int
	}{
		{0, 1},   // 2^0=1
		{1, 2},   // 2^1=2
		{2, 4},   // 2^2=4
		{3, 8},   // 2^3=8
		{4, 16},  // 2^4=16
		{5, 30},  // 2^5=32 -> cap 30
		{6, 30},  // 2^6=64 -> cap 30
		{10, 30}, // cap 30
		{100, 30},
	}
	for _, tt := range tests {
		got := CooldownSecondsForFailCount(tt.failCount)
		if got != tt.want {
			t.Errorf("CooldownSecondsForFailCount(%d) = %d, want %d", tt.failCount, got, tt.want)
		}
	}
}

func TestLoginThrottle(t *testing.T) {
	now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	th := NewLoginThrottle()
	th.now = func() time.Time { return now }

	// 1) Unknown scope has no cooldown
	assert.Equal(t, 0, th.WaitSeconds("chat-1"))

	// 2) Failed attempt sets a 2s cooldown
	th.RecordFailed("chat-1")
	assert.Equal(t, 3, th.WaitSeconds("chat-1"))
	assert.Equal(t, 0, th.WaitSeconds("chat-2"))

	// 3) Cooldown expires
	now = now.Add(2 * time.Second)
	assert.Equal(t, 0, th.WaitSeconds("chat-1"))

	// 4) Cooldown caps at 30s
	for i := 0; i < 8; i++ {
		th.RecordFailed("chat-1")
	}
	assert.LessOrEqual(t, th.WaitSeconds("chat-1"), 31)
	assert.Greater(t, th.WaitSeconds("chat-1"), 0)

	// 5) Success resets
	th.RecordSuccess("chat-1")
	assert.Equal(t, 0, th.WaitSeconds("chat-1"))
}
