package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avlasov/WatchSync/internal/app"
)

func TestSenderRateLimiterWindow(t *testing.T) {
	rl := app.NewSenderRateLimiter(2, 50*time.Millisecond)

	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))

	// Independent budget per sender.
	assert.True(t, rl.Allow("u2"))

	// The window slides: old attempts expire.
	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("u1"))
}
