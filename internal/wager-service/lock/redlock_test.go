package lock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelayStaysInsideJitterWindow(t *testing.T) {
	c := &Client{cfg: Config{
		RetryDelay:  100 * time.Millisecond,
		RetryJitter: 50 * time.Millisecond,
	}}

	for i := 0; i < 500; i++ {
		d := c.retryDelay(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.Less(t, d, 150*time.Millisecond)
	}
}

func TestRetryDelayWithoutJitterIsFixed(t *testing.T) {
	c := &Client{cfg: Config{RetryDelay: 100 * time.Millisecond}}

	for i := 0; i < 10; i++ {
		assert.Equal(t, 100*time.Millisecond, c.retryDelay(i))
	}
}
