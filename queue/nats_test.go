package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// JetStream counts deliveries from one; the schedule starts at the base
// delay and survives an out-of-range count.
func TestRedeliveryBackoffFollowsThrottleSchedule(t *testing.T) {
	backoff := redeliveryBackoff{}

	assert.Equal(t, 30*time.Second, backoff.WaitTime(0))
	assert.Equal(t, 30*time.Second, backoff.WaitTime(1))
	assert.Equal(t, 60*time.Second, backoff.WaitTime(2))
	assert.Equal(t, 120*time.Second, backoff.WaitTime(3))
	assert.Equal(t, 240*time.Second, backoff.WaitTime(4))
	assert.Equal(t, 240*time.Second, backoff.WaitTime(100))
}
