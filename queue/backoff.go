package queue

import "time"

// Throttle backoff bounds. The delay doubles per attempt from the base and
// never exceeds the cap, so a persistent throttling episode settles into
// steady retries instead of growing without bound.
const (
	baseThrottleDelay = 30 * time.Second
	maxThrottleDelay  = 240 * time.Second
)

// ThrottleDelay returns the requeue delay for a job on its given attempt.
// Attempt 0 is the first delivery; its retry waits the base delay.
func ThrottleDelay(attempt int) time.Duration {
	delay := baseThrottleDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxThrottleDelay {
			return maxThrottleDelay
		}
	}
	return delay
}
