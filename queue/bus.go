// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is the enrichment job transport. It pairs a Watermill publisher and
// subscriber over one topic and owns redelivery pacing for transports that
// have no scheduling of their own.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	backoff    func(attempt int) time.Duration
	delayNacks bool
	logger     *slog.Logger

	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	retries map[string]int
	closed  bool
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithRedeliveryBackoff overrides the in-process redelivery schedule.
func WithRedeliveryBackoff(backoff func(attempt int) time.Duration) BusOption {
	return func(b *Bus) {
		if backoff != nil {
			b.backoff = backoff
		}
	}
}

// NewBus wraps an existing publisher/subscriber pair. Redelivery scheduling
// is left to the transport; use NewMemoryBus for the in-process transport,
// which has none.
func NewBus(publisher message.Publisher, subscriber message.Subscriber, logger *slog.Logger, opts ...BusOption) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		publisher:  publisher,
		subscriber: subscriber,
		backoff:    ThrottleDelay,
		logger:     logger.With("component", "queue-bus"),
		timers:     make(map[*time.Timer]struct{}),
		retries:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewMemoryBus creates an in-process bus backed by Watermill's gochannel
// transport. Messages are not persisted; suitable for single-process
// deployments and tests.
func NewMemoryBus(logger *slog.Logger, opts ...BusOption) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewSlogLogger(logger),
	)
	bus := NewBus(pubsub, pubsub, logger, opts...)
	bus.delayNacks = true
	return bus
}

// Publish enqueues one job.
func (b *Bus) Publish(ctx context.Context, job *Job) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	msg, err := job.Message()
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	return b.publisher.Publish(EnrichmentTopic, msg)
}

// Redeliver hands a delivery back to the transport for another attempt. The
// JetStream subscriber schedules its own retry delay from the delivery count,
// so the nack is immediate there. The in-process transport resends the moment
// a message is nacked, so the nack itself is held back by the backoff
// schedule instead; deliveries held that way die with the bus on Close, like
// everything else in the in-process queue.
func (b *Bus) Redeliver(msg *message.Message) {
	if !b.delayNacks {
		msg.Nack()
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		msg.Nack()
		return
	}
	// Redelivered messages keep their UUID, so the count survives across
	// attempts and the delay escalates.
	attempt := b.retries[msg.UUID]
	b.retries[msg.UUID] = attempt + 1
	delay := b.backoff(attempt)

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		b.mu.Lock()
		delete(b.timers, timer)
		b.mu.Unlock()
		msg.Nack()
	})
	b.timers[timer] = struct{}{}
	b.mu.Unlock()

	b.logger.Info("delivery scheduled for retry",
		"messageId", msg.UUID,
		"attempt", attempt,
		"delay", delay)
}

// Messages subscribes to the enrichment topic. The channel closes when the
// context is cancelled or the bus is closed.
func (b *Bus) Messages(ctx context.Context) (<-chan *message.Message, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrBusClosed
	}
	return b.subscriber.Subscribe(ctx, EnrichmentTopic)
}

// Close stops pending delayed nacks and closes the transport.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for timer := range b.timers {
		timer.Stop()
	}
	b.timers = nil
	b.retries = nil
	b.mu.Unlock()

	if err := b.publisher.Close(); err != nil {
		return err
	}
	// The gochannel transport is one object serving both roles; closing it
	// twice is safe, and distinct transports need both closed.
	return b.subscriber.Close()
}
