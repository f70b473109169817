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
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	natsgo "github.com/nats-io/nats.go"
)

// redeliveryBackoff maps JetStream's delivery count onto the throttle
// backoff schedule. Delivery counts start at one, so the first retry waits
// the base delay. Implements the subscriber's nack-delay hook; the message
// stays in the stream for the whole wait, surviving process crashes.
type redeliveryBackoff struct{}

var _ wmnats.Delay = redeliveryBackoff{}

func (redeliveryBackoff) WaitTime(numDelivered uint64) time.Duration {
	attempt := int(numDelivered) - 1
	if attempt < 0 {
		attempt = 0
	}
	return ThrottleDelay(attempt)
}

// NATSConfig holds settings for the JetStream-backed bus.
type NATSConfig struct {
	// URL is the NATS server URL, e.g. "nats://localhost:4222".
	URL string

	// QueueGroup balances deliveries across worker processes.
	QueueGroup string

	// DurableName names the durable consumer so redeliveries survive restarts.
	DurableName string

	// AckWait is how long JetStream waits for an ack before redelivering.
	AckWait time.Duration

	// MaxReconnects bounds client reconnection attempts.
	MaxReconnects int
}

// DefaultNATSConfig returns settings suitable for a local JetStream server.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           natsgo.DefaultURL,
		QueueGroup:    "corpus-enrichment",
		DurableName:   "corpus-enrichment",
		AckWait:       60 * time.Second,
		MaxReconnects: 10,
	}
}

// NewNATSBus creates a bus backed by NATS JetStream for multi-process
// deployments. Messages are tracked by ID, so a republish of the same
// message UUID is deduplicated by the stream.
func NewNATSBus(cfg NATSConfig, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wmLogger := watermill.NewSlogLogger(logger)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", "err", err)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	publisher, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmnats.NATSMarshaler{},
		JetStream: wmnats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	subscriber, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		AckWaitTimeout:   cfg.AckWait,
		NakDelay:         redeliveryBackoff{},
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmnats.NATSMarshaler{},
		JetStream: wmnats.JetStreamConfig{
			AutoProvision: true,
			AckAsync:      false, // synchronous acks for exactly-once accounting
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.AckWait(cfg.AckWait),
			},
		},
	}, wmLogger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	return NewBus(publisher, subscriber, logger), nil
}
