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

package config

import (
	"fmt"
	"time"
)

// Config is the service configuration.
type Config struct {
	Storage StorageConfig `koanf:"storage"`
	Queue   QueueConfig   `koanf:"queue"`
	AI      AIConfig      `koanf:"ai"`
	Enrich  EnrichConfig  `koanf:"enrich"`
	Embed   EmbedConfig   `koanf:"embed"`
	Extract ExtractConfig `koanf:"extract"`
	Logging LoggingConfig `koanf:"logging"`
}

// StorageConfig configures the BadgerDB store.
type StorageConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// QueueConfig configures the job transport.
type QueueConfig struct {
	// Transport is "memory" or "nats".
	Transport   string        `koanf:"transport"`
	URL         string        `koanf:"url"`
	QueueGroup  string        `koanf:"queue_group"`
	DurableName string        `koanf:"durable_name"`
	AckWait     time.Duration `koanf:"ack_wait"`
}

// AIConfig configures the enrichment and embedding providers.
type AIConfig struct {
	EnrichmentHost  string `koanf:"enrichment_host"`
	EmbeddingHost   string `koanf:"embedding_host"`
	EnrichmentModel string `koanf:"enrichment_model"`
	EmbeddingModel  string `koanf:"embedding_model"`
	APIKey          string `koanf:"api_key"`
	MaxKeywords     int    `koanf:"max_keywords"`
	// Mock replaces the providers with deterministic in-process doubles.
	Mock bool `koanf:"mock"`
}

// EnrichConfig configures the enrichment orchestrator.
type EnrichConfig struct {
	PoolSize      int           `koanf:"pool_size"`
	PollInterval  time.Duration `koanf:"poll_interval"`
	PollBatchSize int           `koanf:"poll_batch_size"`
	// RatePerSecond gates outbound enrichment calls across all workers.
	RatePerSecond float64 `koanf:"rate_per_second"`
	RateBurst     int     `koanf:"rate_burst"`
}

// EmbedConfig configures the embedding backfill.
type EmbedConfig struct {
	Interval       time.Duration `koanf:"interval"`
	BatchSize      int           `koanf:"batch_size"`
	ChunkSize      int           `koanf:"chunk_size"`
	ReportInterval int           `koanf:"report_interval"`
	RatePerSecond  float64       `koanf:"rate_per_second"`
	RateBurst      int           `koanf:"rate_burst"`
}

// ExtractConfig configures extraction and change detection.
type ExtractConfig struct {
	ExcludedPrefixes []string `koanf:"excluded_prefixes"`
	KeepBlank        bool     `koanf:"keep_blank"`
	RecheckContext   bool     `koanf:"recheck_context"`
	StrictUsagePaths bool     `koanf:"strict_usage_paths"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `koanf:"level"`
	// Format is "json" or "text".
	Format string `koanf:"format"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:     "/data/corpus",
			InMemory: false,
		},
		Queue: QueueConfig{
			Transport:   "memory",
			URL:         "nats://127.0.0.1:4222",
			QueueGroup:  "corpus-enrichment",
			DurableName: "corpus-enrichment",
			AckWait:     60 * time.Second,
		},
		AI: AIConfig{
			EnrichmentHost:  "http://localhost:11434",
			EmbeddingHost:   "http://localhost:11434",
			EnrichmentModel: "qwen2.5:3b",
			EmbeddingModel:  "embeddinggemma",
			MaxKeywords:     10,
		},
		Enrich: EnrichConfig{
			PoolSize:      0, // 0 = runtime-derived
			PollInterval:  5 * time.Second,
			PollBatchSize: 10,
			RatePerSecond: 2,
			RateBurst:     2,
		},
		Embed: EmbedConfig{
			Interval:       10 * time.Second,
			BatchSize:      50,
			ChunkSize:      2000,
			ReportInterval: 10,
			RatePerSecond:  5,
			RateBurst:      5,
		},
		Extract: ExtractConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	switch c.Queue.Transport {
	case "memory", "nats":
	default:
		return fmt.Errorf("queue.transport must be memory or nats, got %q", c.Queue.Transport)
	}
	if c.Queue.Transport == "nats" && c.Queue.URL == "" {
		return fmt.Errorf("queue.url is required for the nats transport")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if c.Enrich.RatePerSecond <= 0 {
		return fmt.Errorf("enrich.rate_per_second must be positive")
	}
	if c.Embed.RatePerSecond <= 0 {
		return fmt.Errorf("embed.rate_per_second must be positive")
	}
	return nil
}
