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
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"corpus.yaml",
	"corpus.yml",
	"/etc/corpus/corpus.yaml",
	"/etc/corpus/corpus.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CORPUS_CONFIG"

// Load builds the configuration from three layers, lowest priority first:
// built-in defaults, an optional YAML file, and environment variables.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set through
// the environment.
var sliceConfigPaths = []string{
	"extract.excluded_prefixes",
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps CORPUS_* environment variables to config paths. Unmapped
// variables are ignored so unrelated environment noise never reaches config.
var envMappings = map[string]string{
	"corpus_db_path":      "storage.path",
	"corpus_db_in_memory": "storage.in_memory",

	"corpus_queue_transport":   "queue.transport",
	"corpus_nats_url":          "queue.url",
	"corpus_nats_queue_group":  "queue.queue_group",
	"corpus_nats_durable_name": "queue.durable_name",
	"corpus_nats_ack_wait":     "queue.ack_wait",

	"corpus_ai_enrichment_host":  "ai.enrichment_host",
	"corpus_ai_embedding_host":   "ai.embedding_host",
	"corpus_ai_enrichment_model": "ai.enrichment_model",
	"corpus_ai_embedding_model":  "ai.embedding_model",
	"corpus_ai_api_key":          "ai.api_key",
	"corpus_ai_max_keywords":     "ai.max_keywords",
	"corpus_ai_mock":             "ai.mock",

	"corpus_enrich_pool_size":       "enrich.pool_size",
	"corpus_enrich_poll_interval":   "enrich.poll_interval",
	"corpus_enrich_poll_batch_size": "enrich.poll_batch_size",
	"corpus_enrich_rate":            "enrich.rate_per_second",
	"corpus_enrich_burst":           "enrich.rate_burst",

	"corpus_embed_interval":        "embed.interval",
	"corpus_embed_batch_size":      "embed.batch_size",
	"corpus_embed_chunk_size":      "embed.chunk_size",
	"corpus_embed_report_interval": "embed.report_interval",
	"corpus_embed_rate":            "embed.rate_per_second",
	"corpus_embed_burst":           "embed.rate_burst",

	"corpus_extract_excluded_prefixes": "extract.excluded_prefixes",
	"corpus_extract_keep_blank":        "extract.keep_blank",
	"corpus_extract_recheck_context":   "extract.recheck_context",
	"corpus_extract_strict_usage":      "extract.strict_usage_paths",

	"corpus_log_level":  "logging.level",
	"corpus_log_format": "logging.format",
}

func envTransform(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile invokes callback whenever the config file changes. The
// caller reloads and swaps its configuration under its own lock.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
