// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/argus/config.yaml",
	"/etc/argus/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, in that precedence order (env highest), then
// validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}
	if err := processMinuteFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		s, ok := val.(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
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

// minuteConfigPaths accept a bare integer meaning minutes, for compatibility
// with the historical ACCESS_TOKEN_EXPIRE_MINUTES style.
var minuteConfigPaths = []string{
	"security.access_token_expire",
}

func processMinuteFields(k *koanf.Koanf) error {
	for _, path := range minuteConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err == nil {
			continue
		}
		mins, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s: %q is neither a duration nor a minute count", path, s)
		}
		if err := k.Set(path, time.Duration(mins)*time.Minute); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

// envTransform maps flat environment variable names onto koanf paths.
// Unmapped variables return "" and are skipped, so arbitrary environment
// noise cannot leak into the configuration.
func envTransform(key string) string {
	mappings := map[string]string{
		// Bus
		"kafka_bootstrap_servers": "kafka.bootstrap_servers",
		"kafka_topic":             "kafka.topic",
		"kafka_identities_topic":  "kafka.identities_topic",
		"kafka_group_id":          "kafka.group_id",
		"enable_kafka_consumer":   "kafka.enabled",
		"kafka_batch_size":        "kafka.batch_size",
		"kafka_flush_interval":    "kafka.flush_interval",
		"kafka_poll_timeout":      "kafka.poll_timeout",

		// Store
		"database_url":          "database.url",
		"db_max_open_conns":     "database.max_open_conns",
		"db_max_idle_conns":     "database.max_idle_conns",
		"db_conn_max_lifetime":  "database.conn_max_lifetime",

		// HTTP
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"cors_origins": "server.cors_origins",

		// Security
		"secret_key":                  "security.secret_key",
		"jwt_algorithm":               "security.jwt_algorithm",
		"access_token_expire_minutes": "security.access_token_expire",
		"token_url":                   "security.token_url",
		"rate_limit_requests":         "security.rate_limit_reqs",
		"rate_limit_window":           "security.rate_limit_window",

		// ML artifacts
		"ml_model_path":  "ml.model_path",
		"ml_scaler_path": "ml.scaler_path",

		// Profile builder
		"profile_threshold":      "profiles.threshold",
		"profile_lookback_days":  "profiles.lookback_days",
		"profile_build_interval": "profiles.build_interval",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := mappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
