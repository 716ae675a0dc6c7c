package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "VOICELOG_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "VOICELOG_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "server.max_conns", typ: kInt, env: "VOICELOG_SERVER_MAX_CONNS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConns = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConns },
	},
	{
		key: "whisper.binary", typ: kString, env: "VOICELOG_WHISPER_BINARY",
		apply:   func(cfg *Config, v any) { cfg.Whisper.Binary = v.(string) },
		extract: func(cfg Config) any { return cfg.Whisper.Binary },
	},
	{
		key: "whisper.model", typ: kString, env: "VOICELOG_WHISPER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Whisper.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Whisper.Model },
	},
	{
		key: "whisper.device", typ: kString, env: "VOICELOG_WHISPER_DEVICE",
		apply:   func(cfg *Config, v any) { cfg.Whisper.Device = v.(string) },
		extract: func(cfg Config) any { return cfg.Whisper.Device },
	},
	{
		key: "whisper.timeout", typ: kString, env: "VOICELOG_WHISPER_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Whisper.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Whisper.Timeout },
	},
	{
		key: "classifier.enabled", typ: kBool, env: "VOICELOG_CLASSIFIER_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Classifier.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Classifier.Enabled },
	},
	{
		key: "classifier.base_url", typ: kString, env: "VOICELOG_CLASSIFIER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Classifier.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Classifier.BaseURL },
	},
	{
		key: "classifier.model", typ: kString, env: "VOICELOG_CLASSIFIER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Classifier.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Classifier.Model },
	},
	{
		key: "storage.data_dir", typ: kString, env: "VOICELOG_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "mcp.enabled", typ: kBool, env: "VOICELOG_MCP_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.MCP.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.MCP.Enabled },
	},
	{
		key: "log.level", typ: kString, env: "VOICELOG_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
