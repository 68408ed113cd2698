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
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "NUDGE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "notes.source", typ: kString, env: "NUDGE_NOTES_SOURCE",
		apply:   func(cfg *Config, v any) { cfg.Notes.Source = v.(string) },
		extract: func(cfg Config) any { return cfg.Notes.Source },
	},
	{
		key: "notes.folder", typ: kString, env: "NUDGE_NOTES_FOLDER",
		apply:   func(cfg *Config, v any) { cfg.Notes.Folder = v.(string) },
		extract: func(cfg Config) any { return cfg.Notes.Folder },
	},
	{
		key: "notes.dir", typ: kString, env: "NUDGE_NOTES_DIR",
		apply:   func(cfg *Config, v any) { cfg.Notes.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Notes.Dir },
	},
	{
		key: "notes.store_path", typ: kString, env: "NUDGE_NOTES_STORE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Notes.StorePath = v.(string) },
		extract: func(cfg Config) any { return cfg.Notes.StorePath },
	},
	{
		key: "state.path", typ: kString, env: "NUDGE_STATE_PATH",
		apply:   func(cfg *Config, v any) { cfg.State.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.State.Path },
	},
	{
		key: "schedule.check_interval", typ: kString, env: "NUDGE_SCHEDULE_CHECK_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Schedule.CheckInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Schedule.CheckInterval },
	},
	{
		key: "schedule.refresh_interval", typ: kString, env: "NUDGE_SCHEDULE_REFRESH_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Schedule.RefreshInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Schedule.RefreshInterval },
	},
	{
		key: "schedule.global_gap", typ: kString, env: "NUDGE_SCHEDULE_GLOBAL_GAP",
		apply:   func(cfg *Config, v any) { cfg.Schedule.GlobalGap = v.(string) },
		extract: func(cfg Config) any { return cfg.Schedule.GlobalGap },
	},
	{
		key: "schedule.task_cooldown", typ: kString, env: "NUDGE_SCHEDULE_TASK_COOLDOWN",
		apply:   func(cfg *Config, v any) { cfg.Schedule.TaskCooldown = v.(string) },
		extract: func(cfg Config) any { return cfg.Schedule.TaskCooldown },
	},
	{
		key: "schedule.manual_counts_global", typ: kBool, env: "NUDGE_SCHEDULE_MANUAL_COUNTS_GLOBAL",
		apply:   func(cfg *Config, v any) { cfg.Schedule.ManualCountsGlobal = v.(bool) },
		extract: func(cfg Config) any { return cfg.Schedule.ManualCountsGlobal },
	},
	{
		key: "rules.path", typ: kString, env: "NUDGE_RULES_PATH",
		apply:   func(cfg *Config, v any) { cfg.Rules.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Rules.Path },
	},
	{
		key: "log.level", typ: kString, env: "NUDGE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
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
