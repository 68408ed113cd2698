package config

import (
	"os"
	"path/filepath"
)

type Config struct {
	Server   ServerConfig
	Notes    NotesConfig
	State    StateConfig
	Schedule ScheduleConfig
	Rules    RulesConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type NotesConfig struct {
	// Source selects where notes come from: "applenotes" reads the
	// Apple Notes database, "dir" reads a directory of markdown files.
	Source    string
	Folder    string
	Dir       string
	StorePath string
}

type StateConfig struct {
	Path string
}

type ScheduleConfig struct {
	CheckInterval   string
	RefreshInterval string
	GlobalGap       string
	TaskCooldown    string
	// ManualCountsGlobal controls whether a manually triggered reminder
	// arms the global gap the same way a scheduled one does.
	ManualCountsGlobal bool
}

type RulesConfig struct {
	// Path points at a YAML rules file; empty means built-in categories.
	Path string
}

type LogConfig struct {
	Level string
}

func defaultNotesDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Notes")
	}
	return "notes"
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4800,
		},
		Notes: NotesConfig{
			Source: defaultNotesSource(),
			Folder: "Tasks",
			Dir:    defaultNotesDir(),
		},
		State: StateConfig{
			Path: filepath.Join(dataDir, "state.json"),
		},
		Schedule: ScheduleConfig{
			CheckInterval:      "1m",
			RefreshInterval:    "10m",
			GlobalGap:          "45m",
			TaskCooldown:       "4h",
			ManualCountsGlobal: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.nudge.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/nudge/config.json.
//
// Environment variables (NUDGE_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
