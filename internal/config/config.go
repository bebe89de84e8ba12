package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/tuikan/internal/app"
	"github.com/evanschultz/tuikan/internal/platform"
	toml "github.com/pelletier/go-toml/v2"
)

// Backend selects where board state is stored.
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
)

type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Projects ProjectsConfig `toml:"projects"`
	Logging  LoggingConfig  `toml:"logging"`
	UI       UIConfig       `toml:"ui"`
	Keys     KeyConfig      `toml:"keys"`
}

type StorageConfig struct {
	Backend            Backend `toml:"backend"`
	StatePath          string  `toml:"state_path"`
	LegacyPath         string  `toml:"legacy_path"`
	LegacyProjectsPath string  `toml:"legacy_projects_path"`
	DBPath             string  `toml:"db_path"`
}

type ProjectsConfig struct {
	DefaultName string `toml:"default_name"`
}

type LoggingConfig struct {
	Level   string           `toml:"level"`
	DevFile DevFileLogConfig `toml:"dev_file"`
}

type DevFileLogConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type UIConfig struct {
	RenderMarkdown bool `toml:"render_markdown"`
	NoticeSeconds  int  `toml:"notice_seconds"`
}

// KeyConfig holds single-key overrides for board commands.
type KeyConfig struct {
	AddTask      string `toml:"add_task"`
	AddTag       string `toml:"add_tag"`
	MoveForward  string `toml:"move_forward"`
	MoveBackward string `toml:"move_backward"`
	DeleteTask   string `toml:"delete_task"`
	Projects     string `toml:"projects"`
	Help         string `toml:"help"`
	Yank         string `toml:"yank"`
}

func Default(paths platform.Paths) Config {
	return Config{
		Storage: StorageConfig{
			Backend:            BackendJSON,
			StatePath:          paths.StatePath,
			LegacyPath:         paths.LegacyPath,
			LegacyProjectsPath: paths.LegacyProjectsPath,
			DBPath:             paths.DBPath,
		},
		Projects: ProjectsConfig{
			DefaultName: app.DefaultProjectName,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileLogConfig{
				Enabled: true,
				Dir:     "logs",
			},
		},
		UI: UIConfig{
			RenderMarkdown: true,
			NoticeSeconds:  4,
		},
		Keys: KeyConfig{
			AddTask:      "a",
			AddTag:       "t",
			MoveForward:  "m",
			MoveBackward: "n",
			DeleteTask:   "d",
			Projects:     "ctrl+p",
			Help:         "?",
			Yank:         "y",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	cfg.fillBlankPaths(defaults)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// fillBlankPaths restores platform paths the file set to "".
func (c *Config) fillBlankPaths(defaults Config) {
	if strings.TrimSpace(c.Storage.StatePath) == "" {
		c.Storage.StatePath = defaults.Storage.StatePath
	}
	if strings.TrimSpace(c.Storage.LegacyPath) == "" {
		c.Storage.LegacyPath = defaults.Storage.LegacyPath
	}
	if strings.TrimSpace(c.Storage.LegacyProjectsPath) == "" {
		c.Storage.LegacyProjectsPath = defaults.Storage.LegacyProjectsPath
	}
	if strings.TrimSpace(c.Storage.DBPath) == "" {
		c.Storage.DBPath = defaults.Storage.DBPath
	}
	if strings.TrimSpace(string(c.Storage.Backend)) == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendJSON:
		if strings.TrimSpace(c.Storage.StatePath) == "" {
			return errors.New("storage.state_path is required")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Storage.DBPath) == "" {
			return errors.New("storage.db_path is required")
		}
	default:
		return fmt.Errorf("invalid storage.backend: %q", c.Storage.Backend)
	}

	if strings.TrimSpace(c.Projects.DefaultName) == "" {
		return errors.New("projects.default_name is required")
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.UI.NoticeSeconds < 0 {
		return errors.New("ui.notice_seconds must be >= 0")
	}

	seen := map[string]string{}
	for _, entry := range c.Keys.entries() {
		raw := strings.ToLower(strings.TrimSpace(entry.value))
		if raw == "" {
			continue
		}
		if other, ok := seen[raw]; ok {
			return fmt.Errorf("keys.%s duplicates keys.%s: %q", entry.name, other, entry.value)
		}
		seen[raw] = entry.name
	}
	return nil
}

type keyEntry struct {
	name  string
	value string
}

func (k KeyConfig) entries() []keyEntry {
	return []keyEntry{
		{"add_task", k.AddTask},
		{"add_tag", k.AddTag},
		{"move_forward", k.MoveForward},
		{"move_backward", k.MoveBackward},
		{"delete_task", k.DeleteTask},
		{"projects", k.Projects},
		{"help", k.Help},
		{"yank", k.Yank},
	}
}

// AppKeys converts the overrides for the command dispatcher.
func (k KeyConfig) AppKeys() app.KeyConfig {
	return app.KeyConfig{
		AddTask:      k.AddTask,
		AddTag:       k.AddTag,
		MoveForward:  k.MoveForward,
		MoveBackward: k.MoveBackward,
		DeleteTask:   k.DeleteTask,
		Projects:     k.Projects,
		Help:         k.Help,
		Yank:         k.Yank,
	}
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
