package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"memhub/app/util/errcode"
)

const FileName = "memhub.yaml"

// Backend kinds accepted in the memory.backend setting.
const (
	BackendGraph  = "graph"
	BackendAtomic = "atomic"
)

// GroupAuto makes the scope identifier derive from git metadata or the
// directory name instead of being taken verbatim.
const GroupAuto = "auto"

// Markers that identify a project root when walking up from the working
// directory in search of a settings file.
var rootMarkers = []string{".git", "go.mod", "package.json", "pyproject.toml"}

type Config struct {
	Log    Log    `yaml:"log"`
	Memory Memory `yaml:"memory"`
}

type Log struct {
	// Log level: debug, info, warn or error
	Level string `yaml:"level" example:"info" validate:"omitempty,oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

type Memory struct {
	// Which remote store to use
	Backend string `yaml:"backend" example:"graph" validate:"required,oneof=graph atomic"`
	// Scope identifier, "auto" derives it from git metadata
	GroupID string `yaml:"group_id" example:"auto" validate:"required"`

	Graph  GraphStore  `yaml:"graph"`
	Atomic AtomicStore `yaml:"atomic"`
}

type GraphStore struct {
	// SSE endpoint of the graph MCP server
	URL string `yaml:"url" example:"http://localhost:8000/sse"`
	// Command to launch the server over stdio instead of SSE
	Command string   `yaml:"command" example:"uvx"`
	Args    []string `yaml:"args"`
}

type AtomicStore struct {
	// SSE endpoint of the atomic-record MCP server
	URL string `yaml:"url"`
	// Command to launch the server over stdio instead of SSE
	Command string   `yaml:"command" example:"docker"`
	Args    []string `yaml:"args"`
}

// Load resolves the settings file for dir and parses it. Search order:
// dir itself, the nearest ancestor containing a project-root marker, the
// user's home directory, built-in defaults. A missing file moves resolution
// to the next candidate; a file that exists but fails to parse or validate
// is fatal.
func Load(dir string) (*Config, error) {
	var result Config

	path, found, err := findFile(dir)
	if err != nil {
		return nil, err
	}

	if found {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.Code(errcode.Configuration).Errorf("failed to read config file %s: %w", path, err)
		}

		if err = yaml.Unmarshal(data, &result); err != nil {
			return nil, oops.Code(errcode.Configuration).Errorf("failed to parse YAML config %s: %w", path, err)
		}
	}

	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Code(errcode.Configuration).Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = BackendGraph
	}
	if cfg.Memory.GroupID == "" {
		cfg.Memory.GroupID = GroupAuto
	}
	if cfg.Memory.Graph.URL == "" && cfg.Memory.Graph.Command == "" {
		cfg.Memory.Graph.URL = "http://localhost:8000/sse"
	}
}

func findFile(dir string) (string, bool, error) {
	candidates := []string{filepath.Join(dir, FileName)}

	if root, ok := findProjectRoot(dir); ok && root != dir {
		candidates = append(candidates, filepath.Join(root, FileName))
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "."+FileName))
	}

	for _, candidate := range candidates {
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", false, oops.Code(errcode.Configuration).Errorf("failed to probe config file %s: %w", candidate, err)
		}
	}

	return "", false, nil
}

func findProjectRoot(dir string) (string, bool) {
	current := dir

	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current, true
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}
