package toml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/endalk200/better-webhook-sub002/internal/platform/runtime"
	pelletiertoml "github.com/pelletier/go-toml/v2"
)

// envPrefix namespaces the environment variables that override a loaded
// config file, e.g. BETTER_WEBHOOK_CAPTURES_DIR.
const envPrefix = "BETTER_WEBHOOK"

// fileConfig mirrors the on-disk TOML schema. Pointer fields distinguish
// "absent" from "set to the zero value" so Loader.Load can layer file
// values over runtime.DefaultConfig without a present file overwriting
// defaults with empty strings.
type fileConfig struct {
	CapturesDir  *string `toml:"captures_dir"`
	TemplatesDir *string `toml:"templates_dir"`
	LogLevel     *string `toml:"log_level"`
}

// Loader reads a better-webhook config file, layering env var overrides and
// defaults on top, and validates the result.
type Loader struct{}

func NewLoader() Loader {
	return Loader{}
}

// Load resolves configPath (falling back to the default location when
// empty), merges file values, BETTER_WEBHOOK_* environment overrides, and
// defaults, then expands and validates the result.
func (Loader) Load(configPath string) (runtime.AppConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return runtime.AppConfig{}, fmt.Errorf("resolve home directory: %w", err)
	}

	path, err := resolveConfigPath(configPath, homeDir)
	if err != nil {
		return runtime.AppConfig{}, err
	}
	fromFile, err := readFileConfig(path)
	if err != nil {
		return runtime.AppConfig{}, err
	}

	cfg := runtime.DefaultConfig(homeDir)
	fromFile.applyTo(&cfg)
	applyEnvOverrides(&cfg)

	cfg, err = expandConfigPaths(cfg, homeDir)
	if err != nil {
		return runtime.AppConfig{}, err
	}
	if err := validateConfig(cfg); err != nil {
		return runtime.AppConfig{}, err
	}
	return cfg, nil
}

func (fc fileConfig) applyTo(cfg *runtime.AppConfig) {
	if fc.CapturesDir != nil {
		cfg.CapturesDir = *fc.CapturesDir
	}
	if fc.TemplatesDir != nil {
		cfg.TemplatesDir = *fc.TemplatesDir
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
}

func resolveConfigPath(configPath, homeDir string) (string, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = runtime.DefaultConfigPath(homeDir)
	}
	expanded, err := expandPath(path, homeDir)
	if err != nil {
		return "", fmt.Errorf("resolve config path %q: %w", path, err)
	}
	return expanded, nil
}

// readFileConfig returns a zero-value fileConfig (not an error) when the
// file doesn't exist, since an absent config file just means "use defaults".
func readFileConfig(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	if err := rejectUnknownKeys(data, path); err != nil {
		return fileConfig{}, err
	}

	var parsed fileConfig
	if err := pelletiertoml.Unmarshal(data, &parsed); err != nil {
		return fileConfig{}, fmt.Errorf("parse TOML config %q: %w", path, err)
	}
	return parsed, nil
}

var knownConfigKeys = map[string]bool{
	"captures_dir":  true,
	"templates_dir": true,
	"log_level":     true,
}

func rejectUnknownKeys(content []byte, path string) error {
	var raw map[string]any
	if err := pelletiertoml.Unmarshal(content, &raw); err != nil {
		return fmt.Errorf("parse TOML config %q: %w", path, err)
	}
	for key := range raw {
		if !knownConfigKeys[key] {
			return fmt.Errorf("unsupported config key %q in %q", key, path)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *runtime.AppConfig) {
	if cfg == nil {
		return
	}
	if v, ok := os.LookupEnv(envPrefix + "_CAPTURES_DIR"); ok {
		cfg.CapturesDir = v
	}
	if v, ok := os.LookupEnv(envPrefix + "_TEMPLATES_DIR"); ok {
		cfg.TemplatesDir = v
	}
	if v, ok := os.LookupEnv(envPrefix + "_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
}

func expandConfigPaths(cfg runtime.AppConfig, homeDir string) (runtime.AppConfig, error) {
	cfg.CapturesDir = strings.TrimSpace(cfg.CapturesDir)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	capturesDir, err := expandPath(cfg.CapturesDir, homeDir)
	if err != nil {
		return runtime.AppConfig{}, fmt.Errorf("expand captures_dir: %w", err)
	}
	cfg.CapturesDir = capturesDir

	templatesDir, err := expandPath(cfg.TemplatesDir, homeDir)
	if err != nil {
		return runtime.AppConfig{}, fmt.Errorf("expand templates_dir: %w", err)
	}
	cfg.TemplatesDir = templatesDir

	return cfg, nil
}

func validateConfig(cfg runtime.AppConfig) error {
	if strings.TrimSpace(cfg.CapturesDir) == "" {
		return errors.New("captures_dir cannot be empty")
	}
	if strings.TrimSpace(cfg.TemplatesDir) == "" {
		return errors.New("templates_dir cannot be empty")
	}
	if !runtime.IsValidLogLevel(cfg.LogLevel) {
		return errors.New("log_level must be one of: debug, info, warn, error")
	}
	return nil
}

// expandPath resolves environment variables and a leading `~` (home
// directory) in pathValue, then returns an absolute, cleaned path.
func expandPath(pathValue, homeDir string) (string, error) {
	trimmed := strings.TrimSpace(os.ExpandEnv(pathValue))
	if trimmed == "" {
		return "", errors.New("path cannot be empty")
	}

	switch {
	case trimmed == "~":
		if homeDir == "" {
			return "", errors.New("home directory is not available for '~' expansion")
		}
		return homeDir, nil
	case strings.HasPrefix(trimmed, "~/"):
		if homeDir == "" {
			return "", errors.New("home directory is not available for '~' expansion")
		}
		return filepath.Join(homeDir, strings.TrimPrefix(trimmed, "~/")), nil
	case strings.HasPrefix(trimmed, "~"):
		return "", fmt.Errorf("unsupported home expansion in %q", trimmed)
	case filepath.IsAbs(trimmed):
		return filepath.Clean(trimmed), nil
	default:
		return filepath.Abs(trimmed)
	}
}
