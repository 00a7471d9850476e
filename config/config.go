// Package config loads runtime settings from TOML or YAML files and
// PLRT_* environment variables.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/prolog-runtime/runtime"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PLRT_"

// Engine backends.
const (
	BackendInterp = "interp"
	BackendWasm   = "wasm"
)

// Config holds runtime settings. Zero stack sizes select the engine
// default.
type Config struct {
	// Backend selects the engine: interp or wasm.
	Backend string `toml:"backend" yaml:"backend" env:"BACKEND"`
	// Image is the wasm engine image. Empty means the located library.
	Image string `toml:"image" yaml:"image" env:"IMAGE"`
	// MemoryLimitPages caps wasm guest memory in 64KB pages.
	MemoryLimitPages uint32 `toml:"memory_limit_pages" yaml:"memory_limit_pages" env:"MEMORY_LIMIT_PAGES"`

	Library  string `toml:"library" yaml:"library" env:"LIBRARY"`
	Helper   string `toml:"helper" yaml:"helper" env:"HELPER"`
	BootFile string `toml:"boot_file" yaml:"boot_file" env:"BOOT_FILE"`
	ProcRoot string `toml:"proc_root" yaml:"proc_root" env:"PROC_ROOT"`

	LocalKB    int `toml:"local_kb" yaml:"local_kb" env:"LOCAL_KB"`
	GlobalKB   int `toml:"global_kb" yaml:"global_kb" env:"GLOBAL_KB"`
	TrailKB    int `toml:"trail_kb" yaml:"trail_kb" env:"TRAIL_KB"`
	ArgumentKB int `toml:"argument_kb" yaml:"argument_kb" env:"ARGUMENT_KB"`

	// Trace holds trace commands run after startup.
	Trace string `toml:"trace" yaml:"trace" env:"TRACE"`

	LogLevel string `toml:"log_level" yaml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Backend:  BackendInterp,
		Library:  runtime.DefaultLibrary,
		Helper:   runtime.DefaultHelperPath,
		LogLevel: "info",
	}
}

// Load starts from Default, applies the file at path when path is not
// empty and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.DecodeFile(path, c)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
		return nil
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("load config %s: unsupported format", path)
}

// Validate checks the backend, stack sizes and log level.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendInterp, BackendWasm:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	sizes := []struct {
		name string
		kb   int
	}{
		{"local_kb", c.LocalKB},
		{"global_kb", c.GlobalKB},
		{"trail_kb", c.TrailKB},
		{"argument_kb", c.ArgumentKB},
	}
	for _, s := range sizes {
		if s.kb < 0 {
			return fmt.Errorf("%s must not be negative", s.name)
		}
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// InitOptions maps the startup settings.
func (c Config) InitOptions() runtime.InitOptions {
	return runtime.InitOptions{
		LocalKB:    c.LocalKB,
		GlobalKB:   c.GlobalKB,
		TrailKB:    c.TrailKB,
		ArgumentKB: c.ArgumentKB,
		BootFile:   c.BootFile,
	}
}

// RuntimeConfig maps the settings used by runtime.New.
func (c Config) RuntimeConfig() *runtime.Config {
	return &runtime.Config{
		Library:    c.Library,
		HelperPath: c.Helper,
		ProcRoot:   c.ProcRoot,
	}
}

// Logger builds a console logger at the configured level.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true
	return zc.Build()
}
