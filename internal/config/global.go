package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/grn/config.yml.
type GlobalConfig struct {
	ProjectPath string `yaml:"project_path,omitempty"`
	LibraryDir  string `yaml:"library_dir,omitempty"`
	LogMode     string `yaml:"log_mode,omitempty"`
}

// Global config location and the environment override for library_dir.
const (
	GlobalConfigDir  = "grn"
	GlobalConfigFile = "config.yml"
	LibraryDirEnv    = "GRN_LIBRARY_DIR"
)

var (
	globalMu     sync.Mutex
	globalLoaded *GlobalConfig
)

// GlobalConfigPath is $XDG_CONFIG_HOME/grn/config.yml, falling back to
// ~/.config. It is empty when no home directory can be found.
func GlobalConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig reads the global config once per process. A missing file
// yields the zero config. Paths are expanded on load.
func LoadGlobalConfig() (*GlobalConfig, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLoaded != nil {
		return globalLoaded, nil
	}

	cfg := &GlobalConfig{}
	if path := GlobalConfigPath(); path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("opening %s: %w", path, err)
		default:
			err = decodeGlobalConfig(f, cfg)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	globalLoaded = cfg
	return cfg, nil
}

func decodeGlobalConfig(r io.Reader, cfg *GlobalConfig) error {
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding yaml: %w", err)
	}
	cfg.ProjectPath = ExpandPath(cfg.ProjectPath)
	cfg.LibraryDir = ExpandPath(cfg.LibraryDir)
	return nil
}

// ResetGlobalConfigCache forces the next LoadGlobalConfig to reread the file.
func ResetGlobalConfigCache() {
	globalMu.Lock()
	globalLoaded = nil
	globalMu.Unlock()
}

// GetConfigValue returns the environment variable if set, otherwise the
// config value.
func GetConfigValue(envKey, configValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return configValue
}

// GetProjectPath returns the configured default project from global config.
func GetProjectPath() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.ProjectPath
}

// GetLogMode returns the configured log mode from global config.
func GetLogMode() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.LogMode
}

// ErrLibraryDirNotConfigured is returned when no library directory is set.
var ErrLibraryDirNotConfigured = errors.New("library directory not configured")

// ResolveLibraryDir picks the library root: the project setting first, then
// GRN_LIBRARY_DIR, then the global config.
func ResolveLibraryDir(cfg *Config) (string, error) {
	if cfg != nil && cfg.LibraryDir != "" {
		return ExpandPath(cfg.LibraryDir), nil
	}

	var globalDir string
	if g, err := LoadGlobalConfig(); err == nil {
		globalDir = g.LibraryDir
	}
	dir := GetConfigValue(LibraryDirEnv, globalDir)
	if dir == "" {
		return "", ErrLibraryDirNotConfigured
	}
	return ExpandPath(dir), nil
}

// HelpfulConfigMessage lists the ways to set the library directory.
func HelpfulConfigMessage() string {
	return fmt.Sprintf(`No TF-target library directory configured.

Set one of:
  grn config library-dir /path/to/libraries   (this project)
  export %s=/path/to/libraries         (environment or .env)
  echo 'library_dir: /path/to/libraries' >> %s`,
		LibraryDirEnv, GlobalConfigPath())
}
