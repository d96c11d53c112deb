package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to upper-cased keys, e.g. PAL_SYNC_TASKS_DIR.
const EnvPrefix = "PAL_SYNC"

var envKeys = []string{
	"domains_dir",
	"projects_dir",
	"project_prefix",
	"tasks_dir",
	"master_file",
	"baseline_db",
	"log.level",
	"log.format",
}

// LoadOptions selects which files take part in loading.
type LoadOptions struct {
	// Workspace root; when empty the workspace file is skipped
	Root string

	// Explicit file, must exist when set
	File string
}

// Load merges defaults, the global file, the workspace file, an explicit
// file and PAL_SYNC_* environment variables, in that order.
func Load(opts LoadOptions) (*Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		if err := loadFile(filepath.Join(home, ".pal", "sync.yaml"), cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load global config: %w", err)
		}
	}

	if opts.Root != "" {
		if err := loadFile(WorkspaceConfigPath(opts.Root), cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load workspace config: %w", err)
		}
	}

	if opts.File != "" {
		if err := loadFile(opts.File, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", opts.File, err)
		}
	}

	if err := loadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

func loadEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	return v.Unmarshal(cfg)
}

// Validate rejects empty path settings and unknown log formats.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"domains_dir":    c.DomainsDir,
		"projects_dir":   c.ProjectsDir,
		"project_prefix": c.ProjectPrefix,
		"tasks_dir":      c.TasksDir,
		"master_file":    c.MasterFile,
		"baseline_db":    c.BaselineDB,
	}
	for _, key := range envKeys[:6] {
		if strings.TrimSpace(required[key]) == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", key))
		}
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GlobalConfigPath returns the path to the global config file
func GlobalConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pal", "sync.yaml")
}

// WorkspaceConfigPath returns the path to the workspace config file
func WorkspaceConfigPath(root string) string {
	return filepath.Join(root, ".pal", "sync.yaml")
}
