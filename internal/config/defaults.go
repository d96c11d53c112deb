package config

import (
	"os"
	"path/filepath"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DomainsDir:    "domains",
		ProjectsDir:   "01_PROJECTS",
		ProjectPrefix: "PROJECT_",
		TasksDir:      "tasks",
		MasterFile:    "MASTER.md",
		BaselineDB:    ".baseline.db",
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// WriteDefault writes a commented default configuration file
func WriteDefault(path string) error {
	content := `# sync-tasks configuration
# Paths are relative to the workspace root.

domains_dir: domains
projects_dir: 01_PROJECTS
project_prefix: PROJECT_

# MASTER.md and the pull baseline live here
tasks_dir: tasks
master_file: MASTER.md
baseline_db: .baseline.db

log:
  level: warn      # debug, info, warn, error
  format: console  # console or json
`
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}
