package config

// Config is the sync-tasks configuration. All paths are relative to the
// workspace root unless absolute.
type Config struct {
	// Directory holding one subdirectory per domain
	DomainsDir string `yaml:"domains_dir" mapstructure:"domains_dir"`

	// Per-domain directory holding project files
	ProjectsDir string `yaml:"projects_dir" mapstructure:"projects_dir"`

	// Filename prefix selecting project files (suffix is always .md)
	ProjectPrefix string `yaml:"project_prefix" mapstructure:"project_prefix"`

	// Directory receiving the master document and the baseline database
	TasksDir string `yaml:"tasks_dir" mapstructure:"tasks_dir"`

	MasterFile string `yaml:"master_file" mapstructure:"master_file"`

	// SQLite file inside TasksDir recording the last pull
	BaselineDB string `yaml:"baseline_db" mapstructure:"baseline_db"`

	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// LogConfig configures diagnostic logging on stderr
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}
