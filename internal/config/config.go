// Package config loads packhooks.yaml: the project to package, the named
// providers and jobs to install, their configuration data, logging and
// metrics settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "packhooks.yaml"

// Config represents the application configuration
type Config struct {
	Project  ProjectConfig  `yaml:"project"`
	Tasks    TasksConfig    `yaml:"tasks"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Schedule ScheduleConfig `yaml:"schedule,omitempty"`

	// dir is the directory the file was loaded from.
	dir string
}

// ProjectConfig locates the package to build.
type ProjectConfig struct {
	// Root is relative to the configuration file.
	Root string `yaml:"root"`
	// Manifest is relative to Root.
	Manifest string `yaml:"manifest"`
	Bundle   string `yaml:"bundle"`
}

// TasksConfig selects the hooks installed around the packager.
type TasksConfig struct {
	// Config names registered providers, applied in order.
	Config []string `yaml:"config,omitempty"`
	// Jobs names declared job types, registered after the providers.
	Jobs []string `yaml:"jobs,omitempty"`
	// Args is a query string, e.g. "bump=minor&dry=1".
	Args string         `yaml:"args,omitempty"`
	Data map[string]any `yaml:"data,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// ScheduleConfig drives periodic builds. Exactly one of Cron or Interval
// is set when scheduling is used.
type ScheduleConfig struct {
	Cron     string `yaml:"cron,omitempty"`
	Interval string `yaml:"interval,omitempty"`
}

// Load loads configuration from the specified file. Variables from .env
// files next to it are added to the environment without overriding it, and
// ${VAR} references are expanded before decoding.
func Load(configPath string) (*Config, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, perrors.FileSystemError("resolve config path", err)
	}
	dir := filepath.Dir(abs)
	if err := loadEnvFiles(dir); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs) // #nosec G304 -- config path is supplied by the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perrors.ConfigNotFound(abs)
		}
		return nil, perrors.FileSystemError("read config", err).WithContext("path", abs)
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, err
	}
	cfg.dir = dir
	return cfg, nil
}

// Parse decodes, defaults and validates configuration content. Unknown keys
// are rejected. Paths resolve against the working directory.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, perrors.ConfigInvalid("config", err.Error())
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.dir == "" {
		cfg.dir, _ = os.Getwd()
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Project.Root == "" {
		c.Project.Root = "."
	}
	if c.Project.Manifest == "" {
		c.Project.Manifest = "package.yaml"
	}
	if c.Project.Bundle == "" {
		c.Project.Bundle = "tgz"
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	if c.Tasks.Data == nil {
		c.Tasks.Data = map[string]any{}
	}
}

// Dir returns the directory the configuration was loaded from.
func (c *Config) Dir() string { return c.dir }

// RootDir returns the absolute project root.
func (c *Config) RootDir() string {
	if filepath.IsAbs(c.Project.Root) {
		return filepath.Clean(c.Project.Root)
	}
	return filepath.Join(c.dir, c.Project.Root)
}

// ManifestPath returns the absolute manifest path.
func (c *Config) ManifestPath() string {
	if filepath.IsAbs(c.Project.Manifest) {
		return filepath.Clean(c.Project.Manifest)
	}
	return filepath.Join(c.RootDir(), c.Project.Manifest)
}

// JobTypes returns the configured jobs as job handles.
func (c *Config) JobTypes() []hooks.JobType {
	out := make([]hooks.JobType, 0, len(c.Tasks.Jobs))
	for _, j := range c.Tasks.Jobs {
		out = append(out, hooks.JobType(j))
	}
	return out
}

// Providers resolves the configured provider names in table.
func (c *Config) Providers(table *hooks.ProviderTable) ([]hooks.Provider, error) {
	out := make([]hooks.Provider, 0, len(c.Tasks.Config))
	for _, name := range c.Tasks.Config {
		p, err := table.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return perrors.ConfigInvalid("path", fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath)
	}

	example := Config{
		Project: ProjectConfig{Root: ".", Manifest: "package.yaml", Bundle: "tgz"},
		Tasks: TasksConfig{
			Config: []string{"copy-license"},
			Jobs:   []string{"bump", "copy-file", "readme", "ledger"},
			Data: map[string]any{
				"bump":     map[string]any{"release": "patch"},
				"copyFile": map[string]any{"assets": []any{"CHANGELOG.md"}},
				"publish": map[string]any{
					"bucket":          "${PACKHOOKS_BUCKET}",
					"accessKeyId":     "${AWS_ACCESS_KEY_ID}",
					"secretAccessKey": "${AWS_SECRET_ACCESS_KEY}",
				},
			},
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}

	var buf bytes.Buffer
	buf.WriteString("# packhooks configuration\n# ${VAR} references are expanded from the environment and .env files.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(example); err != nil {
		return perrors.InternalError("encode example configuration", err)
	}
	if err := enc.Close(); err != nil {
		return perrors.InternalError("encode example configuration", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return perrors.FileSystemError("create config directory", err)
	}
	if err := os.WriteFile(configPath, buf.Bytes(), 0o600); err != nil {
		return perrors.FileSystemError("write config", err).WithContext("path", configPath)
	}
	return nil
}
