// Package config resolves revstamp settings from flags, REVSTAMP_*
// environment variables and an optional .revstamp.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sergeknystautas/revstamp/internal/logging"
	"github.com/sergeknystautas/revstamp/internal/output"
	"github.com/sergeknystautas/revstamp/internal/render"
	"github.com/sergeknystautas/revstamp/internal/vcs"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid config")
)

const (
	// FileName is looked up in the working directory.
	FileName = ".revstamp.yaml"
	// EnvConfig names an explicit config file.
	EnvConfig = "REVSTAMP_CONFIG"
	EnvPrefix = "REVSTAMP"

	DefaultTimeout = vcs.DefaultTimeout
	DefaultJobs    = 4
)

// Keys shared by flags, environment variables and the config file.
const (
	KeyFormat         = "format"
	KeyOutput         = "output"
	KeyCache          = "cache"
	KeyNoCache        = "no-cache"
	KeyForceCache     = "force-cache"
	KeyExtra          = "extra"
	KeySymbol         = "symbol"
	KeyCountUntracked = "count-untracked"
	KeyTimeout        = "timeout"
	KeyJobs           = "jobs"
	KeyLogLevel       = "log-level"
	KeyDiff           = "diff"
	KeyCommands       = "commands"
)

// Binaries lists the VCS commands that accept an override under
// commands.<binary>.
var Binaries = []string{"bzr", "fossil", "git", "hg", "sl", "svn"}

// Settings is the resolved configuration.
type Settings struct {
	Format         string            `mapstructure:"format" yaml:"format,omitempty"`
	Output         string            `mapstructure:"output" yaml:"output,omitempty"`
	Cache          string            `mapstructure:"cache" yaml:"cache,omitempty"`
	NoCache        bool              `mapstructure:"no-cache" yaml:"no-cache,omitempty"`
	ForceCache     bool              `mapstructure:"force-cache" yaml:"force-cache,omitempty"`
	Extra          string            `mapstructure:"extra" yaml:"extra,omitempty"`
	Symbol         string            `mapstructure:"symbol" yaml:"symbol,omitempty"`
	CountUntracked bool              `mapstructure:"count-untracked" yaml:"count-untracked,omitempty"`
	Timeout        time.Duration     `mapstructure:"timeout" yaml:"timeout,omitempty"`
	Jobs           int               `mapstructure:"jobs" yaml:"jobs,omitempty"`
	LogLevel       string            `mapstructure:"log-level" yaml:"log-level,omitempty"`
	Diff           bool              `mapstructure:"diff" yaml:"-"`
	Commands       map[string]string `mapstructure:"commands" yaml:"commands,omitempty"`

	// path is the file the settings were read from, "" when none.
	path string
}

// NewViper returns a viper instance reading REVSTAMP_* variables and, when
// present, the config file for dir. An explicit $REVSTAMP_CONFIG must
// exist; the per-directory file is optional.
func NewViper(dir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	// env-only keys are invisible to Unmarshal unless viper knows them
	for key, zero := range defaults() {
		v.SetDefault(key, zero)
	}

	if explicit := os.Getenv(EnvConfig); explicit != "" {
		path, err := homedir.Expand(explicit)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvConfig, err)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		v.SetConfigFile(path)
		return v, readConfigFile(v)
	}

	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		return v, nil
	}
	v.SetConfigFile(path)
	return v, readConfigFile(v)
}

func defaults() map[string]any {
	d := make(map[string]any)
	for _, k := range []string{KeyFormat, KeyOutput, KeyCache, KeyExtra, KeySymbol, KeyLogLevel} {
		d[k] = ""
	}
	for _, k := range []string{KeyNoCache, KeyForceCache, KeyCountUntracked, KeyDiff} {
		d[k] = false
	}
	d[KeyTimeout] = time.Duration(0)
	d[KeyJobs] = 0
	for _, b := range Binaries {
		d[KeyCommands+"."+b] = ""
	}
	return d
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, v.ConfigFileUsed(), err)
	}
	return nil
}

// Load resolves and validates settings from v.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	s.path = v.ConfigFileUsed()
	if err := s.expandPaths(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) expandPaths() error {
	for _, p := range []*string{&s.Output, &s.Cache} {
		if *p == "" || *p == output.Stdout {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks every setting that could only fail later, mid-run.
func (s *Settings) Validate() error {
	if _, err := render.Get(s.GetFormat()); err != nil {
		return fmt.Errorf("%w: format: %w", ErrInvalidConfig, err)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be > 0", ErrInvalidConfig)
	}
	if s.Jobs < 0 {
		return fmt.Errorf("%w: jobs must be > 0", ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("%w: log-level: %w", ErrInvalidConfig, err)
	}
	if s.NoCache && s.ForceCache {
		return fmt.Errorf("%w: no-cache and force-cache are mutually exclusive", ErrInvalidConfig)
	}
	for name := range s.Commands {
		if !knownBinary(name) {
			return fmt.Errorf("%w: commands.%s: unknown VCS command (known: %s)", ErrInvalidConfig, name, strings.Join(Binaries, ", "))
		}
	}
	if _, err := vcs.ParseCommandOverrides(s.Commands); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func knownBinary(name string) bool {
	for _, b := range Binaries {
		if b == name {
			return true
		}
	}
	return false
}

// Path returns the config file the settings came from, "" when none.
func (s *Settings) Path() string {
	return s.path
}

// GetFormat returns the renderer name.
func (s *Settings) GetFormat() string {
	if s.Format == "" {
		return render.DefaultFormat
	}
	return s.Format
}

// GetOutput returns the output path, output.Stdout when unset.
func (s *Settings) GetOutput() string {
	if s.Output == "" {
		return output.Stdout
	}
	return s.Output
}

func (s *Settings) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

func (s *Settings) GetJobs() int {
	if s.Jobs <= 0 {
		return DefaultJobs
	}
	return s.Jobs
}

func (s *Settings) GetLogLevel() string {
	if s.LogLevel == "" {
		return logging.DefaultLevel
	}
	return s.LogLevel
}

// GetCommands returns the non-empty command overrides.
func (s *Settings) GetCommands() map[string]string {
	out := make(map[string]string, len(s.Commands))
	for k, v := range s.Commands {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// Default returns the settings `revstamp init --yes` writes.
func Default() *Settings {
	return &Settings{
		Format:   render.DefaultFormat,
		Timeout:  DefaultTimeout,
		Jobs:     DefaultJobs,
		LogLevel: logging.DefaultLevel,
	}
}

// Marshal renders settings as a config file.
func (s *Settings) Marshal() ([]byte, error) {
	c := *s
	c.Commands = s.GetCommands()
	data, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return append([]byte("# revstamp configuration\n"), data...), nil
}

// Save writes settings to path atomically.
func (s *Settings) Save(path string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := output.AtomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	s.path = path
	return nil
}
