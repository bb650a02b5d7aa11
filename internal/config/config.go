// Package config provides configuration management for actionbar.
//
// Configuration comes from a global file (~/.config/actionbar/config.yaml)
// overlaid by an optional workspace file (<workspace>/.actionbar.yaml).
// Scalar keys in the workspace file override global ones; a workspace
// commands list replaces the global list.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultConfigDir  = ".config/actionbar"
	DefaultConfigFile = "config.yaml"
	LocalConfigFile   = ".actionbar.yaml"
	DefaultColor      = "white"
)

// Terminal hosts.
const (
	HostTmux  = "tmux"
	HostShell = "shell"
)

// Sentinel errors for configuration operations.
var (
	ErrInvalidKey   = errors.New("invalid configuration key")
	ErrInvalidHost  = errors.New("invalid host name")
	ErrInvalidShell = errors.New("invalid shell name")
	ErrNoEditor     = errors.New("$EDITOR environment variable not set")
)

var validHosts = map[string]bool{
	HostTmux:  true,
	HostShell: true,
}

var validShells = map[string]bool{
	"posix":      true,
	"powershell": true,
	"cmd":        true,
}

// validKeys is built once from Config struct reflection.
var validKeys = buildValidKeys()

var validate = validator.New()

// Config represents the merged actionbar configuration.
type Config struct {
	DefaultColor          string        `mapstructure:"defaultColor" yaml:"defaultColor"`
	ReloadButton          string        `mapstructure:"reloadButton" yaml:"reloadButton"`
	LoadNpmCommands       bool          `mapstructure:"loadNpmCommands" yaml:"loadNpmCommands"`
	InheritGlobalCommands bool          `mapstructure:"inheritGlobalCommands" yaml:"inheritGlobalCommands"`
	Commands              []CommandSpec `mapstructure:"commands" yaml:"commands" validate:"dive"`

	Host             string   `mapstructure:"host" yaml:"host" validate:"omitempty,oneof=tmux shell"`
	Shell            string   `mapstructure:"shell" yaml:"shell" validate:"omitempty,oneof=posix powershell cmd"`
	StrictVariables  bool     `mapstructure:"strictVariables" yaml:"strictVariables"`
	SaveAllCommand   string   `mapstructure:"saveAllCommand" yaml:"saveAllCommand"`
	EnvFile          string   `mapstructure:"envFile" yaml:"envFile"`
	NpmManifests     []string `mapstructure:"npmManifests" yaml:"npmManifests"`
	LogDir           string   `mapstructure:"logDir" yaml:"logDir"`
	WorkspaceFolders []Folder `mapstructure:"workspaceFolders" yaml:"workspaceFolders" validate:"dive"`

	// GlobalCommands holds the commands of the global file alone, used
	// when InheritGlobalCommands is set. Not a configuration key.
	GlobalCommands []CommandSpec `mapstructure:"-" yaml:"-"`
	// HasLocalCommands reports whether the workspace file defines commands.
	HasLocalCommands bool `mapstructure:"-" yaml:"-"`
}

// Folder is a named workspace root.
type Folder struct {
	Name string `mapstructure:"name" yaml:"name" validate:"required"`
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// CommandSpec is one user-defined action.
type CommandSpec struct {
	Command         string   `mapstructure:"command" yaml:"command"`
	Name            string   `mapstructure:"name" yaml:"name" validate:"required"`
	Cwd             string   `mapstructure:"cwd" yaml:"cwd,omitempty"`
	Tooltip         string   `mapstructure:"tooltip" yaml:"tooltip,omitempty"`
	Color           string   `mapstructure:"color" yaml:"color,omitempty"`
	SaveAll         bool     `mapstructure:"saveAll" yaml:"saveAll,omitempty"`
	OpenOwnTerminal *bool    `mapstructure:"openOwnTerminal" yaml:"openOwnTerminal,omitempty"`
	SingleInstance  bool     `mapstructure:"singleInstance" yaml:"singleInstance,omitempty"`
	Focus           bool     `mapstructure:"focus" yaml:"focus,omitempty"`
	CloseOnSuccess  bool     `mapstructure:"closeOnSuccess" yaml:"closeOnSuccess,omitempty"`
	UseVsCodeAPI    bool     `mapstructure:"useVsCodeApi" yaml:"useVsCodeApi,omitempty"`
	Args            []string `mapstructure:"args" yaml:"args,omitempty"`
}

// OwnTerminal reports whether the command runs in a terminal of its own.
// Unset means true.
func (c *CommandSpec) OwnTerminal() bool {
	return c.OpenOwnTerminal == nil || *c.OpenOwnTerminal
}

// Validate checks the configuration for errors using struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Specs returns the configured commands in registration order: inherited
// global commands first, then the effective commands.
func (c *Config) Specs() []CommandSpec {
	var specs []CommandSpec
	if c.InheritGlobalCommands && c.HasLocalCommands {
		specs = append(specs, c.GlobalCommands...)
	}
	return append(specs, c.Commands...)
}

// Loader provides configuration loading.
type Loader struct {
	v         *viper.Viper
	path      string
	localPath string
	homeDir   string
	workspace string
}

// NewLoader creates a loader for the given workspace root. An empty
// workspace disables the local overlay.
func NewLoader(workspace string) (*Loader, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}

	configPath := filepath.Join(home, DefaultConfigDir, DefaultConfigFile)

	l := &Loader{
		path:      configPath,
		homeDir:   home,
		workspace: workspace,
	}
	if workspace != "" {
		l.localPath = filepath.Join(workspace, LocalConfigFile)
	}
	l.v = l.newViper()

	return l, nil
}

func (l *Loader) newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(l.path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("ACTIONBAR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("host", "ACTIONBAR_HOST")
	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("shell", "ACTIONBAR_SHELL")
	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("defaultColor", "ACTIONBAR_DEFAULT_COLOR")

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("defaultColor", DefaultColor)
	v.SetDefault("reloadButton", "")
	v.SetDefault("loadNpmCommands", true)
	v.SetDefault("inheritGlobalCommands", false)
	v.SetDefault("commands", []map[string]any{})
	v.SetDefault("host", HostTmux)
	v.SetDefault("shell", defaultShell())
	v.SetDefault("strictVariables", false)
	v.SetDefault("saveAllCommand", "")
	v.SetDefault("envFile", "")
	v.SetDefault("npmManifests", []string{"package.json"})
	v.SetDefault("logDir", "")
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "powershell"
	}
	return "posix"
}

// Load reads the global file (creating it with defaults if missing),
// merges the workspace file over it and decodes the result.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := l.createDefault(); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
	}

	l.v = l.newViper()
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	globalCommands, err := decodeCommands(l.v.Get("commands"))
	if err != nil {
		return nil, fmt.Errorf("decode global commands: %w", err)
	}

	hasLocalCommands := false
	if l.localPath != "" {
		if _, statErr := os.Stat(l.localPath); statErr == nil {
			local := viper.New()
			local.SetConfigFile(l.localPath)
			local.SetConfigType("yaml")
			if err := local.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read workspace config: %w", err)
			}
			hasLocalCommands = local.IsSet("commands")
			if err := l.v.MergeConfigMap(local.AllSettings()); err != nil {
				return nil, fmt.Errorf("merge workspace config: %w", err)
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.GlobalCommands = globalCommands
	cfg.HasLocalCommands = hasLocalCommands
	cfg.LogDir = l.expandPath(cfg.LogDir)
	cfg.EnvFile = l.expandPath(cfg.EnvFile)

	return &cfg, nil
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.WeaklyTypedInput = true
}

func decodeCommands(raw any) ([]CommandSpec, error) {
	var specs []CommandSpec
	if raw == nil {
		return specs, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &specs,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return specs, nil
}

// Path returns the global configuration file path.
func (l *Loader) Path() string {
	return l.path
}

// LocalPath returns the workspace configuration file path, or "" when the
// loader has no workspace.
func (l *Loader) LocalPath() string {
	return l.localPath
}

// Get returns a merged configuration value by key. Load must be called first.
func (l *Loader) Get(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return l.v.Get(key), nil
}

// Set writes a scalar value to the global configuration file.
func (l *Loader) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if key == "commands" || key == "workspaceFolders" || key == "npmManifests" {
		return fmt.Errorf("%w: %s is a list, edit the file instead", ErrInvalidKey, key)
	}
	if key == "host" && !validHosts[value] {
		return fmt.Errorf("%w: %s (valid: tmux, shell)", ErrInvalidHost, value)
	}
	if key == "shell" && !validShells[value] {
		return fmt.Errorf("%w: %s (valid: posix, powershell, cmd)", ErrInvalidShell, value)
	}

	// Write through a viper that only knows the global file so the
	// workspace overlay never leaks into it.
	global := l.newViper()
	if err := global.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	global.Set(key, value)
	if err := global.WriteConfig(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	l.v.Set(key, value)
	return nil
}

func (l *Loader) createDefault() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return l.v.SafeWriteConfigAs(l.path)
}

// expandPath replaces ~ with the home directory and resolves paths
// relative to the workspace.
func (l *Loader) expandPath(path string) string {
	switch {
	case path == "":
		return ""
	case path == "~":
		return l.homeDir
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(l.homeDir, path[2:])
	case !filepath.IsAbs(path) && l.workspace != "":
		return filepath.Join(l.workspace, path)
	}
	return path
}

// ValidateKey checks if a key is a valid configuration key.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if validKeys[strings.ToLower(key)] {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidKey, key)
}

// buildValidKeys collects the top-level mapstructure tags of Config.
// Viper keys are case-insensitive, so keys are stored lowercased.
func buildValidKeys() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(Config{})
	for i := range t.NumField() {
		tag := t.Field(i).Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		keys[strings.ToLower(tag)] = true
	}
	return keys
}

// IsValidHost reports whether name is a supported terminal host.
func IsValidHost(name string) bool {
	return validHosts[name]
}
