package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/yzharold/RCAS/internal/logger"
)

// Config holds the settings shared by the rcas-setup commands.
type Config struct {
	// Prefix is the installation root; the launcher goes to <prefix>/bin.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	// Interpreter runs the installed entry points and is asked for its version.
	Interpreter string `yaml:"interpreter" mapstructure:"interpreter"`
	// DistDir is where build writes and publish/serve read the distribution.
	DistDir string `yaml:"dist_dir" mapstructure:"dist_dir"`
	// Timeout bounds network calls and interpreter version checks.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// LogLevel is the level of the command logger.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// ListenAddress is the HTTP address of `serve`.
	ListenAddress string `yaml:"listen_addr" mapstructure:"listen_addr"`
	// AccessLogLevel gates per-request log lines of `serve`; empty follows LogLevel.
	AccessLogLevel string `yaml:"access_log_level" mapstructure:"access_log_level"`
	// Publish configures the object storage target of `publish`.
	Publish PublishConfig `yaml:"publish" mapstructure:"publish"`
}

// PublishConfig describes an S3-compatible bucket.
type PublishConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	UseTLS    bool   `yaml:"use_tls" mapstructure:"use_tls"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

const (
	// DefaultConfigFilename is read when no --config is given.
	DefaultConfigFilename = "rcas-settings.yaml"

	// DefaultPrefix is the installation root when none is configured.
	DefaultPrefix = "/usr/local"

	// DefaultInterpreter is the runtime RCAS declares support for.
	DefaultInterpreter = "python2.7"

	// DefaultDistDir receives build output.
	DefaultDistDir = "dist"

	// DefaultListenAddress is used by `serve`.
	DefaultListenAddress = "127.0.0.1:8080"

	// DefaultTimeout bounds network operations and interpreter version checks.
	DefaultTimeout = 10 * time.Second

	// DefaultFilePermissions is used for the settings file; it may hold credentials.
	DefaultFilePermissions = 0o600

	// envPrefix namespaces the environment overrides.
	envPrefix = "RCAS"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownLogLevel is returned for level names zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
	// errEndpointScheme is returned when the storage endpoint carries a URL scheme.
	errEndpointScheme = errors.New("publish endpoint must be host[:port] without scheme")
)

// Load reads settings from path, applies RCAS_* environment overrides and validates them.
// A missing file is not an error: defaults and environment apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path = filepath.Clean(path)

	switch _, err := os.Stat(path); {
	case err == nil:
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err = v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("stat settings: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks formats.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Interpreter == "" {
		cfg.Interpreter = DefaultInterpreter
	}

	if cfg.DistDir == "" {
		cfg.DistDir = DefaultDistDir
	}

	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	prefix, err := filepath.Abs(cfg.Prefix)
	if err != nil {
		return fmt.Errorf("resolve prefix: %w", err)
	}

	cfg.Prefix = prefix

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, err = net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	for _, level := range []string{cfg.LogLevel, cfg.AccessLogLevel} {
		if _, ok := logger.ParseLogLevel(level); !ok {
			return fmt.Errorf("%w: %q", errUnknownLogLevel, level)
		}
	}

	if strings.Contains(cfg.Publish.Endpoint, "://") {
		return fmt.Errorf("%w: %s", errEndpointScheme, cfg.Publish.Endpoint)
	}

	return nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("prefix", DefaultPrefix)
	v.SetDefault("interpreter", DefaultInterpreter)
	v.SetDefault("dist_dir", DefaultDistDir)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", DefaultListenAddress)
	v.SetDefault("access_log_level", "")
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.access_key", "")
	v.SetDefault("publish.secret_key", "")
	v.SetDefault("publish.use_tls", false)
	v.SetDefault("publish.key_prefix", "")
}
