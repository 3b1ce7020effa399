package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("identity-bridge version %s, commit %s, built at %s", version, commit, date)
}

// Version returns the bare version string.
func Version() string {
	return version
}

const envPrefix = "IDENTITY_BRIDGE"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Downstream   DownstreamConfig   `mapstructure:"downstream"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

// AuthType represents how the downstream credential is attached to requests
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeStatic AuthType = "static"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeOAuth2 AuthType = "oauth2"
)

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	HookSecret      string        `mapstructure:"hook_secret"`
	MCPEnabled      bool          `mapstructure:"mcp_enabled"`
	ValidateHooks   bool          `mapstructure:"validate_hooks"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// DownstreamConfig describes the account-management API.
type DownstreamConfig struct {
	Domain   string        `mapstructure:"domain"`
	BaseURL  string        `mapstructure:"base_url"` // overrides https://<domain>
	Token    string        `mapstructure:"token"`
	AuthType AuthType      `mapstructure:"auth_type"`
	Timeout  time.Duration `mapstructure:"timeout"`
	OAuth2   OAuth2Config  `mapstructure:"oauth2"`
}

// OAuth2Config holds client-credentials settings used when auth_type is oauth2.
type OAuth2Config struct {
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
	Audience     string   `mapstructure:"audience"`
}

// URL joins path onto the downstream base.
func (d DownstreamConfig) URL(path string) string {
	base := strings.TrimRight(d.BaseURL, "/")
	if base == "" {
		base = "https://" + strings.TrimRight(d.Domain, "/")
	}
	return base + path
}

// HasCredential reports whether the configured auth type has what it needs.
func (d DownstreamConfig) HasCredential() bool {
	switch d.AuthType {
	case AuthTypeNone:
		return true
	case AuthTypeOAuth2:
		return d.OAuth2.ClientID != "" && d.OAuth2.ClientSecret != "" && d.OAuth2.TokenURL != ""
	default:
		return d.Token != ""
	}
}

// String keeps secrets out of log output.
func (d DownstreamConfig) String() string {
	token := ""
	if d.Token != "" {
		token = "[redacted]"
	}
	return fmt.Sprintf("{url:%s auth:%s token:%s timeout:%s}", d.URL(""), d.AuthType, token, d.Timeout)
}

type RegistrationConfig struct {
	// SuppressErrors answers the registration hook with 202 when the
	// downstream sync fails instead of surfacing the failure.
	SuppressErrors bool `mapstructure:"suppress_errors"`
}

type TelemetryConfig struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
}

// InitFlags registers the flags Load understands on fs (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file")
	fs.String("downstream.domain", "", "Account API domain")
	fs.String("downstream.base-url", "", "Account API base URL (overrides the domain)")
	fs.Duration("downstream.timeout", 0, "Timeout for account API calls")
	fs.String("logging.level", "", "Log level")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.validate_hooks", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("downstream.domain", "api.ajanottaja.app")
	v.SetDefault("downstream.auth_type", string(AuthTypeStatic))
	v.SetDefault("downstream.timeout", 5*time.Second)
	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("telemetry.service_name", "identity-bridge")

	// Unmarshal only sees keys viper knows about; register the rest so
	// AutomaticEnv can fill them.
	for _, key := range []string{
		"server.hook_secret",
		"downstream.base_url",
		"downstream.oauth2.token_url",
		"downstream.oauth2.client_id",
		"downstream.oauth2.client_secret",
		"downstream.oauth2.audience",
		"logging.output_path",
		"telemetry.otlp_endpoint",
	} {
		v.SetDefault(key, "")
	}
	for _, key := range []string{
		"server.mcp_enabled",
		"registration.suppress_errors",
		"logging.color",
		"logging.disable_stacktrace",
		"logging.append_to_file",
		"logging.disable_console",
	} {
		v.SetDefault(key, false)
	}
	v.SetDefault("downstream.oauth2.scopes", []string{})
}

// Load reads configuration from defaults, an optional config file, the
// environment (including a .env file) and flags, in increasing precedence.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Secret names used by the identity platform's action runtime.
	if err := v.BindEnv("downstream.token", envPrefix+"_DOWNSTREAM_TOKEN", "API_TOKEN"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("downstream.domain", envPrefix+"_DOWNSTREAM_DOMAIN", "API_DOMAIN"); err != nil {
		return nil, err
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/identity-bridge")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindFlags maps dashed flag names onto the underscored config keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if !f.Changed && key != "config" {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})
	return bindErr
}

// Validate checks the loaded configuration for values the relay cannot run with.
func (c *Config) Validate() error {
	switch c.Downstream.AuthType {
	case AuthTypeNone, AuthTypeStatic, AuthTypeBearer:
	case AuthTypeOAuth2:
		if c.Downstream.OAuth2.TokenURL == "" {
			return fmt.Errorf("downstream.oauth2.token_url is required when downstream.auth_type is oauth2")
		}
	default:
		return fmt.Errorf("unsupported downstream.auth_type: %q", c.Downstream.AuthType)
	}

	if c.Downstream.Domain == "" && c.Downstream.BaseURL == "" {
		return fmt.Errorf("downstream.domain is required, please adjust the config or set API_DOMAIN")
	}
	if c.Downstream.Timeout <= 0 {
		return fmt.Errorf("downstream.timeout must be positive, got %s", c.Downstream.Timeout)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}
