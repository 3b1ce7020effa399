package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no stray config.yaml
// or .env is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "api.ajanottaja.app", cfg.Downstream.Domain)
	assert.Equal(t, AuthTypeStatic, cfg.Downstream.AuthType)
	assert.Equal(t, 5*time.Second, cfg.Downstream.Timeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.ValidateHooks)
	assert.True(t, cfg.Telemetry.MetricsEnabled)
	assert.False(t, cfg.Registration.SuppressErrors)
	assert.Empty(t, cfg.Downstream.Token)
}

func TestLoad_HostSecretAliases(t *testing.T) {
	chdirTemp(t)
	t.Setenv("API_TOKEN", "secret-token")
	t.Setenv("API_DOMAIN", "api.example.test")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Downstream.Token)
	assert.Equal(t, "api.example.test", cfg.Downstream.Domain)
	assert.Equal(t, "https://api.example.test/auth-zero/create-account", cfg.Downstream.URL("/auth-zero/create-account"))
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	chdirTemp(t)
	t.Setenv("API_TOKEN", "host-token")
	t.Setenv("IDENTITY_BRIDGE_DOWNSTREAM_TOKEN", "prefixed-token")
	t.Setenv("IDENTITY_BRIDGE_SERVER_HOOK_SECRET", "hook")
	t.Setenv("IDENTITY_BRIDGE_REGISTRATION_SUPPRESS_ERRORS", "true")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "prefixed-token", cfg.Downstream.Token)
	assert.Equal(t, "hook", cfg.Server.HookSecret)
	assert.True(t, cfg.Registration.SuppressErrors)
}

func TestLoad_ConfigFileAndFlags(t *testing.T) {
	dir := chdirTemp(t)
	file := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 9090
downstream:
  domain: api.from-file.test
  timeout: 2s
logging:
  level: debug
`), 0o600))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", file, "--downstream.timeout", "750ms"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "api.from-file.test", cfg.Downstream.Domain)
	assert.Equal(t, 750*time.Millisecond, cfg.Downstream.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Downstream: DownstreamConfig{
				Domain:   "api.example.test",
				AuthType: AuthTypeStatic,
				Timeout:  time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "unknown auth type",
			mutate:  func(c *Config) { c.Downstream.AuthType = "kerberos" },
			wantErr: "unsupported downstream.auth_type",
		},
		{
			name:    "oauth2 without token url",
			mutate:  func(c *Config) { c.Downstream.AuthType = AuthTypeOAuth2 },
			wantErr: "token_url is required",
		},
		{
			name: "no domain",
			mutate: func(c *Config) {
				c.Downstream.Domain = ""
			},
			wantErr: "downstream.domain is required",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Downstream.Timeout = 0 },
			wantErr: "must be positive",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDownstreamConfig(t *testing.T) {
	d := DownstreamConfig{Domain: "api.example.test", Token: "very-secret", AuthType: AuthTypeStatic, Timeout: time.Second}

	assert.Equal(t, "https://api.example.test/x", d.URL("/x"))
	assert.NotContains(t, d.String(), "very-secret")
	assert.True(t, d.HasCredential())

	d.BaseURL = "http://127.0.0.1:9999/"
	assert.Equal(t, "http://127.0.0.1:9999/x", d.URL("/x"))

	d.Token = ""
	assert.False(t, d.HasCredential())

	d.AuthType = AuthTypeNone
	assert.True(t, d.HasCredential())

	d.AuthType = AuthTypeOAuth2
	d.OAuth2 = OAuth2Config{TokenURL: "https://idp.test/token", ClientID: "id", ClientSecret: "s"}
	assert.True(t, d.HasCredential())
}
