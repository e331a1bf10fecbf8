package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/platinummonkey/taskforge/pkg/observability"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(envPrefix+tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     bool
	}{
		{name: "true", envValue: "true", want: true},
		{name: "TRUE", envValue: "TRUE", want: true},
		{name: "1", envValue: "1", want: true},
		{name: "false", envValue: "false", want: false},
		{name: "garbage", envValue: "yes please", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envPrefix+"BOOL", tt.envValue)
			if got := getEnvBool("BOOL", !tt.want); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvNumbers covers the int and duration helpers' fallbacks
func TestGetEnvNumbers(t *testing.T) {
	t.Setenv(envPrefix+"INT", "42")
	t.Setenv(envPrefix+"BAD_INT", "forty-two")
	t.Setenv(envPrefix+"DUR", "90s")
	t.Setenv(envPrefix+"BAD_DUR", "soon")

	if got := getEnvInt("INT", 1); got != 42 {
		t.Errorf("getEnvInt() = %v, want 42", got)
	}
	if got := getEnvInt("BAD_INT", 1); got != 1 {
		t.Errorf("getEnvInt() with invalid value = %v, want 1", got)
	}
	if got := getEnvDuration("DUR", time.Second); got != 90*time.Second {
		t.Errorf("getEnvDuration() = %v, want 90s", got)
	}
	if got := getEnvDuration("BAD_DUR", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() with invalid value = %v, want 1s", got)
	}
}

// TestGetEnvList tests comma separated values
func TestGetEnvList(t *testing.T) {
	t.Setenv(envPrefix+"LIST", " a@example.com, ,b@example.com ")
	got := getEnvList("LIST", nil)
	if strings.Join(got, "|") != "a@example.com|b@example.com" {
		t.Errorf("getEnvList() = %v", got)
	}
	if got := getEnvList("LIST_NOT_SET", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Errorf("getEnvList() default = %v", got)
	}
}

// TestParseLogLevel tests the parseLogLevel function
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  observability.LogLevel
	}{
		{level: "debug", want: observability.DebugLevel},
		{level: "DEBUG", want: observability.DebugLevel},
		{level: "info", want: observability.InfoLevel},
		{level: "warning", want: observability.WarnLevel},
		{level: "error", want: observability.ErrorLevel},
		{level: "invalid", want: observability.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := parseLogLevel(tt.level); got != tt.want {
				t.Errorf("parseLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestLoadConfigDefaults checks the documented defaults
func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(envPrefix+"JWT_SECRET", testSecret)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Port != "5000" || cfg.Server.HealthPort != "9090" {
		t.Errorf("ports = %s/%s", cfg.Server.Port, cfg.Server.HealthPort)
	}
	if cfg.Auth.AuthTimeout != 2*time.Second {
		t.Errorf("AuthTimeout = %v", cfg.Auth.AuthTimeout)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %v", cfg.Storage.Type)
	}
	if cfg.Limits.RateLimitRequests != 100 || cfg.Limits.AuthRateLimitRequests != 5 || cfg.Limits.BruteForceMaxFailures != 10 {
		t.Errorf("Limits = %+v", cfg.Limits)
	}
	if cfg.Limits.RateLimitWindow != 15*time.Minute {
		t.Errorf("RateLimitWindow = %v", cfg.Limits.RateLimitWindow)
	}
	if len(cfg.Auth.DemoEmails) != 1 || cfg.Auth.DemoEmails[0] != "admin@test.com" {
		t.Errorf("DemoEmails = %v", cfg.Auth.DemoEmails)
	}
	if cfg.Server.MaxBodyBytes != 10<<20 {
		t.Errorf("MaxBodyBytes = %v", cfg.Server.MaxBodyBytes)
	}
	if cfg.OIDC.Enabled() {
		t.Error("OIDC should be disabled by default")
	}
}

// TestLoadConfigEnvFile checks that .env values fill gaps but never
// override the real environment
func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "TASKFORGE_JWT_SECRET=" + testSecret + "\nTASKFORGE_PORT=7000\nTASKFORGE_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(envPrefix+"PORT", "6000")
	// godotenv sets variables directly; register them for cleanup
	t.Setenv(envPrefix+"JWT_SECRET", "")
	os.Unsetenv(envPrefix + "JWT_SECRET")
	t.Setenv(envPrefix+"LOG_LEVEL", "")
	os.Unsetenv(envPrefix + "LOG_LEVEL")

	cfg, err := LoadConfig(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Port != "6000" {
		t.Errorf("Port = %v, want the real environment value", cfg.Server.Port)
	}
	if cfg.Observability.LogLevel != observability.DebugLevel {
		t.Errorf("LogLevel = %v, want debug", cfg.Observability.LogLevel)
	}
}

// TestValidate tests configuration validation
func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: "5000", HealthPort: "9090"},
			Auth:    AuthConfig{JWTSecret: testSecret, AuthTimeout: time.Second},
			Limits:  LimitsConfig{RateLimitRequests: 1, AuthRateLimitRequests: 1, BruteForceMaxFailures: 1},
			Storage: loadStorageConfig(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "same ports", mutate: func(c *Config) { c.Server.HealthPort = "5000" }, wantErr: "must be different"},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "jwt secret"},
		{name: "short secret", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, wantErr: "jwt secret"},
		{name: "bad storage", mutate: func(c *Config) { c.Storage.Type = "filesystem" }, wantErr: "invalid storage type"},
		{name: "postgres without url", mutate: func(c *Config) { c.Storage.Type = "postgres" }, wantErr: "database URL"},
		{name: "session secret optional without oidc", mutate: func(c *Config) { c.Auth.SessionSecret = "" }},
		{
			name:    "partial oidc",
			mutate:  func(c *Config) { c.OIDC.ClientID = "id" },
			wantErr: "must be set together",
		},
		{
			name: "oidc without session secret",
			mutate: func(c *Config) {
				c.OIDC = OIDCConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/cb"}
			},
			wantErr: "session secret",
		},
		{
			name: "complete oidc",
			mutate: func(c *Config) {
				c.OIDC = OIDCConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/cb"}
				c.Auth.SessionSecret = testSecret
			},
		},
		{
			name:    "otel without endpoint",
			mutate:  func(c *Config) { c.Observability.OTelEnabled = true },
			wantErr: "endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
