package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ENV", "LOG_LEVEL", "STORE_BACKEND", "DATA_PATH", "CURSOR_SECRET",
	"GLOBAL_SKILL_CACHE_TTL", "BATTLE_MAX_RETRIES",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		os.Unsetenv(k) //nolint:errcheck // Test setup
	}
}

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Store: StoreConfig{
			Backend:             BackendBadger,
			DataPath:            "/some/path",
			CursorSecret:        "secret",
			GlobalSkillCacheTTL: time.Minute,
		},
		Battle: BattleConfig{MaxRetries: 5},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.Logger.Level = "trace" }, "invalid log level"},
		{"backend", func(c *Config) { c.Store.Backend = "redis" }, "invalid store backend"},
		{"data path", func(c *Config) { c.Store.DataPath = "" }, "data path"},
		{"cursor secret", func(c *Config) { c.Store.CursorSecret = "" }, "CURSOR_SECRET"},
		{"cache ttl", func(c *Config) { c.Store.GlobalSkillCacheTTL = 0 }, "cache ttl"},
		{"retries", func(c *Config) { c.Battle.MaxRetries = 0 }, "max retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "DEBUG"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, BackendBadger, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(homeDir, "TsundokuDragon", "data"), cfg.Store.DataPath)
	assert.Equal(t, devCursorSecret, cfg.Store.CursorSecret)
	assert.Equal(t, 5*time.Minute, cfg.Store.GlobalSkillCacheTTL)
	assert.Equal(t, 5, cfg.Battle.MaxRetries)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("DATA_PATH", dataDir)
	t.Setenv("CURSOR_SECRET", "from-env")
	t.Setenv("GLOBAL_SKILL_CACHE_TTL", "30s")
	t.Setenv("BATTLE_MAX_RETRIES", "9")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, dataDir, cfg.Store.DataPath)
	assert.Equal(t, "from-env", cfg.Store.CursorSecret)
	assert.Equal(t, 30*time.Second, cfg.Store.GlobalSkillCacheTTL)
	assert.Equal(t, 9, cfg.Battle.MaxRetries)
	assert.Equal(t, filepath.Join(dataDir, "tsundoku.sqlite"), cfg.StorePath())
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	envFile := filepath.Join(tmpDir, ".env")
	content := "# local settings\nLOG_LEVEL=debug\nSTORE_BACKEND=bbolt\nBATTLE_MAX_RETRIES=3\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// The environment beats the .env file, flags beat both.
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(LoadOptions{
		EnvFile: envFile,
		Flags:   Overrides{LogLevel: "error", DataPath: tmpDir},
	})
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logger.Level)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Battle.MaxRetries)
	assert.Equal(t, tmpDir, cfg.Store.DataPath)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	clearEnv(t)

	_, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	assert.NoError(t, err)
}

func TestLoad_ProductionRequiresCursorSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("DATA_PATH", t.TempDir())

	_, err := Load(LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CURSOR_SECRET")
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("GLOBAL_SKILL_CACHE_TTL", "soon")

	_, err := Load(LoadOptions{})
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"empty uses default", "", "/default"},
		{"tilde", "~/books", filepath.Join(homeDir, "books")},
		{"absolute", "/var/lib/tsundoku/", "/var/lib/tsundoku"},
		{"relative", "data", filepath.Join(cwd, "data")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandPath(tt.path, "/default")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStorePath(t *testing.T) {
	cfg := validConfig()

	cfg.Store.Backend = BackendBadger
	assert.Equal(t, "/some/path/badger", cfg.StorePath())

	cfg.Store.Backend = BackendBBolt
	assert.Equal(t, "/some/path/tsundoku.bolt", cfg.StorePath())
}
