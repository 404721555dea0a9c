package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("CHAT_TEST_HOST", "db.internal")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "host: ${CHAT_TEST_HOST}", "host: db.internal"},
		{"set variable ignores default", "host: ${CHAT_TEST_HOST:localhost}", "host: db.internal"},
		{"default used", "port: ${CHAT_TEST_UNSET_PORT:5432}", "port: 5432"},
		{"empty default", "password: ${CHAT_TEST_UNSET_PW:}", "password: "},
		{"undefined kept", "key: ${CHAT_TEST_UNDEFINED}", "key: ${CHAT_TEST_UNDEFINED}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.in))
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadFromDir_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFromDir(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "ai-chat-api", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.HTTP.ShutdownTimeout)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Database.Retry.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Database.Retry.InitialInterval)
	assert.Equal(t, 20, cfg.Conversation.HistoryWindow)
	assert.True(t, cfg.Conversation.HoldTransactionDuringLLM)
	assert.Equal(t, 10*time.Minute, cfg.Cache.ConversationTTL)
	assert.False(t, cfg.Cache.Redis.Enabled)
}

func TestLoadFromDir_FileAndEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("CHAT_TEST_API_KEY", "sk-test")

	writeFile(t, dir, "config.yaml", `
database:
  driver: memory
llm:
  default_provider: openai
  providers:
    openai:
      api_key: ${CHAT_TEST_API_KEY}
      model: gpt-4o-mini
      timeout: 15s
conversation:
  history_window: 8
`)
	writeFile(t, dir, "config.staging.yaml", `
server:
  http:
    port: 9090
`)

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 9090, cfg.Server.HTTP.Port)
	assert.Equal(t, 8, cfg.Conversation.HistoryWindow)

	p, ok := cfg.DefaultProviderConfig()
	require.True(t, ok)
	assert.Equal(t, "sk-test", p.APIKey)
	assert.Equal(t, 15*time.Second, p.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromDir_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	writeFile(t, dir, "config.yaml", "server: [unclosed")

	_, err := LoadFromDir(dir)
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{HTTP: HTTPServerConfig{ShutdownTimeout: 30 * time.Second}},
		Database: DatabaseConfig{Driver: DriverMemory},
		LLM: LLMConfig{
			DefaultProvider: "openai",
			Providers: map[string]ProviderConfig{
				"openai": {APIKey: "sk", Model: "gpt-4o-mini"},
			},
		},
		Conversation: ConversationConfig{HistoryWindow: 20},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing provider", func(c *Config) { c.LLM.DefaultProvider = "azure" }, "llm.providers.azure is not configured"},
		{"missing api key", func(c *Config) {
			c.LLM.Providers["openai"] = ProviderConfig{Model: "m"}
		}, "api_key is required"},
		{"missing model", func(c *Config) {
			c.LLM.Providers["openai"] = ProviderConfig{APIKey: "k"}
		}, "model is required"},
		{"postgres without host", func(c *Config) { c.Database.Driver = DriverPostgres }, "dsn or host is required"},
		{"postgres with dsn", func(c *Config) {
			c.Database.Driver = DriverPostgres
			c.Database.Postgres.DSN = "postgres://localhost/ai_chat"
		}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "unsupported driver"},
		{"zero shutdown timeout", func(c *Config) { c.Server.HTTP.ShutdownTimeout = 0 }, "shutdown_timeout must be positive"},
		{"stream without redis", func(c *Config) { c.Messaging.RedisStream.Enabled = true }, "requires cache.redis.enabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
