package wire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chat-api/internal/config"
	"ai-chat-api/internal/infrastructure/persistence/memory"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{
		App:      config.AppConfig{Name: "ai-chat-api", Version: "test", Env: "test"},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		LLM: config.LLMConfig{
			DefaultProvider: "openai",
			Providers: map[string]config.ProviderConfig{
				"openai": {APIKey: "sk-test", BaseURL: "http://127.0.0.1:1", Model: "gpt-test", Timeout: time.Second},
			},
		},
		Conversation: config.ConversationConfig{HistoryWindow: 20, HoldTransactionDuringLLM: true},
	}
	return cfg
}

func TestProvideStore(t *testing.T) {
	ctx := context.Background()

	store, cleanup, err := ProvideStore(ctx, memoryConfig())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &memory.Store{}, store)

	cfg := memoryConfig()
	cfg.Database.Driver = "sqlite"
	_, _, err = ProvideStore(ctx, cfg)
	assert.Error(t, err)
}

func TestProvideRedisClientOptional(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()

	client, cleanup, err := ProvideRedisClientOptional(ctx, cfg)
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, client, "disabled")
	assert.Nil(t, ProvideConversationCache(client, cfg))
	assert.Nil(t, ProvideMessagingProducer(client, cfg))

	cfg.Cache.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, DialTimeout: 50 * time.Millisecond}
	client, cleanup, err = ProvideRedisClientOptional(ctx, cfg)
	require.NoError(t, err, "unreachable redis does not block startup")
	cleanup()
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.Cache.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port}
	client, cleanup, err = ProvideRedisClientOptional(ctx, cfg)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, client)
	assert.NotNil(t, ProvideConversationCache(client, cfg))
	assert.Nil(t, ProvideMessagingProducer(client, cfg), "stream disabled")

	cfg.Messaging.RedisStream.Enabled = true
	producer := ProvideMessagingProducer(client, cfg)
	require.NotNil(t, producer)
	assert.NotEmpty(t, producer.Stream())
}

func TestInitializeApp_MemoryDriver(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r, cleanup, err := InitializeApp(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer cleanup()

	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/conversations", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":{"status":"disabled"}`)
}
