package handlers_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/wa-ai-bot-go/internal/composer"
	"github.com/wa-ai-bot-go/internal/config"
	"github.com/wa-ai-bot-go/internal/handlers"
	"github.com/wa-ai-bot-go/internal/i18n"
	"github.com/wa-ai-bot-go/internal/middleware"
	"github.com/wa-ai-bot-go/internal/models"
	"github.com/wa-ai-bot-go/internal/roles"
	"github.com/wa-ai-bot-go/internal/services/cache"
	"github.com/wa-ai-bot-go/internal/services/completion"
	"github.com/wa-ai-bot-go/internal/services/storage"
)

const (
	adminID  = "111@c.us"
	vipID    = "222@c.us"
	bannedID = "444@c.us"
	basicID  = "999@c.us"

	accessDeniedText = "❌ Akses Ditolak\n\nAnda tidak memiliki izin untuk menggunakan bot ini."
	rateLimitedText  = "Anda mengirim pesan terlalu cepat. Silakan tunggu sebentar."
)

// fakeProvider is a scripted completion provider.
type fakeProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	lastReq completion.Request
}

func (f *fakeProvider) Complete(ctx context.Context, req completion.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeDelivery records outbound sends.
type fakeDelivery struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

type sentMessage struct {
	Identifier string
	Text       string
}

func (f *fakeDelivery) Send(ctx context.Context, identifier, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{Identifier: identifier, Text: text})
	return nil
}

func (f *fakeDelivery) last(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "expected at least one delivered message")
	return f.sent[len(f.sent)-1]
}

func (f *fakeDelivery) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func writeI18nCatalogs(t *testing.T) config.I18nConfig {
	t.Helper()
	dir := t.TempDir()

	catalog := map[string]string{
		"access_denied":       accessDeniedText,
		"rate_limit_exceeded": rateLimitedText,
		"error":               "Maaf, saya sedang mengalami gangguan. Silakan coba lagi nanti.",
		"help":                "🤖 AsistenAI Bot help",
		"admin_help":          "🔰 ADMIN COMMANDS",
		"no_stats":            "Anda belum memiliki statistik penggunaan.",
		"user_stats":          "📈 Statistik: {{.Messages}} pesan, {{.Tokens}} token",
	}

	data, err := json.Marshal(catalog)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id.json"), data, 0644))

	return config.I18nConfig{
		DefaultLanguage: "id",
		Languages:       []string{"id"},
		Directory:       dir,
	}
}

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Roles: config.RolesConfig{
			SpecialUsers: map[string]string{
				adminID: "admin",
				vipID:   "vip",
			},
			BannedUsers: []string{bannedID},
			Profiles: map[string]models.RoleProfile{
				"admin": {Name: "Administrator", Model: "model-a", MaxTokens: 800, Temperature: 0.7, Priority: 1, ShowBadge: true},
				"vip":   {Name: "VIP", Model: "model-a", MaxTokens: 600, Temperature: 0.7, Priority: 2},
				"basic": {Name: "Basic User", Model: "model-b", MaxTokens: 250, Temperature: 0.6, Priority: 4},
			},
		},
		RateLimit: config.RateLimitConfig{Enabled: true, MaxPerMinute: 10},
		Context: config.ContextConfig{
			Strategy:            config.StrategyPersona,
			RollingWindow:       5,
			HistoryLimit:        20,
			DefaultSystemPrompt: "default prompt",
		},
		Fallback: config.FallbackConfig{Mode: config.FallbackKeyword},
		Cache:    config.CacheConfig{Enabled: false},
		I18n:     writeI18nCatalogs(t),
		Server:   config.ServerConfig{WebhookPath: "/webhook"},
	}
}

type testEnv struct {
	cfg      *config.Config
	handler  *handlers.MessageHandler
	router   *handlers.CommandRouter
	provider *fakeProvider
	delivery *fakeDelivery
	store    storage.Store
	resolver *roles.Resolver
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := baseConfig(t)
	if mutate != nil {
		mutate(cfg)
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	require.NoError(t, err)

	resolver := roles.NewResolver(&cfg.Roles, log)
	store := storage.NewMemoryStore(log)
	cacheService := cache.NewResponseCache(&cfg.Cache, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	metrics := middleware.NewMetrics()
	comp := composer.New(&cfg.Context, &cfg.Fallback, resolver, log)

	provider := &fakeProvider{reply: "jawaban AI"}
	delivery := &fakeDelivery{}

	router := handlers.NewCommandRouter(cfg, resolver, store, localizer, metrics, log)
	handler := handlers.NewMessageHandler(
		cfg, resolver, rateLimiter, store, cacheService, comp,
		provider, delivery, router, localizer, metrics, log,
	)

	return &testEnv{
		cfg:      cfg,
		handler:  handler,
		router:   router,
		provider: provider,
		delivery: delivery,
		store:    store,
		resolver: resolver,
	}
}
