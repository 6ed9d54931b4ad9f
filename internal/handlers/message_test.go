package handlers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wa-ai-bot-go/internal/config"
	"github.com/wa-ai-bot-go/internal/handlers"
)

func TestHandleBannedUserGetsFixedRejection(t *testing.T) {
	env := newTestEnv(t, nil)

	status, err := env.handler.Handle(context.Background(), bannedID, "halo")
	require.NoError(t, err)
	assert.Equal(t, handlers.StatusBanned, status)

	assert.Equal(t, accessDeniedText, env.delivery.last(t).Text)
	assert.Equal(t, 0, env.provider.callCount(), "banned users must never reach the provider")
	assert.Empty(t, env.store.History(bannedID, 20))
	assert.Nil(t, env.store.Stats(bannedID))
}

func TestHandleSuccessDeliversAndRecords(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.reply = "jawaban AI"

	status, err := env.handler.Handle(context.Background(), basicID, "apa itu Go?")
	require.NoError(t, err)
	assert.Equal(t, handlers.StatusSuccess, status)

	sent := env.delivery.last(t)
	assert.Equal(t, basicID, sent.Identifier)
	assert.Equal(t, "jawaban AI", sent.Text)
	assert.NotContains(t, sent.Text, "🔰", "basic users never see a badge")

	history := env.store.History(basicID, 20)
	require.Len(t, history, 1)
	assert.Equal(t, "apa itu Go?", history[0].UserText)
	assert.Equal(t, "jawaban AI", history[0].BotText)

	stats := env.store.Stats(basicID)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.MessageCount)
}

func TestHandleSuccessPersonaRequestShape(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.Append(basicID, "sebelumnya", "jawaban lama")

	_, err := env.handler.Handle(context.Background(), basicID, "pertanyaan baru")
	require.NoError(t, err)

	req := env.provider.lastReq
	assert.Equal(t, "model-b", req.Model)
	assert.Equal(t, 250, req.MaxTokens)
	require.Len(t, req.Messages, 2, "persona strategy sends system prompt and current message only")
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "pertanyaan baru", req.Messages[1].Content)
}

func TestHandleRollingStrategyIncludesHistory(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Context.Strategy = config.StrategyRolling
	})
	env.store.Append(basicID, "q1", "a1")
	env.store.Append(basicID, "q2", "a2")

	_, err := env.handler.Handle(context.Background(), basicID, "q3")
	require.NoError(t, err)

	req := env.provider.lastReq
	require.Len(t, req.Messages, 6)
	assert.Equal(t, "default prompt", req.Messages[0].Content)
	assert.Equal(t, "q1", req.Messages[1].Content)
	assert.Equal(t, "a2", req.Messages[4].Content)
	assert.Equal(t, "q3", req.Messages[5].Content)
}

func TestHandleAdminReplyCarriesBadge(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.reply = "laporan sistem"

	status, err := env.handler.Handle(context.Background(), adminID, "bagaimana kondisi server?")
	require.NoError(t, err)
	assert.Equal(t, handlers.StatusSuccess, status)
	assert.Equal(t, "🔰 ADMIN\n\nlaporan sistem", env.delivery.last(t).Text)

	// History keeps the raw model output, not the decorated reply.
	history := env.store.History(adminID, 20)
	require.Len(t, history, 1)
	assert.Equal(t, "laporan sistem", history[0].BotText)
}

func TestHandleMarkdownConvertedForDelivery(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.reply = "Ini **penting** sekali"

	_, err := env.handler.Handle(context.Background(), basicID, "jelaskan")
	require.NoError(t, err)
	assert.Contains(t, env.delivery.last(t).Text, "*penting*")
	assert.NotContains(t, env.delivery.last(t).Text, "**")
}

func TestHandleProviderFailureServesKeywordFallback(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.err = errors.New("completion request failed: status 500")

	status, err := env.handler.Handle(context.Background(), basicID, "halo")
	require.NoError(t, err)
	assert.Equal(t, handlers.StatusFallback, status)

	sent := env.delivery.last(t)
	assert.Contains(t, sent.Text, "👋 Halo!")
	assert.NotContains(t, sent.Text, "🔰")

	// Failed exchanges are not recorded.
	assert.Empty(t, env.store.History(basicID, 20))
	assert.Nil(t, env.store.Stats(basicID))
}

func TestHandleProviderFailureStaticMode(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Fallback.Mode = config.FallbackStatic
	})
	env.provider.err = errors.New("completion request failed: status 503")

	status, err := env.handler.Handle(context.Background(), basicID, "apa kabar dunia")
	require.NoError(t, err)
	assert.Equal(t, handlers.StatusFallback, status)
	assert.Contains(t, env.delivery.last(t).Text, "sedang mengalami gangguan")
}

func TestHandleRateLimitDeniesOverLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.RateLimit.MaxPerMinute = 2
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		status, err := env.handler.Handle(ctx, basicID, "pertanyaan")
		require.NoError(t, err)
		assert.Equal(t, handlers.StatusSuccess, status)
	}

	status, err := env.handler.Handle(ctx, basicID, "pertanyaan")
	require.NoError(t, err)
	assert.Equal(t, handlers.StatusRateLimited, status)
	assert.Equal(t, rateLimitedText, env.delivery.last(t).Text)
	assert.Equal(t, 2, env.provider.callCount())
}

func TestHandleCommandsBypassRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.RateLimit.MaxPerMinute = 1
	})

	ctx := context.Background()
	_, err := env.handler.Handle(ctx, basicID, "pertanyaan")
	require.NoError(t, err)

	status, err := env.handler.Handle(ctx, basicID, "/help")
	require.NoError(t, err)
	assert.Equal(t, handlers.StatusCommand, status)
	assert.Contains(t, env.delivery.last(t).Text, "AsistenAI Bot help")
}

func TestHandleDeliveryFailureReported(t *testing.T) {
	env := newTestEnv(t, nil)
	env.delivery.err = errors.New("gateway send failed: status 502")

	status, err := env.handler.Handle(context.Background(), basicID, "pertanyaan")
	require.Error(t, err)
	assert.Equal(t, handlers.StatusSendFailed, status)
}
