package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wa-ai-bot-go/internal/composer"
	"github.com/wa-ai-bot-go/internal/config"
	"github.com/wa-ai-bot-go/internal/i18n"
	"github.com/wa-ai-bot-go/internal/middleware"
	"github.com/wa-ai-bot-go/internal/models"
	"github.com/wa-ai-bot-go/internal/roles"
	"github.com/wa-ai-bot-go/internal/services/cache"
	"github.com/wa-ai-bot-go/internal/services/completion"
	"github.com/wa-ai-bot-go/internal/services/gateway"
	"github.com/wa-ai-bot-go/internal/services/storage"
	"github.com/wa-ai-bot-go/pkg/markdown"
)

// Statuses reported for a handled message.
const (
	StatusBanned      = "banned"
	StatusCommand     = "command"
	StatusRateLimited = "rate_limited"
	StatusSuccess     = "success"
	StatusFallback    = "fallback"
	StatusSendFailed  = "send_failed"
)

const maxMessageLength = 4096

// MessageHandler runs the full pipeline for one inbound text message.
type MessageHandler struct {
	config      *config.Config
	resolver    *roles.Resolver
	rateLimiter middleware.RateLimiter
	store       storage.Store
	cache       cache.Service
	composer    *composer.Composer
	provider    completion.Provider
	delivery    gateway.Delivery
	router      *CommandRouter
	localizer   *i18n.Localizer
	metrics     *middleware.Metrics
	logger      *logrus.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(
	cfg *config.Config,
	resolver *roles.Resolver,
	rateLimiter middleware.RateLimiter,
	store storage.Store,
	cacheService cache.Service,
	comp *composer.Composer,
	provider completion.Provider,
	delivery gateway.Delivery,
	router *CommandRouter,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *MessageHandler {
	return &MessageHandler{
		config:      cfg,
		resolver:    resolver,
		rateLimiter: rateLimiter,
		store:       store,
		cache:       cacheService,
		composer:    comp,
		provider:    provider,
		delivery:    delivery,
		router:      router,
		localizer:   localizer,
		metrics:     metrics,
		logger:      logger,
	}
}

// Handle resolves the sender's role and runs the message through commands,
// admission control, context assembly, the completion call and delivery.
// The returned status describes the path taken; only delivery problems
// surface as an error.
func (h *MessageHandler) Handle(ctx context.Context, identifier, text string) (string, error) {
	role := h.resolver.Resolve(identifier)
	profile := h.resolver.Profile(role)

	h.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"role":       role,
	}).Info("Processing message")

	// Banned identifiers get the fixed rejection and touch no state.
	if role == models.RoleBanned {
		h.metrics.RecordMessageProcessed(StatusBanned, string(role))
		err := h.deliver(ctx, identifier, h.localizer.Default(i18n.MsgAccessDenied, nil))
		return StatusBanned, err
	}

	if len(text) > maxMessageLength {
		h.logger.WithField("identifier", identifier).Warn("Message too long, truncating")
		text = text[:maxMessageLength]
	}

	if reply, matched := h.router.Route(identifier, text); matched {
		h.metrics.RecordMessageProcessed(StatusCommand, string(role))
		err := h.deliver(ctx, identifier, reply)
		return StatusCommand, err
	}

	if !h.rateLimiter.Admit(identifier, time.Now()) {
		h.metrics.RecordRateLimitDenial()
		h.metrics.RecordMessageProcessed(StatusRateLimited, string(role))
		err := h.deliver(ctx, identifier, h.localizer.Default(i18n.MsgRateLimitExceeded, nil))
		return StatusRateLimited, err
	}

	if answer, found := h.cache.Get(text, profile.Model, role); found {
		h.metrics.RecordCacheHit()
		h.metrics.RecordMessageProcessed(StatusSuccess, string(role))
		h.store.RecordUsage(identifier, text, answer)
		err := h.deliver(ctx, identifier, answer)
		return StatusSuccess, err
	}
	h.metrics.RecordCacheMiss()

	history := h.store.History(identifier, h.config.Context.RollingWindow)
	req := h.composer.Compose(role, profile, text, history)

	start := time.Now()
	raw, err := h.provider.Complete(ctx, req)
	if err != nil {
		h.metrics.RecordCompletionRequest(profile.Model, "error", time.Since(start))
		h.metrics.RecordFallbackServed(h.composer.Mode())
		h.metrics.RecordMessageProcessed(StatusFallback, string(role))
		h.logger.WithError(err).WithFields(logrus.Fields{
			"identifier": identifier,
			"model":      profile.Model,
		}).Error("Completion failed, serving fallback")

		fallback := h.composer.Fallback(text, role, profile)
		if sendErr := h.deliver(ctx, identifier, fallback); sendErr != nil {
			return StatusSendFailed, sendErr
		}
		return StatusFallback, nil
	}
	h.metrics.RecordCompletionRequest(profile.Model, "success", time.Since(start))

	reply := h.composer.Decorate(markdown.ToWhatsApp(raw), role, profile)

	h.store.Append(identifier, text, raw)
	h.store.RecordUsage(identifier, text, raw)
	h.metrics.SetActiveUsers(float64(len(h.store.AllStats())))

	if err := h.cache.Set(text, profile.Model, role, reply); err != nil {
		h.logger.WithError(err).Warn("Failed to cache response")
	}

	if err := h.deliver(ctx, identifier, reply); err != nil {
		return StatusSendFailed, err
	}

	h.metrics.RecordMessageProcessed(StatusSuccess, string(role))
	return StatusSuccess, nil
}

// deliver pushes a reply through the gateway. Failures are logged and
// counted, never retried.
func (h *MessageHandler) deliver(ctx context.Context, identifier, text string) error {
	if err := h.delivery.Send(ctx, identifier, text); err != nil {
		h.metrics.RecordDeliveryFailure()
		h.logger.WithError(err).WithField("identifier", identifier).Error("Failed to deliver reply")
		return fmt.Errorf("deliver reply: %w", err)
	}
	return nil
}
