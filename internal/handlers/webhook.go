package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/wa-ai-bot-go/internal/config"
	"github.com/wa-ai-bot-go/internal/middleware"
	"github.com/wa-ai-bot-go/internal/models"
)

// WebhookHandler accepts Green API webhook calls, normalizes them and hands
// text messages to the message pipeline. Everything that is not an incoming
// plain-text message is acknowledged and ignored with a reason.
type WebhookHandler struct {
	config        *config.Config
	messages      *MessageHandler
	botIdentifier string
	metrics       *middleware.Metrics
	logger        *logrus.Logger
}

// NewWebhookHandler creates a webhook handler. botIdentifier is the bot's
// own chat id, used to skip echoes of its own messages.
func NewWebhookHandler(
	cfg *config.Config,
	messages *MessageHandler,
	botIdentifier string,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		config:        cfg,
		messages:      messages,
		botIdentifier: botIdentifier,
		metrics:       metrics,
		logger:        logger,
	}
}

// Register mounts the webhook and status routes.
func (h *WebhookHandler) Register(router *mux.Router) {
	router.HandleFunc(h.config.Server.WebhookPath, h.handleWebhook).Methods(http.MethodPost)
	router.HandleFunc("/", h.handleHome).Methods(http.MethodGet)
	router.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
}

func (h *WebhookHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var event models.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.logger.WithError(err).Warn("Malformed webhook payload")
		h.metrics.RecordWebhookIgnored("malformed payload")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "malformed payload"})
		return
	}

	h.metrics.RecordWebhookReceived(event.TypeWebhook)

	if reason := h.ignoreReason(&event); reason != "" {
		h.metrics.RecordWebhookIgnored(reason)
		h.logger.WithField("reason", reason).Debug("Webhook ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": reason})
		return
	}

	identifier := event.SenderData.ChatID
	text := event.MessageData.TextMessageData.TextMessage

	h.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"sender":     event.SenderData.SenderName,
	}).Info("Incoming message")

	// Process off the webhook goroutine; the gateway only needs an ack.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		status, err := h.messages.Handle(ctx, identifier, text)
		if err != nil {
			h.logger.WithError(err).WithField("status", status).Error("Message handling ended with error")
		}
	}()

	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// ignoreReason returns a non-empty reason when the event must not reach the
// pipeline.
func (h *WebhookHandler) ignoreReason(event *models.WebhookEvent) string {
	if event.TypeWebhook != "incomingMessageReceived" {
		return "not an incoming message"
	}
	if event.MessageData.TypeMessage != "textMessage" {
		return "not a text message"
	}
	if event.SenderData.ChatID == "" {
		return "missing sender"
	}
	if strings.TrimSpace(event.MessageData.TextMessageData.TextMessage) == "" {
		return "empty message"
	}
	if event.SenderData.Sender == h.botIdentifier {
		return "bot message"
	}
	return ""
}

func (h *WebhookHandler) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "WhatsApp AI bot is running",
		"webhook_path":  h.config.Server.WebhookPath,
		"special_users": len(h.config.Roles.SpecialUsers),
		"banned_users":  len(h.config.Roles.BannedUsers),
	})
}

func (h *WebhookHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	rolesList := make([]string, 0, len(h.config.Roles.Profiles))
	for name := range h.config.Roles.Profiles {
		rolesList = append(rolesList, name)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "healthy",
		"storage":          "memory",
		"roles":            rolesList,
		"special_users":    len(h.config.Roles.SpecialUsers),
		"banned_users":     len(h.config.Roles.BannedUsers),
		"context_strategy": h.config.Context.Strategy,
		"fallback_mode":    h.config.Fallback.Mode,
		"gateway_configured": h.config.Gateway.Instance != "" &&
			h.config.Gateway.Token != "",
		"completion_configured": h.config.Completion.APIKey != "",
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
