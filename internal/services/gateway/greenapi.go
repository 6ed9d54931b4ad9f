package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/wa-ai-bot-go/internal/config"
)

// Delivery pushes composed replies back to the messaging gateway. Send
// failures are logged by callers, never retried.
type Delivery interface {
	Send(ctx context.Context, identifier, text string) error
}

// GreenAPI implements Delivery against the Green API WhatsApp gateway.
type GreenAPI struct {
	baseURL    string
	instance   string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// NewGreenAPI creates a gateway client from config. Outbound sends are
// throttled so a burst of replies cannot trip the gateway's own limits.
func NewGreenAPI(cfg *config.GatewayConfig, logger *logrus.Logger) *GreenAPI {
	return &GreenAPI{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		instance: cfg.Instance,
		token:    cfg.Token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.SendPerSec), cfg.SendBurst),
		logger:  logger,
	}
}

// BotIdentifier returns the bot's own chat identifier, used to skip echoes
// of its own messages.
func (g *GreenAPI) BotIdentifier() string {
	return g.instance + "@c.us"
}

// Send delivers a text message to an identifier.
func (g *GreenAPI) Send(ctx context.Context, identifier, text string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send throttle: %w", err)
	}

	url := fmt.Sprintf("%s/waInstance%s/sendMessage/%s", g.baseURL, g.instance, g.token)

	payload := map[string]string{
		"chatId":  identifier,
		"message": text,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal send payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		g.logger.WithFields(logrus.Fields{
			"identifier": identifier,
			"status":     resp.StatusCode,
			"body":       string(body),
		}).Error("Failed to send message")
		return fmt.Errorf("send failed with status %d", resp.StatusCode)
	}

	g.logger.WithField("identifier", identifier).Info("Message sent")
	return nil
}
