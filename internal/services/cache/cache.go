package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/wa-ai-bot-go/internal/config"
	"github.com/wa-ai-bot-go/internal/models"
)

// Service caches completion answers. Keys include the role because replies
// vary per role (badges, personas); a cached admin answer must never be
// served to a basic user.
type Service interface {
	Get(question, model string, role models.UserRole) (string, bool)
	Set(question, model string, role models.UserRole, answer string) error
	Clear() error
}

// ResponseCache implements Service on go-cache.
type ResponseCache struct {
	enabled bool
	cache   *cache.Cache
	logger  *logrus.Logger
	maxSize int
}

// NewResponseCache creates a response cache from config.
func NewResponseCache(cfg *config.CacheConfig, logger *logrus.Logger) Service {
	if !cfg.Enabled {
		return &ResponseCache{enabled: false}
	}

	return &ResponseCache{
		enabled: true,
		cache:   cache.New(cfg.TTL, cfg.TTL*2),
		logger:  logger,
		maxSize: cfg.MaxSize,
	}
}

// Get retrieves a cached answer.
func (c *ResponseCache) Get(question, model string, role models.UserRole) (string, bool) {
	if !c.enabled {
		return "", false
	}

	key := c.generateKey(question, model, role)
	if val, found := c.cache.Get(key); found {
		entry := val.(*models.CacheEntry)
		c.logger.WithFields(logrus.Fields{
			"model": model,
			"role":  role,
			"age":   time.Since(entry.CreatedAt),
		}).Debug("Cache hit")
		return entry.Answer, true
	}

	return "", false
}

// Set stores an answer in the cache.
func (c *ResponseCache) Set(question, model string, role models.UserRole, answer string) error {
	if !c.enabled {
		return nil
	}

	if c.cache.ItemCount() >= c.maxSize {
		c.logger.Warn("Cache size limit reached, clearing expired entries")
		c.cache.DeleteExpired()
	}

	key := c.generateKey(question, model, role)
	entry := &models.CacheEntry{
		Question:  question,
		Answer:    answer,
		Model:     model,
		Role:      role,
		CreatedAt: time.Now(),
	}

	c.cache.SetDefault(key, entry)
	return nil
}

// Clear removes all cached entries.
func (c *ResponseCache) Clear() error {
	if !c.enabled {
		return nil
	}

	c.cache.Flush()
	c.logger.Info("Response cache cleared")
	return nil
}

func (c *ResponseCache) generateKey(question, model string, role models.UserRole) string {
	data := fmt.Sprintf("%s:%s:%s", role, model, question)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
