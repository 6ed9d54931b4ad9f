package storage

import (
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/wa-ai-bot-go/internal/models"
)

// Store holds all per-identifier conversational state. Everything lives in
// process memory only: state is lost on restart, which is the intended
// lifecycle, and entries are created lazily on first use.
type Store interface {
	// History returns the most recent limit entries for an identifier,
	// oldest first. limit <= 0 returns the full history.
	History(identifier string, limit int) []models.ConversationEntry
	// Append records one user/bot exchange, evicting the oldest entry
	// once the history exceeds its cap.
	Append(identifier, userText, botText string)
	// Stats returns the usage counters for an identifier, or nil if it
	// has never been recorded.
	Stats(identifier string) *models.UserStats
	// RecordUsage accumulates message and approximate token counts.
	RecordUsage(identifier, userText, botText string)
	// AllStats returns a snapshot of every identifier's counters.
	AllStats() []models.UserStats
}

const historyCap = 20

// MemoryStore implements Store on top of go-cache. go-cache only
// synchronizes single map operations, so a mutex guards the
// read-modify-write sequences on histories and stats.
type MemoryStore struct {
	histories *cache.Cache
	stats     *cache.Cache
	mu        sync.Mutex
	logger    *logrus.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *logrus.Logger) *MemoryStore {
	return &MemoryStore{
		histories: cache.New(cache.NoExpiration, cache.NoExpiration),
		stats:     cache.New(cache.NoExpiration, cache.NoExpiration),
		logger:    logger,
	}
}

func (s *MemoryStore) History(identifier string, limit int) []models.ConversationEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	val, found := s.histories.Get(identifier)
	if !found {
		return nil
	}

	history := val.([]models.ConversationEntry)
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	out := make([]models.ConversationEntry, len(history))
	copy(out, history)
	return out
}

func (s *MemoryStore) Append(identifier, userText, botText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []models.ConversationEntry
	if val, found := s.histories.Get(identifier); found {
		history = val.([]models.ConversationEntry)
	}

	history = append(history, models.ConversationEntry{
		Timestamp: time.Now(),
		UserText:  userText,
		BotText:   botText,
	})

	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}

	s.histories.Set(identifier, history, cache.NoExpiration)
}

func (s *MemoryStore) Stats(identifier string) *models.UserStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	val, found := s.stats.Get(identifier)
	if !found {
		return nil
	}

	stats := val.(models.UserStats)
	return &stats
}

func (s *MemoryStore) RecordUsage(identifier, userText, botText string) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var stats models.UserStats
	if val, found := s.stats.Get(identifier); found {
		stats = val.(models.UserStats)
	} else {
		stats = models.UserStats{Identifier: identifier, FirstSeen: now}
	}

	stats.LastSeen = now
	stats.MessageCount++
	stats.ApproxTokens += len(strings.Fields(userText)) + len(strings.Fields(botText))

	s.stats.Set(identifier, stats, cache.NoExpiration)
}

func (s *MemoryStore) AllStats() []models.UserStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.stats.Items()
	out := make([]models.UserStats, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(models.UserStats))
	}
	return out
}
