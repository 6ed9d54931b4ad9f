package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *MemoryStore {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewMemoryStore(log)
}

func TestHistoryEmptyForUnknownIdentifier(t *testing.T) {
	s := newTestStore()

	assert.Empty(t, s.History("nobody", 10))
}

func TestAppendCapsAtTwenty(t *testing.T) {
	s := newTestStore()

	for i := 1; i <= 25; i++ {
		s.Append("user", fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}

	history := s.History("user", 0)
	require.Len(t, history, 20)

	// Oldest entries evicted first; order preserved.
	assert.Equal(t, "question 6", history[0].UserText)
	assert.Equal(t, "question 25", history[19].UserText)
	assert.Equal(t, "answer 25", history[19].BotText)
}

func TestHistoryLimitReturnsMostRecent(t *testing.T) {
	s := newTestStore()

	for i := 1; i <= 10; i++ {
		s.Append("user", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	window := s.History("user", 5)
	require.Len(t, window, 5)
	assert.Equal(t, "q6", window[0].UserText)
	assert.Equal(t, "q10", window[4].UserText)
}

func TestStatsNilBeforeFirstUsage(t *testing.T) {
	s := newTestStore()

	assert.Nil(t, s.Stats("user"))
}

func TestRecordUsageAccumulates(t *testing.T) {
	s := newTestStore()

	s.RecordUsage("user", "two words", "three more words")
	s.RecordUsage("user", "one", "two three")

	stats := s.Stats("user")
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.MessageCount)
	assert.Equal(t, 8, stats.ApproxTokens)
	assert.False(t, stats.FirstSeen.IsZero())
	assert.False(t, stats.LastSeen.Before(stats.FirstSeen))
}

func TestAllStatsSnapshot(t *testing.T) {
	s := newTestStore()

	s.RecordUsage("a", "hi", "hello")
	s.RecordUsage("b", "hi", "hello")

	all := s.AllStats()
	assert.Len(t, all, 2)
}

func TestConcurrentAppendsStayBounded(t *testing.T) {
	s := newTestStore()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Append("user", fmt.Sprintf("q-%d-%d", g, i), "a")
				s.RecordUsage("user", "q", "a")
			}
		}(g)
	}
	wg.Wait()

	assert.Len(t, s.History("user", 0), 20)
	assert.Equal(t, 400, s.Stats("user").MessageCount)
}
