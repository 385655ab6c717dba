package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvasily/squadvoice/pkg/logger"
)

func newTestStorage(t *testing.T) *UtteranceStorage {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewUtteranceStorage(db, logger.Nop())
	require.NoError(t, err)
	return s
}

func record(channel string, at time.Time) *UtteranceRecord {
	return &UtteranceRecord{
		Channel:    channel,
		SourceLang: "ru",
		TargetLang: "en",
		SourceText: "Я прыгаю на них",
		RawText:    "I'm jumping them",
		FixedText:  "I'm pushing them",
		Corrected:  true,
		CreatedAt:  at,
	}
}

func TestStoreAndGetRecent(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		id, err := s.Store(record("game", base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		assert.Greater(t, id, int64(0))
	}

	records, err := s.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.True(t, records[0].CreatedAt.After(records[1].CreatedAt))
	assert.Equal(t, "I'm pushing them", records[0].FixedText)
	assert.True(t, records[0].Corrected)
}

func TestGetByChannel(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	_, err := s.Store(record("game", base))
	require.NoError(t, err)
	_, err = s.Store(record("mic", base.Add(time.Minute)))
	require.NoError(t, err)

	records, err := s.GetByChannel("game", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "game", records[0].Channel)
}

func TestGetByTimeRange(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := s.Store(record("game", base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	records, err := s.GetByTimeRange(base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestGetRecentEmpty(t *testing.T) {
	s := newTestStorage(t)
	records, err := s.GetRecent(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
