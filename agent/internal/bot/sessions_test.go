package bot

import (
	"testing"
	"time"

	"moonbags-buybot/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.Config{Level: "error"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestSessionStoreEvictsIdleSessions(t *testing.T) {
	store := NewSessionStore(30*time.Minute, newTestLogger(t))

	stale := store.GetOrCreate(1)
	stale.UpdatedAt = time.Now().Add(-time.Hour)
	store.GetOrCreate(2)

	evicted := store.EvictIdle(time.Now())

	assert.Equal(t, 1, evicted)
	assert.Nil(t, store.Get(1), "stale session must be gone")
	assert.NotNil(t, store.Get(2), "fresh session must survive")
}

func TestSessionStoreGetRefreshesActivity(t *testing.T) {
	store := NewSessionStore(30*time.Minute, newTestLogger(t))

	sess := store.GetOrCreate(1)
	sess.UpdatedAt = time.Now().Add(-29 * time.Minute)

	// Any interaction counts as activity and resets the idle clock.
	require.NotNil(t, store.Get(1))
	assert.Zero(t, store.EvictIdle(time.Now().Add(time.Minute)))
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore(time.Minute, newTestLogger(t))
	store.GetOrCreate(1)
	store.Delete(1)
	assert.Nil(t, store.Get(1))
}
