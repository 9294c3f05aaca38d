package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kamaqiyasov/vkinder/internal/session"
)

func TestStore_PutReplacesExisting(t *testing.T) {
	store := session.NewStore()

	store.Put(&session.Session{UserID: 1, CreatedAt: time.Now()})
	store.Put(&session.Session{UserID: 1, Cursor: 3, CreatedAt: time.Now()})

	sess, ok := store.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 3, sess.Cursor, "second Put replaced the first session")
}

func TestStore_Sweep(t *testing.T) {
	store := session.NewStore()

	store.Put(&session.Session{UserID: 1, CreatedAt: time.Now().Add(-2 * time.Hour)})
	store.Put(&session.Session{UserID: 2, CreatedAt: time.Now()})

	removed := store.Sweep(time.Hour)

	assert.Equal(t, 1, removed)
	assert.False(t, store.Active(1), "stale session swept")
	assert.True(t, store.Active(2), "fresh session kept")
}

func TestStore_SweepAgeNotRefreshedByActivity(t *testing.T) {
	store := session.NewStore()
	store.Put(&session.Session{UserID: 1, CreatedAt: time.Now().Add(-2 * time.Hour)})

	// reads do not keep a session alive
	_, _ = store.Get(1)
	removed := store.Sweep(time.Hour)

	assert.Equal(t, 1, removed)
}
