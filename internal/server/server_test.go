package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kamaqiyasov/vkinder/internal/app"
	"github.com/kamaqiyasov/vkinder/internal/cache"
	"github.com/kamaqiyasov/vkinder/internal/config"
	"github.com/kamaqiyasov/vkinder/internal/db"
	"github.com/kamaqiyasov/vkinder/internal/repository"
)

func setupServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(&db.User{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = "0"

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(database, cache.NewRedisCache(cfg), log)

	s := New(cfg, appCtx)
	srv := httptest.NewServer(s.http.Handler)
	t.Cleanup(srv.Close)
	return srv, database
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCallback_StoresToken(t *testing.T) {
	srv, database := setupServer(t)

	resp, err := http.Get(srv.URL + "/vk/callback?access_token=tok-abc&user_id=100001")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token, err := repository.NewUserRepository(database).GetToken(context.Background(), 100001)
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
}

func TestCallback_RejectsBadParams(t *testing.T) {
	srv, _ := setupServer(t)

	for _, path := range []string{
		"/vk/callback",
		"/vk/callback?access_token=tok",
		"/vk/callback?access_token=tok&user_id=abc",
		"/vk/callback?access_token=tok&user_id=-5",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestTokenStatus(t *testing.T) {
	srv, database := setupServer(t)
	users := repository.NewUserRepository(database)
	require.NoError(t, users.SetToken(context.Background(), 100002, "tok"))

	var body struct {
		UserID   int64 `json:"user_id"`
		HasToken bool  `json:"has_token"`
	}

	resp, err := http.Get(srv.URL + "/token/100002")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.True(t, body.HasToken)

	// unknown user reports no token rather than an error
	resp, err = http.Get(srv.URL + "/token/999999")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.False(t, body.HasToken)
}
