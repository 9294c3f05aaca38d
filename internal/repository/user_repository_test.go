package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamaqiyasov/vkinder/internal/db"
	"github.com/kamaqiyasov/vkinder/internal/repository"
)

func TestUserUpsert(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupTestDB(t))

	require.NoError(t, repo.Upsert(ctx, &db.User{
		VKID: 100, FirstName: "Ann", Age: 29, Sex: 1, City: "Springfield",
	}))

	// same external id updates in place
	require.NoError(t, repo.Upsert(ctx, &db.User{
		VKID: 100, FirstName: "Ann", Age: 30, Sex: 1, City: "Shelbyville",
	}))

	user, err := repo.GetByVKID(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, 30, user.Age)
	assert.Equal(t, "Shelbyville", user.City)
	assert.True(t, user.ProfileComplete())
}

func TestGetByVKID_AbsentIsNil(t *testing.T) {
	repo := repository.NewUserRepository(setupTestDB(t))

	user, err := repo.GetByVKID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSetToken_CreatesStubRow(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupTestDB(t))

	// token arrives before registration
	require.NoError(t, repo.SetToken(ctx, 200, "tok-1"))

	token, err := repo.GetToken(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	user, err := repo.GetByVKID(ctx, 200)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.False(t, user.ProfileComplete(), "stub row is not a registered profile")

	// re-capture overwrites
	require.NoError(t, repo.SetToken(ctx, 200, "tok-2"))
	token, err = repo.GetToken(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
}

func TestGetOrCreatePreferences_Defaults(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupTestDB(t))

	prefs, err := repo.GetOrCreatePreferences(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 18, prefs.AgeFrom)
	assert.Equal(t, 45, prefs.AgeTo)
	assert.Equal(t, 0, prefs.Sex)
	assert.True(t, prefs.HasPhoto)
	assert.Empty(t, prefs.City)

	// second call returns the same row, not a fresh default
	require.NoError(t, repo.UpdatePreferences(ctx, 7, map[string]interface{}{"age_from": 20, "age_to": 25}))
	prefs, err = repo.GetOrCreatePreferences(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 20, prefs.AgeFrom)
	assert.Equal(t, 25, prefs.AgeTo)
}

func TestStateRepository_Roundtrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewStateRepository(setupTestDB(t))

	// absence is the initial state
	state, payload, err := repo.Get(ctx, 300)
	require.NoError(t, err)
	assert.Empty(t, state)
	assert.Empty(t, payload)

	require.NoError(t, repo.Set(ctx, 300, "registration_age", `{"first_name":"Ann"}`))
	require.NoError(t, repo.Set(ctx, 300, "registration_sex", `{"first_name":"Ann","age":29}`))

	state, payload, err = repo.Get(ctx, 300)
	require.NoError(t, err)
	assert.Equal(t, "registration_sex", state)
	assert.JSONEq(t, `{"first_name":"Ann","age":29}`, payload)

	require.NoError(t, repo.Clear(ctx, 300))
	state, _, err = repo.Get(ctx, 300)
	require.NoError(t, err)
	assert.Empty(t, state)
}
