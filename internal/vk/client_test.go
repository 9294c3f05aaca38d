package vk_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamaqiyasov/vkinder/internal/config"
	"github.com/kamaqiyasov/vkinder/internal/vk"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *vk.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.VK.BaseURL = srv.URL
	cfg.VK.Version = "5.131"
	cfg.VK.RequestInterval = time.Millisecond

	return vk.NewClient(cfg, "test-token", testLogger())
}

func TestSearchUsers_ParsesPage(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users.search", r.URL.Path)
		gotQuery = map[string]string{
			"hometown": r.URL.Query().Get("hometown"),
			"sex":      r.URL.Query().Get("sex"),
			"status":   r.URL.Query().Get("status"),
			"token":    r.URL.Query().Get("access_token"),
		}
		fmt.Fprint(w, `{"response":{"count":2,"items":[
			{"id":11,"first_name":"Ann","last_name":"Lee","sex":1,"city":{"id":1,"title":"Springfield"}},
			{"id":12,"first_name":"Kate","last_name":"Ray","sex":1,"is_closed":true,"can_access_closed":true}
		]}}`)
	})

	crit := vk.Criteria{City: "Springfield", AgeFrom: 25, AgeTo: 30, Sex: vk.SexFemale, HasPhoto: true}
	page, total, err := client.SearchUsers(context.Background(), crit, vk.SortPopularity, 0, 100)

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 2)
	assert.Equal(t, "Ann", page[0].FirstName)
	assert.Equal(t, "Springfield", page[0].City)
	assert.True(t, page[1].Closed)
	assert.False(t, page[1].Inaccessible)

	assert.Equal(t, "Springfield", gotQuery["hometown"])
	assert.Equal(t, "1", gotQuery["sex"])
	assert.Equal(t, "1", gotQuery["status"])
	assert.Equal(t, "test-token", gotQuery["token"])
}

func TestCall_ThrottledRetriesExactlyOnce(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"error":{"error_code":6,"error_msg":"too many requests"}}`)
			return
		}
		fmt.Fprint(w, `{"response":{"count":0,"items":[]}}`)
	})

	_, _, err := client.SearchUsers(context.Background(), vk.Criteria{}, vk.SortPopularity, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCall_PersistentThrottleGivesUp(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"error":{"error_code":29,"error_msg":"rate limit"}}`)
	})

	_, _, err := client.SearchUsers(context.Background(), vk.Criteria{}, vk.SortPopularity, 0, 100)

	var apiErr *vk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 29, apiErr.Code)
	assert.Equal(t, 2, calls, "one retry, then give up")
}

func TestCall_AuthFailureNeverRetried(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"error":{"error_code":5,"error_msg":"user authorization failed"}}`)
	})

	_, _, err := client.SearchUsers(context.Background(), vk.Criteria{}, vk.SortPopularity, 0, 100)

	var authErr *vk.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 5, authErr.Code)
	assert.Equal(t, 1, calls)
}

func TestFetchPhotos_TopThreeByLikes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/photos.getAll", r.URL.Path)
		fmt.Fprint(w, `{"response":{"count":4,"items":[
			{"id":1,"owner_id":77,"likes":{"count":5},"sizes":[{"type":"s","url":"small1"},{"type":"x","url":"big1"}]},
			{"id":2,"owner_id":77,"likes":{"count":50},"sizes":[{"type":"x","url":"big2"}]},
			{"id":3,"owner_id":77,"likes":{"count":20},"sizes":[{"type":"x","url":"big3"}]},
			{"id":4,"owner_id":77,"likes":{"count":1},"sizes":[{"type":"x","url":"big4"}]}
		]}}`)
	})

	photos, err := client.FetchPhotos(context.Background(), 77)
	require.NoError(t, err)

	require.Len(t, photos, 3)
	assert.Equal(t, int64(2), photos[0].ID) // most liked first
	assert.Equal(t, int64(3), photos[1].ID)
	assert.Equal(t, int64(1), photos[2].ID)
	assert.Equal(t, "big1", photos[2].URL) // largest size picked
}

func TestUserInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users.get", r.URL.Path)
		fmt.Fprint(w, `{"response":[{"id":500,"first_name":"Bob","last_name":"Hart","sex":2,"city":{"id":2,"title":"Shelbyville"}}]}`)
	})

	info, err := client.UserInfo(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, "Bob", info.FirstName)
	assert.Equal(t, vk.SexMale, info.Sex)
	assert.Equal(t, "Shelbyville", info.City)
}
