package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/kamaqiyasov/vkinder/internal/config"
)

// Directory error codes that matter to us.
const (
	codeAuthFailed     = 5
	codeTooMany        = 6
	codeTokenConfiscat = 27
	codeTokenExpired   = 28
	codeRateLimit      = 29
)

// AuthError means the access token is invalid or expired. It is fatal for
// the current operation and never retried.
type AuthError struct {
	Code int
	Msg  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("directory auth failed (code %d): %s", e.Code, e.Msg)
}

// APIError is any other error response from the directory.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory error (code %d): %s", e.Code, e.Msg)
}

// rateGate enforces a minimum spacing between outbound calls. Callers block
// on Wait until the next slot; the gate is shared across goroutines so the
// spacing holds process-wide.
type rateGate struct {
	mu       sync.Mutex
	next     time.Time
	interval time.Duration
}

func newRateGate(interval time.Duration) *rateGate {
	return &rateGate{interval: interval}
}

func (g *rateGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	now := time.Now()
	slot := g.next
	if slot.Before(now) {
		slot = now
	}
	g.next = slot.Add(g.interval)
	g.mu.Unlock()

	d := time.Until(slot)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client is a rate-limited, retrying client for the directory API.
//
// A Client is bound to one access token; WithToken derives a client for a
// user-supplied token that shares the same rate gate and HTTP transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	version    string
	gate       *rateGate
	now        func() time.Time
	log        *slog.Logger
}

func NewClient(cfg *config.Config, token string, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    cfg.VK.BaseURL,
		token:      token,
		version:    cfg.VK.Version,
		gate:       newRateGate(cfg.VK.RequestInterval),
		now:        time.Now,
		log:        log,
	}
}

// WithToken returns a client using the given token. The rate gate is shared:
// the directory throttles per source, not per token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// call performs one API method call, waiting for a rate slot first.
// A throttled response gets exactly one retry after the gate interval.
func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		raw, err := c.doCall(ctx, method, params)
		if err == nil {
			return raw, nil
		}

		apiErr, ok := err.(*APIError)
		throttled := ok && (apiErr.Code == codeTooMany || apiErr.Code == codeRateLimit)
		if !throttled || attempt >= 1 {
			return nil, err
		}

		c.log.Warn("directory throttled, retrying once", "method", method)
		if waitErr := sleepCtx(ctx, c.gate.interval); waitErr != nil {
			return nil, waitErr
		}
	}
}

func (c *Client) doCall(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("access_token", c.token)
	q.Set("v", c.version)

	reqURL := c.baseURL + "/" + method + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read failed: %w", method, err)
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
		Error    *apiError       `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%s decode failed: %w", method, err)
	}

	if envelope.Error != nil {
		e := envelope.Error
		switch e.Code {
		case codeAuthFailed, codeTokenConfiscat, codeTokenExpired:
			return nil, &AuthError{Code: e.Code, Msg: e.Msg}
		default:
			return nil, &APIError{Code: e.Code, Msg: e.Msg}
		}
	}

	return envelope.Response, nil
}

// SearchUsers runs one page of users.search. Returns the page and the total
// count the directory claims to have.
func (c *Client) SearchUsers(ctx context.Context, crit Criteria, sortOrder, offset, count int) ([]Candidate, int, error) {
	params := url.Values{}
	params.Set("fields", "bdate,city,sex,can_access_closed,photo_id")
	params.Set("status", "1")
	params.Set("sort", fmt.Sprint(sortOrder))
	params.Set("offset", fmt.Sprint(offset))
	params.Set("count", fmt.Sprint(count))
	if crit.HasPhoto {
		params.Set("has_photo", "1")
	}
	if crit.City != "" {
		params.Set("hometown", crit.City)
	}
	if crit.AgeFrom > 0 {
		params.Set("age_from", fmt.Sprint(crit.AgeFrom))
	}
	if crit.AgeTo > 0 {
		params.Set("age_to", fmt.Sprint(crit.AgeTo))
	}
	if crit.Sex != SexAny {
		params.Set("sex", fmt.Sprint(int(crit.Sex)))
	}

	raw, err := c.call(ctx, "users.search", params)
	if err != nil {
		return nil, 0, err
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, 0, fmt.Errorf("users.search decode failed: %w", err)
	}

	now := c.now()
	candidates := make([]Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		candidates = append(candidates, item.candidate(now))
	}
	return candidates, resp.Count, nil
}

// FetchPhotos returns the candidate's top photos ordered by like count,
// at most maxProfilePhotos of them.
func (c *Client) FetchPhotos(ctx context.Context, ownerID int64) ([]Photo, error) {
	params := url.Values{}
	params.Set("owner_id", fmt.Sprint(ownerID))
	params.Set("extended", "1")
	params.Set("count", "100")
	params.Set("no_service_albums", "1")

	raw, err := c.call(ctx, "photos.getAll", params)
	if err != nil {
		return nil, err
	}

	var resp photosResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("photos.getAll decode failed: %w", err)
	}

	sort.SliceStable(resp.Items, func(i, j int) bool {
		return resp.Items[i].Likes.Count > resp.Items[j].Likes.Count
	})

	photos := make([]Photo, 0, maxProfilePhotos)
	for _, item := range resp.Items {
		if len(photos) == maxProfilePhotos {
			break
		}
		if len(item.Sizes) == 0 {
			continue
		}
		photos = append(photos, Photo{
			ID:      item.ID,
			OwnerID: item.OwnerID,
			URL:     item.Sizes[len(item.Sizes)-1].URL, // last size is the largest
			Likes:   item.Likes.Count,
		})
	}
	return photos, nil
}

// UserInfo fetches the profile snapshot for one directory user.
func (c *Client) UserInfo(ctx context.Context, userID int64) (*Candidate, error) {
	params := url.Values{}
	params.Set("user_ids", fmt.Sprint(userID))
	params.Set("fields", "bdate,city,sex")

	raw, err := c.call(ctx, "users.get", params)
	if err != nil {
		return nil, err
	}

	var items []wireUser
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("users.get decode failed: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("users.get returned no profile for %d", userID)
	}

	cand := items[0].candidate(c.now())
	return &cand, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
