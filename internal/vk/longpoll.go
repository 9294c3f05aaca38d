package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const longPollWait = 25 // seconds, server-side hold

// Event is one inbound message from the long-poll feed.
type Event struct {
	UserID int64
	Text   string
}

// LongPoller consumes the community long-poll feed. Poll blocks up to the
// server wait and returns a (possibly empty) batch of message events;
// connection state is re-initialized transparently when the server asks.
type LongPoller struct {
	client  *Client
	groupID string

	httpClient *http.Client
	server     string
	key        string
	ts         string

	log *slog.Logger
}

func NewLongPoller(client *Client, groupID string, log *slog.Logger) *LongPoller {
	return &LongPoller{
		client:  client,
		groupID: groupID,
		// Timeout must exceed the server-side hold.
		httpClient: &http.Client{Timeout: (longPollWait + 10) * time.Second},
		log:        log,
	}
}

type longPollServer struct {
	Key    string `json:"key"`
	Server string `json:"server"`
	TS     string `json:"ts"`
}

func (p *LongPoller) init(ctx context.Context) error {
	params := url.Values{}
	params.Set("group_id", p.groupID)

	raw, err := p.client.call(ctx, "groups.getLongPollServer", params)
	if err != nil {
		return fmt.Errorf("long poll init failed: %w", err)
	}

	var srv longPollServer
	if err := json.Unmarshal(raw, &srv); err != nil {
		return fmt.Errorf("long poll init decode failed: %w", err)
	}

	p.server, p.key, p.ts = srv.Server, srv.Key, srv.TS
	p.log.Debug("long poll server acquired")
	return nil
}

type longPollUpdate struct {
	Type   string `json:"type"`
	Object struct {
		Message struct {
			FromID int64  `json:"from_id"`
			Text   string `json:"text"`
		} `json:"message"`
	} `json:"object"`
}

type longPollBatch struct {
	TS      string           `json:"ts"`
	Failed  int              `json:"failed"`
	Updates []longPollUpdate `json:"updates"`
}

// Poll performs one long-poll cycle.
func (p *LongPoller) Poll(ctx context.Context) ([]Event, error) {
	if p.server == "" {
		if err := p.init(ctx); err != nil {
			return nil, err
		}
	}

	q := url.Values{}
	q.Set("act", "a_check")
	q.Set("key", p.key)
	q.Set("ts", p.ts)
	q.Set("wait", fmt.Sprint(longPollWait))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.server+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("long poll request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("long poll read failed: %w", err)
	}

	var batch longPollBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("long poll decode failed: %w", err)
	}

	switch batch.Failed {
	case 0:
	case 1:
		// History is outdated; just move the cursor.
		p.ts = batch.TS
		return nil, nil
	default:
		// Key or server expired; re-init on the next cycle.
		p.server = ""
		return nil, nil
	}

	p.ts = batch.TS

	var events []Event
	for _, u := range batch.Updates {
		if u.Type != "message_new" {
			continue
		}
		msg := u.Object.Message
		if msg.FromID <= 0 || msg.Text == "" {
			continue
		}
		events = append(events, Event{UserID: msg.FromID, Text: msg.Text})
	}
	return events, nil
}
