package vk

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
)

// Messenger sends outbound messages through the directory's messaging API.
type Messenger struct {
	client *Client
}

func NewMessenger(client *Client) *Messenger {
	return &Messenger{client: client}
}

// Send delivers one message. keyboard and attachment are optional.
func (m *Messenger) Send(ctx context.Context, userID int64, text string, keyboard *Keyboard, attachment string) error {
	params := url.Values{}
	params.Set("user_id", fmt.Sprint(userID))
	params.Set("message", text)
	// The API deduplicates resends by this id.
	params.Set("random_id", fmt.Sprint(rand.Int31()))
	if keyboard != nil {
		params.Set("keyboard", keyboard.JSON())
	}
	if attachment != "" {
		params.Set("attachment", attachment)
	}

	_, err := m.client.call(ctx, "messages.send", params)
	if err != nil {
		return fmt.Errorf("send to %d failed: %w", userID, err)
	}
	return nil
}
