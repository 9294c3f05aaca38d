package bot

import "fmt"

// handleAwaitToken runs after an auth failure: the user re-authorizes in a
// browser and pastes the token back into the chat. The token is checked
// against the directory before it is stored, so a garbled paste cannot
// silently replace a working one.
func (b *Bot) handleAwaitToken(t *turn, _ string) error {
	switch t.cmd {
	case "cancel", "main menu":
		return b.toMainMenu(t, "Okay. Search stays unavailable until you send a new token.")
	case "", "start", "help":
		b.send(t, tokenPrompt(b.cfg.VK.OAuthClientID), nil, "")
		return nil
	}

	token := t.text
	info, err := b.api.WithToken(token).UserInfo(t.ctx, t.userID)
	if err != nil {
		t.log.Warn("token verification failed", "err", err)
		b.send(t, "That token didn't work. "+tokenPrompt(b.cfg.VK.OAuthClientID), nil, "")
		return nil
	}

	if err := t.users.SetToken(t.ctx, t.userID, token); err != nil {
		return err
	}
	t.log.Info("access token refreshed")

	user, err := t.users.GetByVKID(t.ctx, t.userID)
	if err != nil {
		return err
	}
	if user != nil && user.ProfileComplete() {
		return b.toMainMenu(t, "Token saved, you're all set.")
	}

	// Not registered yet: roll straight into registration, pre-filled from
	// the profile we just fetched while verifying the token.
	return b.advanceRegistration(t, profilePayload(info))
}

func tokenPrompt(clientID string) string {
	return fmt.Sprintf("Open this link, allow access, copy the access_token value from the address bar and send it to me (or send \"cancel\"):\n%s", oauthURL(clientID))
}
