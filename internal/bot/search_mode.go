package bot

import (
	"github.com/kamaqiyasov/vkinder/internal/vk"
)

// handleSearchMode consumes messages while a search session is live.
func (b *Bot) handleSearchMode(t *turn) error {
	user, err := t.users.GetByVKID(t.ctx, t.userID)
	if err != nil {
		return err
	}
	if user == nil {
		b.sessions.Abort(t.userID)
		b.send(t, "Let's start over. Press start.", vk.StartKeyboard(), "")
		return nil
	}
	api := b.apiFor(user.AccessToken)

	switch t.cmd {
	case "next":
		res, err := b.sessions.Advance(t.ctx, t.userID, api)
		if err != nil {
			return err
		}
		b.sendStepResult(t, res)
		return nil

	case "favorite":
		res, err := b.sessions.Favorite(t.ctx, t.userID, api)
		if err != nil {
			return err
		}
		// Confirm only when a ledger row actually got written: a stale
		// session or an already-exhausted cursor records nothing.
		if res.Recorded {
			b.send(t, "Added to favorites."+b.favoriteCountLine(t, user.ID), nil, "")
		}
		b.sendStepResult(t, res)
		return nil

	case "block":
		res, err := b.sessions.Block(t.ctx, t.userID, api)
		if err != nil {
			return err
		}
		if res.Recorded {
			b.send(t, "Won't show them again.", nil, "")
		}
		b.sendStepResult(t, res)
		return nil

	case "main menu":
		b.sessions.Abort(t.userID)
		return b.toMainMenu(t, "Search stopped.")
	}

	b.send(t, "You're browsing candidates: next, favorite, block, or main menu.", vk.SearchKeyboard(), "")
	return nil
}
