package bot

import (
	"fmt"

	"github.com/kamaqiyasov/vkinder/internal/db"
	"github.com/kamaqiyasov/vkinder/internal/session"
	"github.com/kamaqiyasov/vkinder/internal/vk"
)

// handleMain is the menu hub every flow returns to.
func (b *Bot) handleMain(t *turn, _ string) error {
	user, err := t.users.GetByVKID(t.ctx, t.userID)
	if err != nil {
		return err
	}
	if user == nil || !user.ProfileComplete() {
		// Row vanished (manual cleanup, reseed). Restart the conversation.
		if err := t.states.Clear(t.ctx, t.userID); err != nil {
			return err
		}
		b.send(t, "Let's start over. Press start.", vk.StartKeyboard(), "")
		return nil
	}

	switch t.cmd {
	case "search":
		return b.startSearch(t, user)
	case "profile":
		b.send(t, formatProfile(user), vk.MainMenuKeyboard(), "")
		return nil
	case "edit", "edit profile":
		if err := t.states.Set(t.ctx, t.userID, string(StateEditChoice), ""); err != nil {
			return err
		}
		b.send(t, "What do you want to change? (name / age / sex / city, or main menu)", nil, "")
		return nil
	case "favorites":
		return b.openBrowse(t, user, db.KindFavorite)
	case "blacklist":
		return b.openBrowse(t, user, db.KindBlacklist)
	case "settings":
		return b.openSettings(t, user)
	case "help":
		b.send(t, helpText, vk.MainMenuKeyboard(), "")
		return nil
	}

	b.send(t, "I didn't get that. Pick an option from the menu.", vk.MainMenuKeyboard(), "")
	return nil
}

// startSearch runs the pipeline and shows the first candidate.
func (b *Bot) startSearch(t *turn, user *db.User) error {
	prefs, err := t.users.GetOrCreatePreferences(t.ctx, user.ID)
	if err != nil {
		return err
	}

	api := b.apiFor(user.AccessToken)
	res, err := b.sessions.Start(t.ctx, user, prefs, b.searcherFor(api, t.log), api)
	if err != nil {
		return err
	}
	if res.NoCandidates {
		b.send(t, "Nobody matches your preferences right now. Try adjusting them in settings.",
			vk.MainMenuKeyboard(), "")
		return nil
	}
	b.sendCandidate(t, res.Candidate)
	return nil
}

// favoriteCountLine shows the cached favorites total on the card, when the
// count is cheap to get. Absence of the line is fine.
func (b *Bot) favoriteCountLine(t *turn, ledgerID uint64) string {
	count, ok, err := b.appCtx.RedisCache.GetFavoriteCount(t.ctx, ledgerID)
	if err != nil || !ok {
		n, dbErr := t.ledger.Count(t.ctx, ledgerID, db.KindFavorite)
		if dbErr != nil {
			return ""
		}
		count = n
		_ = b.appCtx.RedisCache.SetFavoriteCount(t.ctx, ledgerID, count)
	}
	if count == 0 {
		return ""
	}
	return fmt.Sprintf("\nFavorites so far: %d", count)
}

func (b *Bot) sendCandidate(t *turn, cand *vk.Candidate) {
	b.send(t, formatCandidate(cand), vk.SearchKeyboard(), vk.AttachmentList(cand.Photos))
}

// sendStepResult renders any session step outcome.
func (b *Bot) sendStepResult(t *turn, res *session.StepResult) {
	switch {
	case res.Exhausted:
		b.send(t, "That's everyone for now. Come back later or widen your settings.",
			vk.MainMenuKeyboard(), "")
	case res.NoSession:
		b.send(t, "No active search. Send \"search\" to start one.", vk.MainMenuKeyboard(), "")
	case res.Candidate != nil:
		b.sendCandidate(t, res.Candidate)
	}
}
