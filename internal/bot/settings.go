package bot

import (
	"github.com/kamaqiyasov/vkinder/internal/db"
	"github.com/kamaqiyasov/vkinder/internal/vk"
)

// openSettings enters the preference-editing mode and shows the summary.
func (b *Bot) openSettings(t *turn, user *db.User) error {
	prefs, err := t.users.GetOrCreatePreferences(t.ctx, user.ID)
	if err != nil {
		return err
	}
	b.enterSettings(t.userID, &settingsMode{ledgerID: user.ID})
	b.send(t, formatPreferences(prefs, user.City), vk.SettingsKeyboard(), "")
	return nil
}

// handleSettings consumes messages while the settings mode is live: either
// picking the field to edit or answering the pending field prompt.
func (b *Bot) handleSettings(t *turn) error {
	mode := b.settingsFor(t.userID)

	if mode.awaiting != "" {
		return b.applyPreference(t, mode)
	}

	switch t.cmd {
	case "age":
		mode.awaiting = "age"
		b.send(t, "What age range? (e.g. 25-30, or a single age)", nil, "")
		return nil
	case "city":
		mode.awaiting = "city"
		b.send(t, "Which city to search in? (send \"my city\" to use your own)", nil, "")
		return nil
	case "sex":
		mode.awaiting = "sex"
		b.send(t, "Who are you looking for? (female/male/any)", nil, "")
		return nil
	case "photo":
		prefs, err := t.users.GetOrCreatePreferences(t.ctx, mode.ledgerID)
		if err != nil {
			return err
		}
		if err := t.users.UpdatePreferences(t.ctx, mode.ledgerID,
			map[string]interface{}{"has_photo": !prefs.HasPhoto}); err != nil {
			return err
		}
		return b.showSettings(t, mode)
	case "main menu":
		b.exitSettings(t.userID)
		return b.toMainMenu(t, "Preferences saved.")
	}

	b.send(t, "Pick a setting to change: age, city, sex, photo — or main menu.", vk.SettingsKeyboard(), "")
	return nil
}

func (b *Bot) applyPreference(t *turn, mode *settingsMode) error {
	switch t.cmd {
	case "cancel", "back":
		mode.awaiting = ""
		return b.showSettings(t, mode)
	case "main menu":
		// The menu button stays an escape even mid-prompt; it must not be
		// mistaken for a city name or an age.
		b.exitSettings(t.userID)
		return b.toMainMenu(t, "Preferences saved.")
	}

	var updates map[string]interface{}

	switch mode.awaiting {
	case "age":
		from, to, err := parseAgeRange(t.text)
		if err != nil {
			b.send(t, err.Error(), nil, "")
			return nil
		}
		updates = map[string]interface{}{"age_from": from, "age_to": to}
	case "city":
		if t.cmd == "my city" {
			// Empty override falls back to the user's own city at search time.
			updates = map[string]interface{}{"city": ""}
		} else {
			city, err := validateCity(t.text)
			if err != nil {
				b.send(t, err.Error(), nil, "")
				return nil
			}
			updates = map[string]interface{}{"city": city}
		}
	case "sex":
		sex, err := parseSex(t.text, true)
		if err != nil {
			b.send(t, err.Error(), nil, "")
			return nil
		}
		updates = map[string]interface{}{"sex": int(sex)}
	}

	if err := t.users.UpdatePreferences(t.ctx, mode.ledgerID, updates); err != nil {
		return err
	}
	mode.awaiting = ""
	return b.showSettings(t, mode)
}

func (b *Bot) showSettings(t *turn, mode *settingsMode) error {
	prefs, err := t.users.GetOrCreatePreferences(t.ctx, mode.ledgerID)
	if err != nil {
		return err
	}
	user, err := t.users.GetByVKID(t.ctx, t.userID)
	if err != nil {
		return err
	}
	fallback := ""
	if user != nil {
		fallback = user.City
	}
	b.send(t, formatPreferences(prefs, fallback), vk.SettingsKeyboard(), "")
	return nil
}
