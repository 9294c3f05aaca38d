package bot

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kamaqiyasov/vkinder/internal/db"
	"github.com/kamaqiyasov/vkinder/internal/repository"
	"github.com/kamaqiyasov/vkinder/internal/vk"
)

// handleStart is the initial state: waiting for the start command. A known
// user is let straight into the menu; a new one goes through registration,
// pre-filled from their directory profile so only missing fields get asked.
func (b *Bot) handleStart(t *turn, _ string) error {
	if t.cmd != "start" {
		b.send(t, "Hi! Press start to begin.", vk.StartKeyboard(), "")
		return nil
	}

	user, err := t.users.GetByVKID(t.ctx, t.userID)
	if err != nil {
		return err
	}
	if user != nil && user.ProfileComplete() {
		if err := t.states.Set(t.ctx, t.userID, string(StateMain), ""); err != nil {
			return err
		}
		b.send(t, fmt.Sprintf("Welcome back, %s!", user.FirstName), vk.MainMenuKeyboard(), "")
		return nil
	}

	payload := b.seedRegistration(t)
	return b.advanceRegistration(t, payload)
}

// seedRegistration pre-fills registration from the directory profile.
// Lookup failures just mean every field gets asked.
func (b *Bot) seedRegistration(t *turn) registrationPayload {
	token, err := t.users.GetToken(t.ctx, t.userID)
	if err != nil {
		t.log.Warn("token lookup failed, asking all fields", "err", err)
		token = ""
	}

	info, err := b.apiFor(token).UserInfo(t.ctx, t.userID)
	if err != nil {
		t.log.Warn("profile prefetch failed, asking all fields", "err", err)
		return registrationPayload{}
	}
	return profilePayload(info)
}

// profilePayload maps a directory profile onto the registration payload,
// keeping only an age that passes registration validation.
func profilePayload(info *vk.Candidate) registrationPayload {
	p := registrationPayload{
		FirstName: info.FirstName,
		LastName:  info.LastName,
		Sex:       int(info.Sex),
		City:      info.City,
	}
	if info.Age >= regAgeMin && info.Age <= regAgeMax {
		p.Age = info.Age
	}
	return p
}

// advanceRegistration asks the next missing field, or completes registration
// when nothing is missing.
func (b *Bot) advanceRegistration(t *turn, p registrationPayload) error {
	field := p.nextMissingField()
	if field == "" {
		return b.completeRegistration(t, p)
	}
	if err := t.states.Set(t.ctx, t.userID, string(stateForField(field)), p.encode()); err != nil {
		return err
	}
	b.send(t, promptForField(field), nil, "")
	return nil
}

// completeRegistration saves the profile and moves to the main menu, in one
// transaction so a half-registered user cannot exist.
func (b *Bot) completeRegistration(t *turn, p registrationPayload) error {
	user := &db.User{
		VKID:      t.userID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Age:       p.Age,
		Sex:       p.Sex,
		City:      p.City,
	}
	err := b.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewUserRepository(tx).Upsert(t.ctx, user); err != nil {
			return err
		}
		return repository.NewStateRepository(tx).Set(t.ctx, t.userID, string(StateMain), "")
	})
	if err != nil {
		return err
	}

	t.log.Info("registration complete", "name", p.FirstName)
	b.send(t, fmt.Sprintf("All set, %s! What would you like to do?", p.FirstName), vk.MainMenuKeyboard(), "")
	return nil
}

func (b *Bot) handleRegName(t *turn, payload string) error {
	name, err := validateName(t.text)
	if err != nil {
		b.send(t, err.Error(), nil, "")
		return nil
	}
	p := decodeRegistration(payload)
	p.FirstName = name
	return b.advanceRegistration(t, p)
}

func (b *Bot) handleRegAge(t *turn, payload string) error {
	age, err := validateAge(t.text)
	if err != nil {
		b.send(t, err.Error(), nil, "")
		return nil
	}
	p := decodeRegistration(payload)
	p.Age = age
	return b.advanceRegistration(t, p)
}

func (b *Bot) handleRegSex(t *turn, payload string) error {
	sex, err := parseSex(t.text, false)
	if err != nil {
		b.send(t, err.Error(), nil, "")
		return nil
	}
	p := decodeRegistration(payload)
	p.Sex = int(sex)
	return b.advanceRegistration(t, p)
}

func (b *Bot) handleRegCity(t *turn, payload string) error {
	city, err := validateCity(t.text)
	if err != nil {
		b.send(t, err.Error(), nil, "")
		return nil
	}
	p := decodeRegistration(payload)
	p.City = city
	return b.advanceRegistration(t, p)
}

// --- profile editing ---

var errNotRegistered = errors.New("user row missing for registered state")

func (b *Bot) handleEditChoice(t *turn, _ string) error {
	var next State
	switch t.cmd {
	case "name":
		next = StateEditName
	case "age":
		next = StateEditAge
	case "sex":
		next = StateEditSex
	case "city":
		next = StateEditCity
	case "main menu", "cancel":
		return b.toMainMenu(t, "Okay, back to the menu.")
	default:
		b.send(t, "What do you want to change? (name / age / sex / city, or main menu)", nil, "")
		return nil
	}
	if err := t.states.Set(t.ctx, t.userID, string(next), ""); err != nil {
		return err
	}
	b.send(t, promptForField(t.cmd), nil, "")
	return nil
}

func (b *Bot) handleEditName(t *turn, _ string) error {
	name, err := validateName(t.text)
	if err != nil {
		b.send(t, err.Error(), nil, "")
		return nil
	}
	return b.applyProfileEdit(t, map[string]interface{}{"first_name": name})
}

func (b *Bot) handleEditAge(t *turn, _ string) error {
	age, err := validateAge(t.text)
	if err != nil {
		b.send(t, err.Error(), nil, "")
		return nil
	}
	return b.applyProfileEdit(t, map[string]interface{}{"age": age})
}

func (b *Bot) handleEditSex(t *turn, _ string) error {
	sex, err := parseSex(t.text, false)
	if err != nil {
		b.send(t, err.Error(), nil, "")
		return nil
	}
	return b.applyProfileEdit(t, map[string]interface{}{"sex": int(sex)})
}

func (b *Bot) handleEditCity(t *turn, _ string) error {
	city, err := validateCity(t.text)
	if err != nil {
		b.send(t, err.Error(), nil, "")
		return nil
	}
	return b.applyProfileEdit(t, map[string]interface{}{"city": city})
}

func (b *Bot) applyProfileEdit(t *turn, updates map[string]interface{}) error {
	if err := t.users.UpdateProfile(t.ctx, t.userID, updates); err != nil {
		return err
	}
	user, err := t.users.GetByVKID(t.ctx, t.userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errNotRegistered
	}
	if err := t.states.Set(t.ctx, t.userID, string(StateMain), ""); err != nil {
		return err
	}
	b.send(t, formatProfile(user), vk.MainMenuKeyboard(), "")
	return nil
}

func (b *Bot) toMainMenu(t *turn, text string) error {
	if err := t.states.Set(t.ctx, t.userID, string(StateMain), ""); err != nil {
		return err
	}
	b.send(t, text, vk.MainMenuKeyboard(), "")
	return nil
}
