package bot

import "encoding/json"

// State names the durable conversation states. The zero value stands for an
// absent row: no active flow, waiting for the start command.
type State string

const (
	StateStart   State = ""
	StateRegName State = "registration_name"
	StateRegAge  State = "registration_age"
	StateRegSex  State = "registration_sex"
	StateRegCity State = "registration_city"
	StateMain    State = "main"

	// Parked here after an auth failure, waiting for a pasted token.
	StateAwaitToken State = "awaiting_token"

	StateEditChoice State = "edit_choice"
	StateEditName   State = "edit_name"
	StateEditAge    State = "edit_age"
	StateEditSex    State = "edit_sex"
	StateEditCity   State = "edit_city"
)

// stateHandler handles one durable conversation state.
type stateHandler func(t *turn, payload string) error

// registry maps every durable state to its handler. Built once at startup;
// unknown state names in the table fall back to StateStart.
func (b *Bot) buildRegistry() map[State]stateHandler {
	return map[State]stateHandler{
		StateStart:   b.handleStart,
		StateRegName: b.handleRegName,
		StateRegAge:  b.handleRegAge,
		StateRegSex:  b.handleRegSex,
		StateRegCity: b.handleRegCity,
		StateMain:    b.handleMain,

		StateAwaitToken: b.handleAwaitToken,

		StateEditChoice: b.handleEditChoice,
		StateEditName:   b.handleEditName,
		StateEditAge:    b.handleEditAge,
		StateEditSex:    b.handleEditSex,
		StateEditCity:   b.handleEditCity,
	}
}

// registrationPayload is the in-progress registration data carried between
// collecting states. Fields filled from the directory profile are kept here
// too, so only genuinely missing fields get asked.
type registrationPayload struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Age       int    `json:"age,omitempty"`
	Sex       int    `json:"sex,omitempty"`
	City      string `json:"city,omitempty"`
}

func decodeRegistration(payload string) registrationPayload {
	var p registrationPayload
	if payload != "" {
		_ = json.Unmarshal([]byte(payload), &p)
	}
	return p
}

func (p registrationPayload) encode() string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// registration field collection order
const (
	fieldName = "name"
	fieldAge  = "age"
	fieldSex  = "sex"
	fieldCity = "city"
)

// nextMissingField returns the first mandatory field the payload lacks,
// or "" when the profile data is complete.
func (p registrationPayload) nextMissingField() string {
	switch {
	case p.FirstName == "":
		return fieldName
	case p.Age < regAgeMin || p.Age > regAgeMax:
		return fieldAge
	case p.Sex != 1 && p.Sex != 2:
		return fieldSex
	case p.City == "":
		return fieldCity
	}
	return ""
}

func stateForField(field string) State {
	switch field {
	case fieldName:
		return StateRegName
	case fieldAge:
		return StateRegAge
	case fieldSex:
		return StateRegSex
	default:
		return StateRegCity
	}
}

func promptForField(field string) string {
	switch field {
	case fieldName:
		return "What is your name?"
	case fieldAge:
		return "How old are you?"
	case fieldSex:
		return "Your sex? (female/male)"
	default:
		return "Which city are you from?"
	}
}
