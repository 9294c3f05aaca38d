package vk

import "encoding/json"

// Keyboard is the reply-keyboard descriptor the messaging transport accepts.
type Keyboard struct {
	OneTime bool       `json:"one_time"`
	Buttons [][]Button `json:"buttons"`
}

type Button struct {
	Action ButtonAction `json:"action"`
	Color  string       `json:"color,omitempty"`
}

type ButtonAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

func (k *Keyboard) JSON() string {
	b, err := json.Marshal(k)
	if err != nil {
		return ""
	}
	return string(b)
}

func row(labels ...string) []Button {
	buttons := make([]Button, 0, len(labels))
	for _, l := range labels {
		buttons = append(buttons, Button{
			Action: ButtonAction{Type: "text", Label: l},
			Color:  "secondary",
		})
	}
	return buttons
}

func StartKeyboard() *Keyboard {
	return &Keyboard{Buttons: [][]Button{row("start")}}
}

func MainMenuKeyboard() *Keyboard {
	return &Keyboard{Buttons: [][]Button{
		row("search", "profile"),
		row("favorites", "blacklist"),
		row("settings", "help"),
	}}
}

func SearchKeyboard() *Keyboard {
	return &Keyboard{Buttons: [][]Button{
		row("next", "favorite", "block"),
		row("main menu"),
	}}
}

func SettingsKeyboard() *Keyboard {
	return &Keyboard{Buttons: [][]Button{
		row("age", "city", "sex"),
		row("photo", "main menu"),
	}}
}

func BrowseKeyboard() *Keyboard {
	return &Keyboard{Buttons: [][]Button{
		row("forward", "back"),
		row("main menu"),
	}}
}
