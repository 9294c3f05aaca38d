package bot

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kamaqiyasov/vkinder/internal/db"
	"github.com/kamaqiyasov/vkinder/internal/repository"
	"github.com/kamaqiyasov/vkinder/internal/vk"
)

const helpText = `I help you find people to meet.

search — start browsing candidates
profile — show your profile (send "edit" to change it)
favorites — people you liked
blacklist — people you hid
settings — search preferences
help — this message`

// formatCandidate builds the card shown for one candidate.
func formatCandidate(c *vk.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", c.FirstName, c.LastName)
	if c.Age > 0 {
		fmt.Fprintf(&b, ", %d", c.Age)
	}
	if c.City != "" {
		fmt.Fprintf(&b, "\n%s", c.City)
	}
	fmt.Fprintf(&b, "\n%s", c.Link)
	return b.String()
}

func formatProfile(u *db.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	return fmt.Sprintf("Your profile:\nName: %s\nAge: %d\nSex: %s\nCity: %s\n\nSend \"edit\" to change it.",
		name, u.Age, vk.Sex(u.Sex).String(), u.City)
}

func formatPreferences(p *db.SearchPreferences, fallbackCity string) string {
	city := p.City
	if city == "" {
		city = fallbackCity + " (your city)"
	}
	photo := "no"
	if p.HasPhoto {
		photo = "yes"
	}
	return fmt.Sprintf("Search preferences:\nAge: %d-%d\nSex: %s\nCity: %s\nWith photo only: %s",
		p.AgeFrom, p.AgeTo, vk.Sex(p.Sex).String(), city, photo)
}

// formatLedgerPage renders one page of the interaction ledger with 1-based
// item numbers so "remove N" commands can reference them.
func formatLedgerPage(kind db.InteractionKind, items []db.Interaction, page, totalPages int) string {
	var b strings.Builder
	switch kind {
	case db.KindFavorite:
		b.WriteString("Your favorites")
	default:
		b.WriteString("Your blacklist")
	}
	fmt.Fprintf(&b, " (page %d of %d):\n", page+1, totalPages)

	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s — %s\n", page*repository.LedgerPageSize+i+1, item.Name, item.Link)
	}

	switch kind {
	case db.KindFavorite:
		b.WriteString("\nSend \"remove N\" to drop an entry, \"clear all\" to empty the list.")
	default:
		b.WriteString("\nSend \"unblock N\" to drop an entry, \"clear all\" to empty the list.")
	}
	return b.String()
}

// oauthURL builds the token-grant link the user opens to give the bot a
// personal directory token with search and photo scopes.
func oauthURL(clientID string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("display", "page")
	q.Set("redirect_uri", "https://oauth.vk.com/blank.html")
	q.Set("scope", "photos,offline")
	q.Set("response_type", "token")
	return "https://oauth.vk.com/authorize?" + q.Encode()
}
