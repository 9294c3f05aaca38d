package bot

import (
	"strconv"
	"strings"

	"github.com/kamaqiyasov/vkinder/internal/db"
	"github.com/kamaqiyasov/vkinder/internal/repository"
	"github.com/kamaqiyasov/vkinder/internal/vk"
)

// openBrowse enters the ledger-browsing mode over one list. An empty list
// never enters the mode; the user stays in the menu.
func (b *Bot) openBrowse(t *turn, user *db.User, kind db.InteractionKind) error {
	items, totalPages, err := t.ledger.List(t.ctx, user.ID, kind, 0)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		if kind == db.KindFavorite {
			b.send(t, "No favorites yet. Like someone during a search first.", vk.MainMenuKeyboard(), "")
		} else {
			b.send(t, "Your blacklist is empty.", vk.MainMenuKeyboard(), "")
		}
		return nil
	}

	b.enterBrowse(t.userID, &browseMode{ledgerID: user.ID, kind: kind})
	b.send(t, formatLedgerPage(kind, items, 0, totalPages), vk.BrowseKeyboard(), "")
	return nil
}

// handleBrowse consumes messages while a list is being browsed: paging,
// single-entry removal by its displayed number, and clearing the list.
func (b *Bot) handleBrowse(t *turn) error {
	mode := b.browseFor(t.userID)

	switch {
	case t.cmd == "forward":
		return b.showBrowsePage(t, mode, mode.page+1)

	case t.cmd == "back":
		return b.showBrowsePage(t, mode, mode.page-1)

	case t.cmd == "main menu":
		b.exitBrowse(t.userID)
		return b.toMainMenu(t, "Back to the menu.")

	case t.cmd == "clear all":
		removed, err := t.ledger.RemoveAll(t.ctx, mode.ledgerID, mode.kind)
		if err != nil {
			return err
		}
		if mode.kind == db.KindFavorite && removed > 0 {
			_ = b.appCtx.RedisCache.Del(t.ctx, b.appCtx.RedisCache.KeyForFavoriteCount(mode.ledgerID))
		}
		b.exitBrowse(t.userID)
		return b.toMainMenu(t, "List cleared.")

	case strings.HasPrefix(t.cmd, "remove "), strings.HasPrefix(t.cmd, "unblock "):
		_, arg, _ := strings.Cut(t.cmd, " ")
		return b.removeBrowseEntry(t, mode, arg)
	}

	b.send(t, "You're browsing a list: forward, back, remove N, clear all, or main menu.",
		vk.BrowseKeyboard(), "")
	return nil
}

// removeBrowseEntry drops the entry with the displayed (1-based) number.
func (b *Bot) removeBrowseEntry(t *turn, mode *browseMode, arg string) error {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 {
		b.send(t, "Please give the entry number, e.g. \"remove 2\".", vk.BrowseKeyboard(), "")
		return nil
	}

	idx := n - 1
	items, _, err := t.ledger.List(t.ctx, mode.ledgerID, mode.kind, idx/repository.LedgerPageSize)
	if err != nil {
		return err
	}
	within := idx % repository.LedgerPageSize
	if within >= len(items) {
		b.send(t, "There's no entry with that number.", vk.BrowseKeyboard(), "")
		return nil
	}

	entry := items[within]
	if _, err := t.ledger.Remove(t.ctx, mode.ledgerID, entry.CandidateID, mode.kind); err != nil {
		return err
	}
	if mode.kind == db.KindFavorite {
		_ = b.appCtx.RedisCache.Del(t.ctx, b.appCtx.RedisCache.KeyForFavoriteCount(mode.ledgerID))
	}
	t.log.Info("ledger entry removed", "kind", mode.kind, "candidate", entry.CandidateID)

	return b.showBrowsePage(t, mode, mode.page)
}

// showBrowsePage renders a page, clamping to the list bounds. An emptied
// list exits the mode.
func (b *Bot) showBrowsePage(t *turn, mode *browseMode, page int) error {
	if page < 0 {
		page = 0
	}
	items, totalPages, err := t.ledger.List(t.ctx, mode.ledgerID, mode.kind, page)
	if err != nil {
		return err
	}
	if totalPages == 0 {
		b.exitBrowse(t.userID)
		return b.toMainMenu(t, "The list is empty now.")
	}
	if page >= totalPages {
		page = totalPages - 1
		items, totalPages, err = t.ledger.List(t.ctx, mode.ledgerID, mode.kind, page)
		if err != nil {
			return err
		}
	}

	mode.page = page
	b.send(t, formatLedgerPage(mode.kind, items, page, totalPages), vk.BrowseKeyboard(), "")
	return nil
}
