// Package bot implements the conversation layer: a durable per-user state
// machine for registration and menus, plus the ephemeral search, settings
// and list-browsing modes layered on top of it.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kamaqiyasov/vkinder/internal/app"
	"github.com/kamaqiyasov/vkinder/internal/config"
	"github.com/kamaqiyasov/vkinder/internal/db"
	"github.com/kamaqiyasov/vkinder/internal/repository"
	"github.com/kamaqiyasov/vkinder/internal/session"
	"github.com/kamaqiyasov/vkinder/internal/vk"
)

// Messenger delivers outbound messages (*vk.Messenger in production).
type Messenger interface {
	Send(ctx context.Context, userID int64, text string, keyboard *vk.Keyboard, attachment string) error
}

// settingsMode is the ephemeral preference-editing mode: which field, if
// any, the next message is expected to answer.
type settingsMode struct {
	ledgerID uint64
	awaiting string // "", "age", "city", "sex"
}

// browseMode is the ephemeral ledger-browsing mode over one list kind.
type browseMode struct {
	ledgerID uint64
	kind     db.InteractionKind
	page     int
}

// Bot routes inbound messages to handlers. One instance serves all users;
// per-user locks serialize turns so two quick messages from the same user
// cannot interleave their state transitions.
type Bot struct {
	cfg      *config.Config
	appCtx   *app.AppContext
	msg      Messenger
	api      *vk.Client
	sessions *session.Manager

	registry map[State]stateHandler

	mu       sync.Mutex
	locks    map[int64]*sync.Mutex
	settings map[int64]*settingsMode
	browse   map[int64]*browseMode
}

func New(cfg *config.Config, appCtx *app.AppContext, msg Messenger, api *vk.Client, sessions *session.Manager) *Bot {
	b := &Bot{
		cfg:      cfg,
		appCtx:   appCtx,
		msg:      msg,
		api:      api,
		sessions: sessions,
		locks:    make(map[int64]*sync.Mutex),
		settings: make(map[int64]*settingsMode),
		browse:   make(map[int64]*browseMode),
	}
	b.registry = b.buildRegistry()
	return b
}

// turn is the per-message context handed to handlers.
type turn struct {
	ctx    context.Context
	userID int64
	text   string
	cmd    string // lowercased text for command matching
	log    *slog.Logger

	users  *repository.UserRepository
	ledger *repository.InteractionRepository
	states *repository.StateRepository
}

// HandleMessage processes one inbound message end to end. Mode checks run
// in priority order: list browsing, then a live search session, then
// settings editing, then the durable state machine.
func (b *Bot) HandleMessage(ctx context.Context, userID int64, text string) {
	log := b.appCtx.Logger.With("turn", uuid.NewString(), "user", userID)

	lock := b.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	trimmed := strings.TrimSpace(text)
	t := &turn{
		ctx:    ctx,
		userID: userID,
		text:   trimmed,
		cmd:    strings.ToLower(trimmed),
		log:    log,
		users:  repository.NewUserRepository(b.appCtx.DB),
		ledger: repository.NewInteractionRepository(b.appCtx.DB),
		states: repository.NewStateRepository(b.appCtx.DB),
	}

	var err error
	switch {
	case b.browseFor(userID) != nil:
		err = b.handleBrowse(t)
	case b.sessions.Active(userID):
		err = b.handleSearchMode(t)
	case b.settingsFor(userID) != nil:
		err = b.handleSettings(t)
	default:
		var state, payload string
		state, payload, err = t.states.Get(ctx, userID)
		if err != nil {
			break
		}
		handler, ok := b.registry[State(state)]
		if !ok {
			log.Warn("unknown conversation state, resetting", "state", state)
			handler, payload = b.handleStart, ""
		}
		err = handler(t, payload)
	}

	if err != nil {
		log.Error("turn failed", "err", err)
		b.sendErrorReply(t, err)
	}
}

// sendErrorReply maps a turn failure onto a user-facing message. An auth
// failure parks the conversation in the token-intake state and sends the
// re-authorization link; everything else is a generic "not applied" notice,
// because the failed write really was not applied.
func (b *Bot) sendErrorReply(t *turn, err error) {
	var authErr *vk.AuthError
	if errors.As(err, &authErr) {
		// A dead token makes every directory-backed action fail, so tear
		// down whatever mode the user was in before asking for a new one.
		b.sessions.Abort(t.userID)
		b.exitSettings(t.userID)
		b.exitBrowse(t.userID)
		if serr := t.states.Set(t.ctx, t.userID, string(StateAwaitToken), ""); serr != nil {
			t.log.Error("state write failed entering token intake", "err", serr)
		}
		b.send(t, "Your access token expired. "+tokenPrompt(b.cfg.VK.OAuthClientID), nil, "")
		return
	}
	b.send(t, "Something went wrong and the action was not applied. Please try again.", nil, "")
}

// send delivers a reply; delivery failures are logged, not propagated, so
// a flaky outbound transport cannot wedge the state machine.
func (b *Bot) send(t *turn, text string, keyboard *vk.Keyboard, attachment string) {
	if err := b.msg.Send(t.ctx, t.userID, text, keyboard, attachment); err != nil {
		t.log.Error("reply delivery failed", "err", err)
	}
}

func (b *Bot) lockFor(userID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[userID] = lock
	}
	return lock
}

func (b *Bot) settingsFor(userID int64) *settingsMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings[userID]
}

func (b *Bot) enterSettings(userID int64, mode *settingsMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings[userID] = mode
}

func (b *Bot) exitSettings(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.settings, userID)
}

func (b *Bot) browseFor(userID int64) *browseMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.browse[userID]
}

func (b *Bot) enterBrowse(userID int64, mode *browseMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.browse[userID] = mode
}

func (b *Bot) exitBrowse(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.browse, userID)
}

// apiFor returns a directory client for the user's personal token, falling
// back to the configured service token.
func (b *Bot) apiFor(token string) *vk.Client {
	if token == "" {
		return b.api
	}
	return b.api.WithToken(token)
}

func (b *Bot) searcherFor(api *vk.Client, log *slog.Logger) *vk.Searcher {
	return vk.NewSearcher(api, b.cfg.VK.MaxResults, log)
}
