package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/kamaqiyasov/vkinder/internal/cache"
	"github.com/kamaqiyasov/vkinder/internal/db"
	"github.com/kamaqiyasov/vkinder/internal/matching"
	"github.com/kamaqiyasov/vkinder/internal/repository"
	"github.com/kamaqiyasov/vkinder/internal/vk"
)

// Finder runs the candidate search pipeline (*vk.Searcher in production).
type Finder interface {
	FindCandidates(ctx context.Context, crit vk.Criteria, filter vk.FilterFunc) ([]vk.Candidate, error)
}

// PhotoSource fetches a candidate's top photos (*vk.Client in production).
type PhotoSource interface {
	FetchPhotos(ctx context.Context, ownerID int64) ([]vk.Photo, error)
}

// StepResult is what one session operation produces: either a candidate to
// show or a terminal condition.
type StepResult struct {
	Candidate    *vk.Candidate
	Recorded     bool // a ledger row was written for the stepped-over candidate
	Exhausted    bool // cursor ran past the end; session destroyed
	NoCandidates bool // search produced an empty list; no session created
	NoSession    bool // no live session for this user
}

// Manager drives search sessions: building them from the directory
// pipeline and recording outcomes in the interaction ledger as the user
// steps through candidates.
//
// Ledger writes happen before any cursor mutation; a failed write leaves
// the session exactly where it was.
type Manager struct {
	store *Store
	db    *gorm.DB
	cache *cache.RedisCache
	log   *slog.Logger
}

func NewManager(store *Store, database *gorm.DB, redisCache *cache.RedisCache, log *slog.Logger) *Manager {
	return &Manager{store: store, db: database, cache: redisCache, log: log}
}

// Active reports whether the user has a live session.
func (m *Manager) Active(userID int64) bool {
	return m.store.Active(userID)
}

// Abort destroys the user's session unconditionally.
func (m *Manager) Abort(userID int64) {
	m.store.Delete(userID)
}

// Start runs the search pipeline for the user and installs a fresh session.
// The exclusion set is every candidate the user already decided about, plus
// the user itself.
func (m *Manager) Start(ctx context.Context, user *db.User, prefs *db.SearchPreferences, finder Finder, photos PhotoSource) (*StepResult, error) {
	ledger := repository.NewInteractionRepository(m.db)
	ids, err := ledger.ExcludedIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	exclude := matching.NewExclusions(user.VKID, ids)

	crit := criteriaFrom(user, prefs)
	m.log.Info("starting search", "user", user.VKID,
		"city", crit.City, "age_from", crit.AgeFrom, "age_to", crit.AgeTo, "sex", crit.Sex.String(),
		"excluded", len(exclude))

	candidates, err := finder.FindCandidates(ctx, crit, func(pool []vk.Candidate) []vk.Candidate {
		return matching.Filter(pool, exclude)
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &StepResult{NoCandidates: true}, nil
	}

	sess := &Session{
		UserID:     user.VKID,
		LedgerID:   user.ID,
		Candidates: candidates,
		CreatedAt:  time.Now(),
	}
	m.store.Put(sess)
	m.log.Info("session started", "user", user.VKID, "candidates", len(candidates))

	return m.current(ctx, sess, photos)
}

// Current returns the candidate at the cursor, destroying the session and
// reporting exhaustion when the cursor ran out.
func (m *Manager) Current(ctx context.Context, userID int64, photos PhotoSource) (*StepResult, error) {
	sess, ok := m.store.Get(userID)
	if !ok {
		return &StepResult{NoSession: true}, nil
	}
	return m.current(ctx, sess, photos)
}

// Advance records the current candidate as viewed and moves the cursor.
func (m *Manager) Advance(ctx context.Context, userID int64, photos PhotoSource) (*StepResult, error) {
	return m.step(ctx, userID, photos, db.KindViewed)
}

// Favorite records the current candidate as a favorite and moves the
// cursor. An existing blacklist decision for the pair is replaced.
func (m *Manager) Favorite(ctx context.Context, userID int64, photos PhotoSource) (*StepResult, error) {
	return m.step(ctx, userID, photos, db.KindFavorite)
}

// Block records the current candidate as blacklisted and moves the cursor.
// An existing favorite decision for the pair is replaced.
func (m *Manager) Block(ctx context.Context, userID int64, photos PhotoSource) (*StepResult, error) {
	return m.step(ctx, userID, photos, db.KindBlacklist)
}

func (m *Manager) step(ctx context.Context, userID int64, photos PhotoSource, kind db.InteractionKind) (*StepResult, error) {
	sess, ok := m.store.Get(userID)
	if !ok {
		return &StepResult{NoSession: true}, nil
	}

	sess.mu.Lock()
	if sess.Cursor >= len(sess.Candidates) {
		sess.mu.Unlock()
		m.store.Delete(userID)
		return &StepResult{Exhausted: true}, nil
	}
	cand := sess.Candidates[sess.Cursor]
	sess.mu.Unlock()

	if err := m.record(ctx, sess.LedgerID, cand, kind); err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.Cursor++
	sess.mu.Unlock()

	res, err := m.current(ctx, sess, photos)
	if err != nil {
		return nil, err
	}
	res.Recorded = true
	return res, nil
}

// record writes the decision row, replacing the opposite decision for
// favorite/blacklist pairs in the same transaction.
func (m *Manager) record(ctx context.Context, ledgerID uint64, cand vk.Candidate, kind db.InteractionKind) error {
	var opposite db.InteractionKind
	switch kind {
	case db.KindFavorite:
		opposite = db.KindBlacklist
	case db.KindBlacklist:
		opposite = db.KindFavorite
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		ledger := repository.NewInteractionRepository(tx)

		if opposite != "" {
			if _, err := ledger.Remove(ctx, ledgerID, cand.ID, opposite); err != nil {
				return err
			}
		}

		_, err := ledger.Record(ctx, db.Interaction{
			UserID:      ledgerID,
			CandidateID: cand.ID,
			Kind:        kind,
			Name:        cand.FirstName + " " + cand.LastName,
			Link:        cand.Link,
			Photos:      vk.AttachmentList(cand.Photos),
		})
		return err
	})
	if err != nil {
		return err
	}

	// Favorite counts are cached for the menu summary; invalidate on change.
	if kind == db.KindFavorite || opposite == db.KindFavorite {
		_ = m.cache.Del(ctx, m.cache.KeyForFavoriteCount(ledgerID))
	}
	return nil
}

func (m *Manager) current(ctx context.Context, sess *Session, photos PhotoSource) (*StepResult, error) {
	sess.mu.Lock()
	if sess.Cursor >= len(sess.Candidates) {
		sess.mu.Unlock()
		m.store.Delete(sess.UserID)
		return &StepResult{Exhausted: true}, nil
	}
	cand := &sess.Candidates[sess.Cursor]
	sess.mu.Unlock()

	if cand.Photos == nil {
		cand.Photos = m.loadPhotos(ctx, cand.ID, photos)
	}

	shown := *cand
	return &StepResult{Candidate: &shown}, nil
}

// loadPhotos consults the cache first, then the directory. Photo failures
// degrade to an empty set; the candidate card is still worth showing.
func (m *Manager) loadPhotos(ctx context.Context, candidateID int64, photos PhotoSource) []vk.Photo {
	if cached, err := m.cache.GetPhotos(ctx, candidateID); err == nil && cached != "" {
		var out []vk.Photo
		if json.Unmarshal([]byte(cached), &out) == nil {
			return out
		}
	}

	fetched, err := photos.FetchPhotos(ctx, candidateID)
	if err != nil {
		m.log.Warn("photo fetch failed", "candidate", candidateID, "err", err)
		return []vk.Photo{}
	}
	if fetched == nil {
		fetched = []vk.Photo{}
	}

	if raw, err := json.Marshal(fetched); err == nil {
		_ = m.cache.SetPhotos(ctx, candidateID, string(raw))
	}
	return fetched
}

// criteriaFrom maps preferences to a directory query; the user's own city
// is the fallback when no override is set.
func criteriaFrom(user *db.User, prefs *db.SearchPreferences) vk.Criteria {
	city := prefs.City
	if city == "" {
		city = user.City
	}
	return vk.Criteria{
		City:     city,
		AgeFrom:  prefs.AgeFrom,
		AgeTo:    prefs.AgeTo,
		Sex:      vk.Sex(prefs.Sex),
		HasPhoto: prefs.HasPhoto,
	}
}
