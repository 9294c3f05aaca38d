package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kamaqiyasov/vkinder/internal/db"
)

// LedgerPageSize is how many ledger rows one listing page holds.
const LedgerPageSize = 5

// InteractionRepository is the durable ledger of per-user decisions about
// candidates. It stays a dumb store: the favorite/blacklist mutual-exclusion
// policy is enforced by the session manager, not here.
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a repository bound to the given DB
// connection (or transaction).
func NewInteractionRepository(database *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: database}
}

// Record inserts one decision row. Re-recording the same
// (user, candidate, kind) is a no-op; created reports whether a new row was
// written.
func (r *InteractionRepository) Record(ctx context.Context, inter db.Interaction) (created bool, err error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&inter)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Exists reports whether the decision row is present.
func (r *InteractionRepository) Exists(ctx context.Context, userID uint64, candidateID int64, kind db.InteractionKind) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("user_id = ? AND candidate_id = ? AND kind = ?", userID, candidateID, kind).
		Count(&count).Error
	return count > 0, err
}

// Remove deletes the decision row; removed reports whether it existed.
func (r *InteractionRepository) Remove(ctx context.Context, userID uint64, candidateID int64, kind db.InteractionKind) (removed bool, err error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND candidate_id = ? AND kind = ?", userID, candidateID, kind).
		Delete(&db.Interaction{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemoveAll deletes every row of one kind for a user, returning how many
// rows went away.
func (r *InteractionRepository) RemoveAll(ctx context.Context, userID uint64, kind db.InteractionKind) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		Delete(&db.Interaction{})
	return res.RowsAffected, res.Error
}

// Count returns the number of rows of one kind for a user.
func (r *InteractionRepository) Count(ctx context.Context, userID uint64, kind db.InteractionKind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Count(&count).Error
	return count, err
}

// List returns one page of decisions of a kind, newest first, plus the total
// page count (ceil of count over LedgerPageSize). Pages are zero-based.
func (r *InteractionRepository) List(ctx context.Context, userID uint64, kind db.InteractionKind, page int) ([]db.Interaction, int, error) {
	count, err := r.Count(ctx, userID, kind)
	if err != nil {
		return nil, 0, err
	}
	totalPages := int((count + LedgerPageSize - 1) / LedgerPageSize)

	var items []db.Interaction
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		Order("created_at DESC, id DESC").
		Offset(page * LedgerPageSize).
		Limit(LedgerPageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, totalPages, nil
}

// ExcludedIDs returns the distinct candidate ids the user has any decision
// about, regardless of kind. This is the ledger's half of the exclusion set.
func (r *InteractionRepository) ExcludedIDs(ctx context.Context, userID uint64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Distinct("candidate_id").
		Where("user_id = ?", userID).
		Pluck("candidate_id", &ids).Error
	return ids, err
}
