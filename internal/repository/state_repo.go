package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kamaqiyasov/vkinder/internal/db"
)

// StateRepository persists the per-user conversation state: one row per
// external id, absence meaning the initial state.
type StateRepository struct {
	db *gorm.DB
}

// NewStateRepository creates a repository bound to the given DB connection
// (or transaction).
func NewStateRepository(database *gorm.DB) *StateRepository {
	return &StateRepository{db: database}
}

// Get returns the state name and payload JSON, or ("", "") when no row
// exists.
func (r *StateRepository) Get(ctx context.Context, vkID int64) (state, payload string, err error) {
	var row db.ConversationState
	err = r.db.WithContext(ctx).Where("vk_id = ?", vkID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	return row.State, row.Payload, nil
}

// Set overwrites the user's state row.
func (r *StateRepository) Set(ctx context.Context, vkID int64, state, payload string) error {
	row := db.ConversationState{VKID: vkID, State: state, Payload: payload}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vk_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "payload"}),
		}).
		Create(&row).Error
}

// Clear removes the user's state row, returning them to the initial state.
func (r *StateRepository) Clear(ctx context.Context, vkID int64) error {
	return r.db.WithContext(ctx).
		Where("vk_id = ?", vkID).
		Delete(&db.ConversationState{}).Error
}
