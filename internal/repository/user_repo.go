package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kamaqiyasov/vkinder/internal/db"
)

// UserRepository provides data access for User and SearchPreferences rows.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a repository bound to the given DB connection
// (or transaction).
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetByVKID returns the user with the given external id, or nil if absent.
func (r *UserRepository) GetByVKID(ctx context.Context, vkID int64) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Where("vk_id = ?", vkID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert inserts the user or updates the profile fields of the existing row
// with the same external id.
func (r *UserRepository) Upsert(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vk_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"first_name", "last_name", "age", "sex", "city",
			}),
		}).
		Create(user).Error
}

// UpdateProfile patches single profile fields (edit flow).
func (r *UserRepository) UpdateProfile(ctx context.Context, vkID int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("vk_id = ?", vkID).
		Updates(updates).Error
}

// SetToken stores the captured directory access token for the user,
// creating a stub row when the user has not registered yet.
func (r *UserRepository) SetToken(ctx context.Context, vkID int64, token string) error {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("vk_id = ?", vkID).
		Update("access_token", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&db.User{VKID: vkID, AccessToken: token}).Error
}

// GetToken returns the stored access token, or "" if absent.
func (r *UserRepository) GetToken(ctx context.Context, vkID int64) (string, error) {
	var user db.User
	err := r.db.WithContext(ctx).
		Select("access_token").
		Where("vk_id = ?", vkID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return user.AccessToken, nil
}

// GetOrCreatePreferences returns the user's search preferences, creating the
// defaults lazily on first use.
func (r *UserRepository) GetOrCreatePreferences(ctx context.Context, userID uint64) (*db.SearchPreferences, error) {
	var prefs db.SearchPreferences
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	if err == nil {
		return &prefs, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prefs = db.SearchPreferences{
		UserID:   userID,
		Sex:      0,
		AgeFrom:  18,
		AgeTo:    45,
		HasPhoto: true,
	}
	if err := r.db.WithContext(ctx).Create(&prefs).Error; err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpdatePreferences patches single preference fields (settings flow).
func (r *UserRepository) UpdatePreferences(ctx context.Context, userID uint64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&db.SearchPreferences{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}
