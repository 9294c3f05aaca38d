package db

import (
	"time"
)

// User is a registered bot user.
//
// VKID is the external directory id and the identity users are addressed by;
// the numeric primary key exists only for foreign keys. AccessToken is the
// directory credential captured by the OAuth callback, empty until the user
// authorizes.
type User struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	VKID        int64  `gorm:"uniqueIndex;not null"`
	FirstName   string `gorm:"size:100"`
	LastName    string `gorm:"size:100"`
	Age         int
	Sex         int    `gorm:"not null;default:0"`
	City        string `gorm:"size:100"`
	AccessToken string `gorm:"size:255"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// ProfileComplete reports whether every mandatory profile field is filled.
func (u *User) ProfileComplete() bool {
	return u.FirstName != "" && u.Age > 0 && u.Sex != 0 && u.City != ""
}

// SearchPreferences is the per-user search criteria, one row per user.
// Sex 0 means "any". Created lazily on first search.
type SearchPreferences struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    uint64 `gorm:"uniqueIndex;not null"`
	Sex       int    `gorm:"not null;default:0"`
	AgeFrom   int    `gorm:"not null;default:18"`
	AgeTo     int    `gorm:"not null;default:45"`
	City      string `gorm:"size:100"`
	HasPhoto  bool   `gorm:"not null;default:true"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

type InteractionKind string

const (
	KindViewed    InteractionKind = "viewed"
	KindFavorite  InteractionKind = "favorite"
	KindBlacklist InteractionKind = "blacklist"
)

// Interaction records one decision a user made about a candidate.
//
// Unique index (user_id, candidate_id, kind) gives the ledger its
// at-most-one-row guarantee. Name, Link and Photos are denormalized from the
// candidate snapshot so listing favorites never re-queries the directory.
type Interaction struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	UserID      uint64          `gorm:"not null;uniqueIndex:idx_user_candidate_kind,priority:1;index:idx_user_kind,priority:1"`
	CandidateID int64           `gorm:"not null;uniqueIndex:idx_user_candidate_kind,priority:2"`
	Kind        InteractionKind `gorm:"size:16;not null;uniqueIndex:idx_user_candidate_kind,priority:3;index:idx_user_kind,priority:2"`
	Name        string          `gorm:"size:200"`
	Link        string          `gorm:"size:255"`
	Photos      string          `gorm:"size:500"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
}

// ConversationState is the durable "where am I in the dialogue" marker.
// Keyed by the external id because a conversation starts before a User row
// exists. Absence of a row means the initial state.
type ConversationState struct {
	VKID      int64  `gorm:"primaryKey;autoIncrement:false"`
	State     string `gorm:"size:64;not null"`
	Payload   string
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
