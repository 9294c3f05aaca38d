package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedTestData resets the database and populates it with demo users,
// preferences and a few ledger rows.
//
// Behavior:
//  1. Clears interactions, preferences, states and users.
//  2. Creates 20 users (10 male, 10 female) split across two cities.
//  3. Gives each user default search preferences aimed at the opposite sex.
//  4. Records a handful of viewed/favorite interactions per user.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(database *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"interactions", "search_preferences", "conversation_states", "users"} {
		if err := database.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch database.Dialector.Name() {
	case "mysql":
		database.Exec("ALTER TABLE interactions AUTO_INCREMENT = 1")
		database.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		database.Exec("DELETE FROM sqlite_sequence WHERE name IN ('interactions', 'users')")
	}

	log.Println("Cleared existing data")

	cities := []string{"Springfield", "Shelbyville"}

	for i := 1; i <= 20; i++ {
		sex := 2
		if i > 10 {
			sex = 1
		}

		user := User{
			VKID:      int64(100000 + i),
			FirstName: fmt.Sprintf("demo%d", i),
			LastName:  "User",
			Age:       20 + r.Intn(20),
			Sex:       sex,
			City:      cities[i%2],
		}
		if err := database.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		wantSex := 1
		if sex == 1 {
			wantSex = 2
		}
		prefs := SearchPreferences{
			UserID:   user.ID,
			Sex:      wantSex,
			AgeFrom:  18,
			AgeTo:    45,
			City:     user.City,
			HasPhoto: true,
		}
		if err := database.Create(&prefs).Error; err != nil {
			return fmt.Errorf("failed to seed preferences: %w", err)
		}
	}
	log.Println("Seeded 20 users with preferences.")

	// A few decisions so the exclusion set is never empty in dev.
	var users []User
	if err := database.Find(&users).Error; err != nil {
		return err
	}
	for _, u := range users {
		for j := 0; j < 5; j++ {
			candidateID := int64(900000 + r.Intn(200))
			kind := KindViewed
			if j == 0 {
				kind = KindFavorite
			}

			inter := Interaction{
				UserID:      u.ID,
				CandidateID: candidateID,
				Kind:        kind,
				Name:        fmt.Sprintf("Candidate %d", candidateID),
				Link:        fmt.Sprintf("https://vk.com/id%d", candidateID),
			}
			err := database.Clauses(clause.OnConflict{DoNothing: true}).Create(&inter).Error
			if err != nil {
				return fmt.Errorf("failed to seed interaction: %w", err)
			}
		}
	}

	return nil
}
