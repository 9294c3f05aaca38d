package vk

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sex is the canonical sex encoding, matching the directory wire format.
// 0 doubles as "any" in search criteria and "unknown" on profiles.
type Sex int

const (
	SexAny    Sex = 0
	SexFemale Sex = 1
	SexMale   Sex = 2
)

func (s Sex) String() string {
	switch s {
	case SexFemale:
		return "female"
	case SexMale:
		return "male"
	default:
		return "any"
	}
}

// Photo is one candidate photo with its popularity signal.
type Photo struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	URL     string `json:"url"`
	Likes   int    `json:"likes"`
}

// Attachment returns the messaging attachment descriptor for the photo.
func (p Photo) Attachment() string {
	return fmt.Sprintf("photo%d_%d", p.OwnerID, p.ID)
}

// AttachmentList joins photo descriptors for a single outbound message.
func AttachmentList(photos []Photo) string {
	parts := make([]string, 0, len(photos))
	for _, p := range photos {
		parts = append(parts, p.Attachment())
	}
	return strings.Join(parts, ",")
}

// Candidate is a directory profile snapshot under consideration.
// Photos stay nil until lazily fetched.
type Candidate struct {
	ID           int64
	FirstName    string
	LastName     string
	Age          int // 0 = unknown
	Sex          Sex
	City         string
	Link         string
	Closed       bool // closed profile, skipped regardless of access
	Inaccessible bool // directory explicitly denied access
	Photos       []Photo
}

// Criteria is one directory search query.
type Criteria struct {
	City     string
	AgeFrom  int
	AgeTo    int
	Sex      Sex
	HasPhoto bool
}

// Search sort orders defined by the directory.
const (
	SortPopularity = 0
	SortRecency    = 1
)

// --- wire types ---

type apiError struct {
	Code int    `json:"error_code"`
	Msg  string `json:"error_msg"`
}

type wireCity struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type wireUser struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BDate     string    `json:"bdate"`
	Sex       int       `json:"sex"`
	City      *wireCity `json:"city"`
	IsClosed  bool      `json:"is_closed"`
	// Pointer: an absent field means access, an explicit false means denial.
	CanAccessClosed *bool `json:"can_access_closed"`
}

func (w wireUser) candidate(now time.Time) Candidate {
	c := Candidate{
		ID:           w.ID,
		FirstName:    w.FirstName,
		LastName:     w.LastName,
		Age:          ageFromBDate(w.BDate, now),
		Sex:          Sex(w.Sex),
		Link:         fmt.Sprintf("https://vk.com/id%d", w.ID),
		Closed:       w.IsClosed,
		Inaccessible: w.CanAccessClosed != nil && !*w.CanAccessClosed,
	}
	if w.City != nil {
		c.City = w.City.Title
	}
	return c
}

type searchResponse struct {
	Count int        `json:"count"`
	Items []wireUser `json:"items"`
}

type wirePhotoSize struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type wirePhoto struct {
	ID      int64 `json:"id"`
	OwnerID int64 `json:"owner_id"`
	Likes   struct {
		Count int `json:"count"`
	} `json:"likes"`
	Sizes []wirePhotoSize `json:"sizes"`
}

type photosResponse struct {
	Count int         `json:"count"`
	Items []wirePhoto `json:"items"`
}

// ageFromBDate derives a full-years age from a "d.m.yyyy" birth date.
// Hidden years ("d.m") and malformed dates yield 0.
func ageFromBDate(bdate string, now time.Time) int {
	parts := strings.Split(bdate, ".")
	if len(parts) != 3 {
		return 0
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}

	age := now.Year() - year
	if int(now.Month()) < month || (int(now.Month()) == month && now.Day() < day) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
