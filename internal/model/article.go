package model

import (
	"fmt"
	"time"
)

type ArticleStatus string

const (
	StatusUnread   ArticleStatus = "unread"
	StatusFavorite ArticleStatus = "favorite"
	StatusArchived ArticleStatus = "archived"
)

// Valid reports whether s is one of the workflow stages the service knows.
func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusUnread, StatusFavorite, StatusArchived:
		return true
	}
	return false
}

// ParseStatus converts user input into an ArticleStatus.
func ParseStatus(raw string) (ArticleStatus, error) {
	s := ArticleStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown article status %q", raw)
	}
	return s, nil
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// OrDefault maps the empty priority to medium.
func (p Priority) OrDefault() Priority {
	if p == "" {
		return PriorityMedium
	}
	return p
}

// Article is a saved URL as the service returns it. Status is the workflow
// stage; IsFavorite is an independent toggle.
type Article struct {
	ID               int64         `json:"id"`
	URL              string        `json:"url"`
	Title            *string       `json:"title"`
	Description      *string       `json:"description"`
	ImageURL         *string       `json:"image_url"`
	Status           ArticleStatus `json:"status"`
	IsFavorite       bool          `json:"is_favorite"`
	Priority         Priority      `json:"priority"`
	ReadCount        int           `json:"read_count"`
	UserMemo         *string       `json:"user_memo"`
	UserSummary      *string       `json:"user_summary"`
	SavedAt          time.Time     `json:"saved_at"`
	LastReadAt       *time.Time    `json:"last_read_at"`
	RepetitionLevel  int           `json:"repetition_level"`
	NextReminderDate *Date         `json:"next_reminder_date"`
	Tags             []Tag         `json:"tags"`
	Questions        []Question    `json:"questions"`
	Actions          []Action      `json:"actions"`
}

// DisplayTitle falls back to the URL when the service has not extracted a title yet.
func (a Article) DisplayTitle() string {
	if a.Title != nil && *a.Title != "" {
		return *a.Title
	}
	return a.URL
}

// ReminderDue reports whether the article's next review date has arrived.
func (a Article) ReminderDue(now time.Time) bool {
	if a.NextReminderDate == nil {
		return false
	}
	return !a.NextReminderDate.After(DateOf(now))
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Question struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"article"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Action struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"article"`
	Text      string    `json:"text"`
	IsDone    bool      `json:"is_done"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenPair is the access/refresh credential pair issued by the auth endpoints.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// ArticleQuery holds the list constraints accepted by the articles endpoint.
// Nil fields are not sent.
type ArticleQuery struct {
	Query      string
	Status     *ArticleStatus
	TagID      *int64
	IsFavorite *bool
}

type CreateArticleRequest struct {
	URL      string         `json:"url"`
	Status   *ArticleStatus `json:"status,omitempty"`
	UserMemo *string        `json:"user_memo,omitempty"`
	TagIDs   []int64        `json:"tag_ids,omitempty"`
}

// UpdateArticleRequest is a partial update; nil fields are left untouched.
type UpdateArticleRequest struct {
	Status     *ArticleStatus `json:"status,omitempty"`
	IsFavorite *bool          `json:"is_favorite,omitempty"`
	UserMemo   *string        `json:"user_memo,omitempty"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
