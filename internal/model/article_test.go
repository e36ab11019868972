package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticle_DecodeServerPayload(t *testing.T) {
	payload := `{
		"id": 7,
		"url": "https://example.com/a",
		"title": "A",
		"description": null,
		"image_url": null,
		"status": "unread",
		"is_favorite": true,
		"priority": "high",
		"read_count": 3,
		"user_memo": "memo",
		"user_summary": null,
		"saved_at": "2024-05-01T09:30:00.123456+09:00",
		"last_read_at": null,
		"repetition_level": 2,
		"next_reminder_date": "2024-05-08",
		"tags": [{"id": 1, "name": "go"}],
		"questions": [{"id": 10, "article": 7, "text": "why?", "created_at": "2024-05-01T10:00:00Z"}],
		"actions": [{"id": 20, "article": 7, "text": "try it", "is_done": false, "created_at": "2024-05-01T10:00:00Z"}],
		"extra_server_field": 1
	}`

	var a Article
	require.NoError(t, json.Unmarshal([]byte(payload), &a))

	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, "A", a.DisplayTitle())
	assert.Nil(t, a.Description)
	assert.Equal(t, StatusUnread, a.Status)
	assert.True(t, a.IsFavorite)
	assert.Equal(t, PriorityHigh, a.Priority)
	require.NotNil(t, a.NextReminderDate)
	assert.Equal(t, "2024-05-08", a.NextReminderDate.String())
	assert.Equal(t, []Tag{{ID: 1, Name: "go"}}, a.Tags)
	assert.Equal(t, int64(7), a.Questions[0].ArticleID)
	assert.False(t, a.Actions[0].IsDone)
}

func TestUpdateArticleRequest_OmitsNilFields(t *testing.T) {
	b, err := json.Marshal(UpdateArticleRequest{IsFavorite: Ptr(false)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_favorite": false}`, string(b))
}

func TestArticle_ReminderDue(t *testing.T) {
	now := time.Date(2024, 5, 8, 18, 0, 0, 0, time.UTC)
	due, _ := ParseDate("2024-05-08")
	later, _ := ParseDate("2024-05-09")

	assert.True(t, Article{NextReminderDate: &due}.ReminderDue(now))
	assert.False(t, Article{NextReminderDate: &later}.ReminderDue(now))
	assert.False(t, Article{}.ReminderDue(now))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("archived")
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, s)

	_, err = ParseStatus("deleted")
	assert.Error(t, err)
}

func TestDisplayTitle_FallsBackToURL(t *testing.T) {
	a := Article{URL: "https://example.com", Title: Ptr("")}
	assert.Equal(t, "https://example.com", a.DisplayTitle())
}
