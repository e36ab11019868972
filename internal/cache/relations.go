package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"news-reread/internal/model"
)

// relations holds the nested rows of one or all articles, keyed by article id.
type relations struct {
	tags      map[int64][]model.Tag
	questions map[int64][]model.Question
	actions   map[int64][]model.Action
}

func (r relations) attach(a model.Article) model.Article {
	a.Tags = r.tags[a.ID]
	a.Questions = r.questions[a.ID]
	a.Actions = r.actions[a.ID]
	return a
}

// loadRelations reads relations for articleID, or for every article when nil.
// It finishes its queries before returning so callers can open another cursor.
func (s *SQLite) loadRelations(ctx context.Context, articleID *int64) (relations, error) {
	where, args := "", []any(nil)
	if articleID != nil {
		where, args = " WHERE article_id = ?", []any{*articleID}
	}

	rel := relations{
		tags:      make(map[int64][]model.Tag),
		questions: make(map[int64][]model.Question),
		actions:   make(map[int64][]model.Action),
	}

	tagWhere := ""
	if articleID != nil {
		tagWhere = " WHERE at.article_id = ?"
	}
	err := s.each(ctx, `SELECT at.article_id, t.id, t.name
		FROM article_tags at JOIN tags t ON t.id = at.tag_id`+tagWhere+`
		ORDER BY t.name, t.id`, args, func(rows *sql.Rows) error {
		var aid int64
		var t model.Tag
		if err := rows.Scan(&aid, &t.ID, &t.Name); err != nil {
			return fmt.Errorf("scan article tag: %w", err)
		}
		rel.tags[aid] = append(rel.tags[aid], t)
		return nil
	})
	if err != nil {
		return relations{}, err
	}

	err = s.each(ctx, `SELECT id, article_id, text, created_at FROM questions`+where+` ORDER BY id`, args,
		func(rows *sql.Rows) error {
			var q model.Question
			var created string
			if err := rows.Scan(&q.ID, &q.ArticleID, &q.Text, &created); err != nil {
				return fmt.Errorf("scan question: %w", err)
			}
			q.CreatedAt = parseTime(created)
			rel.questions[q.ArticleID] = append(rel.questions[q.ArticleID], q)
			return nil
		})
	if err != nil {
		return relations{}, err
	}

	err = s.each(ctx, `SELECT id, article_id, text, is_done, created_at FROM actions`+where+` ORDER BY id`, args,
		func(rows *sql.Rows) error {
			var a model.Action
			var done int
			var created string
			if err := rows.Scan(&a.ID, &a.ArticleID, &a.Text, &done, &created); err != nil {
				return fmt.Errorf("scan action: %w", err)
			}
			a.IsDone = done == 1
			a.CreatedAt = parseTime(created)
			rel.actions[a.ArticleID] = append(rel.actions[a.ArticleID], a)
			return nil
		})
	if err != nil {
		return relations{}, err
	}

	return rel, nil
}

func (s *SQLite) each(ctx context.Context, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query relations: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanArticle(row scannable) (model.Article, error) {
	var a model.Article
	var status, priority, savedAt string
	var isFavorite int
	var title, description, imageURL, memo, summary, lastRead, nextReminder sql.NullString

	err := row.Scan(&a.ID, &a.URL, &title, &description, &imageURL, &status, &isFavorite, &priority,
		&a.ReadCount, &memo, &summary, &savedAt, &lastRead, &a.RepetitionLevel, &nextReminder)
	if err != nil {
		return model.Article{}, fmt.Errorf("scan article: %w", err)
	}

	a.Title = nullString(title)
	a.Description = nullString(description)
	a.ImageURL = nullString(imageURL)
	a.UserMemo = nullString(memo)
	a.UserSummary = nullString(summary)
	a.Status = model.ArticleStatus(status)
	a.IsFavorite = isFavorite == 1
	a.Priority = model.Priority(priority)
	a.SavedAt = parseTime(savedAt)
	if lastRead.Valid {
		t := parseTime(lastRead.String)
		a.LastReadAt = &t
	}
	if nextReminder.Valid {
		if d, err := model.ParseDate(nextReminder.String); err == nil {
			a.NextReminderDate = &d
		}
	}
	return a, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
