// Package cache is the on-device replica of the articles the service last
// returned. It is never authoritative.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"news-reread/internal/model"
	"news-reread/migrations"
)

var ErrNotFound = errors.New("article not cached")

// Fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite implements the local cache backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// UpsertArticles replaces the rows for articles and everything nested in them
// in one transaction. Rows and links absent from the batch are left alone.
func (s *SQLite) UpsertArticles(ctx context.Context, articles []model.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seenTags := make(map[int64]bool)
	seenQuestions := make(map[int64]bool)
	seenActions := make(map[int64]bool)

	for _, a := range articles {
		if err := upsertArticle(ctx, tx, a); err != nil {
			return err
		}
		for _, tag := range a.Tags {
			if !seenTags[tag.ID] {
				seenTags[tag.ID] = true
				if _, err := tx.ExecContext(ctx,
					`INSERT OR REPLACE INTO tags (id, name) VALUES (?, ?)`, tag.ID, tag.Name,
				); err != nil {
					return fmt.Errorf("upsert tag %d: %w", tag.ID, err)
				}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO article_tags (article_id, tag_id) VALUES (?, ?)`, a.ID, tag.ID,
			); err != nil {
				return fmt.Errorf("link tag %d to article %d: %w", tag.ID, a.ID, err)
			}
		}
		for _, q := range a.Questions {
			if seenQuestions[q.ID] {
				continue
			}
			seenQuestions[q.ID] = true
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO questions (id, article_id, text, created_at) VALUES (?, ?, ?, ?)`,
				q.ID, a.ID, q.Text, formatTime(q.CreatedAt),
			); err != nil {
				return fmt.Errorf("upsert question %d: %w", q.ID, err)
			}
		}
		for _, act := range a.Actions {
			if seenActions[act.ID] {
				continue
			}
			seenActions[act.ID] = true
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO actions (id, article_id, text, is_done, created_at) VALUES (?, ?, ?, ?, ?)`,
				act.ID, a.ID, act.Text, boolToInt(act.IsDone), formatTime(act.CreatedAt),
			); err != nil {
				return fmt.Errorf("upsert action %d: %w", act.ID, err)
			}
		}
	}

	return tx.Commit()
}

func upsertArticle(ctx context.Context, tx *sql.Tx, a model.Article) error {
	var lastRead, nextReminder *string
	if a.LastReadAt != nil {
		v := formatTime(*a.LastReadAt)
		lastRead = &v
	}
	if a.NextReminderDate != nil {
		v := a.NextReminderDate.String()
		nextReminder = &v
	}
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO articles (
			id, url, title, description, image_url, status, is_favorite, priority, read_count,
			user_memo, user_summary, saved_at, last_read_at, repetition_level, next_reminder_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.URL, a.Title, a.Description, a.ImageURL, string(a.Status), boolToInt(a.IsFavorite),
		string(a.Priority.OrDefault()), a.ReadCount, a.UserMemo, a.UserSummary, formatTime(a.SavedAt),
		lastRead, a.RepetitionLevel, nextReminder,
	)
	if err != nil {
		return fmt.Errorf("upsert article %d: %w", a.ID, err)
	}
	return nil
}

const articleColumns = `id, url, title, description, image_url, status, is_favorite, priority, read_count,
	user_memo, user_summary, saved_at, last_read_at, repetition_level, next_reminder_date`

// Articles lazily yields every cached article with its tags, questions and
// actions populated, newest first. Iteration stops at the first error.
func (s *SQLite) Articles(ctx context.Context) iter.Seq2[model.Article, error] {
	return func(yield func(model.Article, error) bool) {
		rel, err := s.loadRelations(ctx, nil)
		if err != nil {
			yield(model.Article{}, err)
			return
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT `+articleColumns+` FROM articles ORDER BY saved_at DESC, id DESC`)
		if err != nil {
			yield(model.Article{}, fmt.Errorf("query articles: %w", err))
			return
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			a, err := scanArticle(rows)
			if err != nil {
				yield(model.Article{}, err)
				return
			}
			if !yield(rel.attach(a), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Article{}, fmt.Errorf("iterate articles: %w", err))
		}
	}
}

// ListArticles collects Articles.
func (s *SQLite) ListArticles(ctx context.Context) ([]model.Article, error) {
	var articles []model.Article
	for a, err := range s.Articles(ctx) {
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// GetArticle returns one cached article with its relations.
func (s *SQLite) GetArticle(ctx context.Context, id int64) (model.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Article{}, ErrNotFound
	}
	if err != nil {
		return model.Article{}, err
	}

	rel, err := s.loadRelations(ctx, &id)
	if err != nil {
		return model.Article{}, err
	}
	return rel.attach(a), nil
}

// ListTags returns every cached tag ordered by name.
func (s *SQLite) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// DeleteArticle removes an article together with the rows it owns. Tags stay.
func (s *SQLite) DeleteArticle(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM article_tags WHERE article_id = ?`, id); err != nil {
		return fmt.Errorf("delete article_tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE article_id = ?`, id); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM actions WHERE article_id = ?`, id); err != nil {
		return fmt.Errorf("delete actions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return tx.Commit()
}

// Counts reports the number of rows per table.
type Counts struct {
	Articles    int
	Tags        int
	ArticleTags int
	Questions   int
	Actions     int
}

func (s *SQLite) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM articles),
		(SELECT COUNT(*) FROM tags),
		(SELECT COUNT(*) FROM article_tags),
		(SELECT COUNT(*) FROM questions),
		(SELECT COUNT(*) FROM actions)`,
	).Scan(&c.Articles, &c.Tags, &c.ArticleTags, &c.Questions, &c.Actions)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}
