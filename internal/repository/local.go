package repository

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"news-reread/internal/cache"
	"news-reread/internal/model"
)

// localSource serves reads from the cache. Storage failures degrade to empty
// results; anything that needs the server is refused.
type localSource struct {
	r *Repository
}

// listArticles returns the whole cached set; q is not applied locally.
func (s localSource) listArticles(ctx context.Context, _ model.ArticleQuery) ([]model.Article, error) {
	articles, err := s.r.cache.ListArticles(ctx)
	if err != nil {
		s.r.logger.Warn("Failed to read cached articles", zap.Error(err))
		return []model.Article{}, nil
	}
	return articles, nil
}

func (s localSource) getArticle(ctx context.Context, id int64) (model.Article, error) {
	a, err := s.r.cache.GetArticle(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.r.logger.Warn("Failed to read cached article", zap.Int64("article_id", id), zap.Error(err))
		}
		return model.Article{}, ErrNotFound
	}
	return a, nil
}

func (s localSource) reminders(ctx context.Context) ([]model.Article, error) {
	articles, _ := s.listArticles(ctx, model.ArticleQuery{})
	now := time.Now()
	due := []model.Article{}
	for _, a := range articles {
		if a.ReminderDue(now) {
			due = append(due, a)
		}
	}
	return due, nil
}

func (s localSource) randomArticle(ctx context.Context) (model.Article, error) {
	articles, _ := s.listArticles(ctx, model.ArticleQuery{})
	if len(articles) == 0 {
		return model.Article{}, ErrNotFound
	}
	return articles[rand.IntN(len(articles))], nil
}

func (s localSource) listTags(ctx context.Context) ([]model.Tag, error) {
	tags, err := s.r.cache.ListTags(ctx)
	if err != nil {
		s.r.logger.Warn("Failed to read cached tags", zap.Error(err))
		return []model.Tag{}, nil
	}
	return tags, nil
}

func (localSource) createArticle(context.Context, model.CreateArticleRequest) (model.Article, error) {
	return model.Article{}, ErrUnsupportedInLocalMode
}

func (localSource) updateArticle(context.Context, int64, model.UpdateArticleRequest) (model.Article, error) {
	return model.Article{}, ErrUnsupportedInLocalMode
}

func (localSource) deleteArticle(context.Context, int64) error {
	return ErrUnsupportedInLocalMode
}

func (localSource) markAsRead(context.Context, int64) (model.Article, error) {
	return model.Article{}, ErrUnsupportedInLocalMode
}

func (localSource) createTag(context.Context, string) (model.Tag, error) {
	return model.Tag{}, ErrUnsupportedInLocalMode
}
