package repository

import (
	"context"

	"news-reread/internal/model"
)

// remoteSource serves calls from the service and refreshes the cache from
// whatever it returns.
type remoteSource struct {
	r *Repository
}

func (s remoteSource) listArticles(ctx context.Context, q model.ArticleQuery) ([]model.Article, error) {
	articles, err := s.r.remote.ListArticles(ctx, q)
	if err != nil {
		return nil, err
	}
	s.r.writeThrough(ctx, articles...)
	return articles, nil
}

func (s remoteSource) getArticle(ctx context.Context, id int64) (model.Article, error) {
	return s.single(ctx, func() (model.Article, error) { return s.r.remote.GetArticle(ctx, id) })
}

func (s remoteSource) createArticle(ctx context.Context, req model.CreateArticleRequest) (model.Article, error) {
	return s.single(ctx, func() (model.Article, error) { return s.r.remote.CreateArticle(ctx, req) })
}

func (s remoteSource) updateArticle(ctx context.Context, id int64, req model.UpdateArticleRequest) (model.Article, error) {
	return s.single(ctx, func() (model.Article, error) { return s.r.remote.UpdateArticle(ctx, id, req) })
}

func (s remoteSource) markAsRead(ctx context.Context, id int64) (model.Article, error) {
	return s.single(ctx, func() (model.Article, error) { return s.r.remote.MarkAsRead(ctx, id) })
}

func (s remoteSource) randomArticle(ctx context.Context) (model.Article, error) {
	return s.single(ctx, func() (model.Article, error) { return s.r.remote.RandomArticle(ctx) })
}

func (s remoteSource) deleteArticle(ctx context.Context, id int64) error {
	if err := s.r.remote.DeleteArticle(ctx, id); err != nil {
		return err
	}
	s.r.evict(ctx, id)
	return nil
}

func (s remoteSource) reminders(ctx context.Context) ([]model.Article, error) {
	articles, err := s.r.remote.Reminders(ctx)
	if err != nil {
		return nil, err
	}
	s.r.writeThrough(ctx, articles...)
	return articles, nil
}

func (s remoteSource) listTags(ctx context.Context) ([]model.Tag, error) {
	return s.r.remote.ListTags(ctx)
}

func (s remoteSource) createTag(ctx context.Context, name string) (model.Tag, error) {
	return s.r.remote.CreateTag(ctx, name)
}

func (s remoteSource) single(ctx context.Context, call func() (model.Article, error)) (model.Article, error) {
	a, err := call()
	if err != nil {
		return model.Article{}, err
	}
	s.r.writeThrough(ctx, a)
	return a, nil
}
