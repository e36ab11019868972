// Package share turns text handed over by another app into a pending save
// the user confirms or discards.
package share

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"news-reread/internal/metrics"
	"news-reread/internal/model"
	"news-reread/internal/store"
)

var ErrNoURL = errors.New("shared text contains no http(s) URL")

const defaultPendingLimit = 50

// Share actions counted by metrics.
const (
	actionReceived  = "received"
	actionConfirmed = "confirmed"
	actionDiscarded = "discarded"
)

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s<>"']+`)

// ArticleCreator saves a URL as an article.
type ArticleCreator interface {
	CreateArticle(ctx context.Context, req model.CreateArticleRequest) (model.Article, error)
}

type Service struct {
	inbox    store.ShareInbox
	articles ArticleCreator
	logger   *zap.Logger
	metric   *metrics.Metrics
}

func NewService(inbox store.ShareInbox, articles ArticleCreator, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{inbox: inbox, articles: articles, logger: logger, metric: m}
}

// ExtractURL returns the first absolute http(s) URL in text. Trailing
// sentence punctuation is not part of the URL.
func ExtractURL(text string) (string, error) {
	for _, candidate := range urlPattern.FindAllString(text, -1) {
		candidate = strings.TrimRight(candidate, ".,;:!?)]}")
		u, err := url.Parse(candidate)
		if err != nil || u.Host == "" {
			continue
		}
		return candidate, nil
	}
	return "", ErrNoURL
}

// Receive stores text as a pending share and queues it for a preview.
func (s *Service) Receive(ctx context.Context, text string) (*model.PendingShare, error) {
	rawURL, err := ExtractURL(text)
	if err != nil {
		return nil, err
	}

	sh := model.NewPendingShare(rawURL, strings.TrimSpace(text))
	if err := s.inbox.Save(ctx, &sh); err != nil {
		return nil, fmt.Errorf("save pending share: %w", err)
	}
	s.metric.Share(actionReceived)
	s.logger.Info("Share received", zap.String("share_id", sh.ID.String()), zap.String("url", rawURL))
	return &sh, nil
}

// Pending lists waiting shares, newest first.
func (s *Service) Pending(ctx context.Context, limit int) ([]model.PendingShare, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	return s.inbox.List(ctx, limit)
}

// Confirm saves the share's URL as an article and drops the prompt. The
// prompt stays when saving fails.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (model.Article, error) {
	sh, err := s.inbox.Get(ctx, id)
	if err != nil {
		return model.Article{}, err
	}

	a, err := s.articles.CreateArticle(ctx, model.CreateArticleRequest{URL: sh.URL})
	if err != nil {
		return model.Article{}, err
	}

	if err := s.inbox.Remove(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("Saved article but could not clear share", zap.String("share_id", id.String()), zap.Error(err))
	}
	s.metric.Share(actionConfirmed)
	return a, nil
}

func (s *Service) Discard(ctx context.Context, id uuid.UUID) error {
	if err := s.inbox.Remove(ctx, id); err != nil {
		return err
	}
	s.metric.Share(actionDiscarded)
	return nil
}
