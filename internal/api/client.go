// Package api is the JSON HTTP client for the read-it-later service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"news-reread/internal/model"
)

type anonymousKey struct{}

// Anonymous marks ctx so that credentials are neither attached nor refreshed
// for requests made with it.
func Anonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

// IsAnonymous reports whether req was issued for an auth endpoint.
func IsAnonymous(req *http.Request) bool {
	v, _ := req.Context().Value(anonymousKey{}).(bool)
	return v
}

type Option func(*Client)

// WithRateLimit throttles outbound requests to r per second with the given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		if r <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a client rooted at baseURL (for example "http://localhost:8000/api/").
// The transport of httpClient decides how credentials are handled.
func New(baseURL string, httpClient *http.Client, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	c := &Client{
		baseURL:    u,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		c.logger.Debug("Remote call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &HTTPError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: b}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func articlePath(id int64, suffix string) string {
	return "articles/" + strconv.FormatInt(id, 10) + "/" + suffix
}

func (c *Client) ListArticles(ctx context.Context, q model.ArticleQuery) ([]model.Article, error) {
	params := url.Values{}
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if q.Status != nil {
		params.Set("status", string(*q.Status))
	}
	if q.TagID != nil {
		params.Set("tag_id", strconv.FormatInt(*q.TagID, 10))
	}
	if q.IsFavorite != nil {
		params.Set("is_favorite", strconv.FormatBool(*q.IsFavorite))
	}

	var articles []model.Article
	if err := c.do(ctx, http.MethodGet, "articles/", params, nil, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (c *Client) CreateArticle(ctx context.Context, req model.CreateArticleRequest) (model.Article, error) {
	var a model.Article
	err := c.do(ctx, http.MethodPost, "articles/", nil, req, &a)
	return a, err
}

func (c *Client) GetArticle(ctx context.Context, id int64) (model.Article, error) {
	var a model.Article
	err := c.do(ctx, http.MethodGet, articlePath(id, ""), nil, nil, &a)
	return a, err
}

func (c *Client) UpdateArticle(ctx context.Context, id int64, req model.UpdateArticleRequest) (model.Article, error) {
	var a model.Article
	err := c.do(ctx, http.MethodPatch, articlePath(id, ""), nil, req, &a)
	return a, err
}

func (c *Client) DeleteArticle(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, articlePath(id, ""), nil, nil, nil)
}

func (c *Client) MarkAsRead(ctx context.Context, id int64) (model.Article, error) {
	var a model.Article
	err := c.do(ctx, http.MethodPost, articlePath(id, "mark_as_read/"), nil, nil, &a)
	return a, err
}

func (c *Client) Reminders(ctx context.Context) ([]model.Article, error) {
	var articles []model.Article
	if err := c.do(ctx, http.MethodGet, "articles/reminders/", nil, nil, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (c *Client) RandomArticle(ctx context.Context) (model.Article, error) {
	var a model.Article
	err := c.do(ctx, http.MethodGet, "articles/random_pickup/", nil, nil, &a)
	return a, err
}

func (c *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	if err := c.do(ctx, http.MethodGet, "tags/", nil, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (c *Client) CreateTag(ctx context.Context, name string) (model.Tag, error) {
	var tag model.Tag
	err := c.do(ctx, http.MethodPost, "tags/", nil, map[string]string{"name": name}, &tag)
	return tag, err
}

func (c *Client) Register(ctx context.Context, username, email, password string) (model.User, error) {
	req := model.RegisterRequest{
		Username:  username,
		Email:     email,
		Password:  password,
		Password2: password,
	}
	var u model.User
	err := c.do(Anonymous(ctx), http.MethodPost, "auth/register/", nil, req, &u)
	return u, err
}

func (c *Client) Login(ctx context.Context, username, password string) (model.TokenPair, error) {
	var pair model.TokenPair
	body := map[string]string{"username": username, "password": password}
	err := c.do(Anonymous(ctx), http.MethodPost, "auth/token/", nil, body, &pair)
	return pair, err
}

// RefreshToken exchanges refresh for a new pair. The old refresh token is
// consumed by the server.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (model.TokenPair, error) {
	var pair model.TokenPair
	body := map[string]string{"refresh": refresh}
	if err := c.do(Anonymous(ctx), http.MethodPost, "auth/token/refresh/", nil, body, &pair); err != nil {
		return model.TokenPair{}, err
	}
	// Servers without rotation answer with the access token only.
	if pair.Refresh == "" {
		pair.Refresh = refresh
	}
	return pair, nil
}

func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodGet, "auth/user/", nil, nil, &u)
	return u, err
}
