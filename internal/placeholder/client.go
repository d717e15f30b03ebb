// Package placeholder はJSONPlaceholder互換REST APIのクライアントを提供する。
// 各コレクションを1回のGETで全件取得する。リトライは行わない。
package placeholder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/albumdeck/internal/metrics"
	"github.com/hitoshi/albumdeck/internal/model"
)

const (
	// DefaultBaseURL は公開JSONPlaceholderのベースURL。
	DefaultBaseURL = "https://jsonplaceholder.typicode.com"
	// defaultMaxResponseSize はレスポンスボディの上限（20MB）。
	defaultMaxResponseSize = 20 << 20
)

// TextSanitizer は表示用テキストを無害化する。
type TextSanitizer interface {
	PlainText(raw string) string
}

// Client はプレースホルダーAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	maxSize    int64
	sanitizer  TextSanitizer
	metrics    metrics.MetricsCollector
}

// Option はClientの任意設定。
type Option func(*Client)

// WithSanitizer は取得したテキストフィールドに適用するサニタイザーを設定する。
func WithSanitizer(s TextSanitizer) Option {
	return func(c *Client) { c.sanitizer = s }
}

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithMaxResponseSize はレスポンスボディの上限バイト数を設定する。
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// NewClient はClientを生成する。baseURLが空の場合は公開APIを使う。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxSize:    defaultMaxResponseSize,
		metrics:    metrics.NopCollector{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchUsers は /users を取得する。
func (c *Client) FetchUsers(ctx context.Context) ([]model.User, error) {
	users, err := fetchList[model.User](ctx, c, model.ResourceUsers)
	if err != nil {
		return nil, err
	}
	if c.sanitizer != nil {
		for i := range users {
			u := &users[i]
			u.Name = c.sanitizer.PlainText(u.Name)
			u.Username = c.sanitizer.PlainText(u.Username)
			u.Email = c.sanitizer.PlainText(u.Email)
			u.Phone = c.sanitizer.PlainText(u.Phone)
			u.Website = c.sanitizer.PlainText(u.Website)
			u.Address.Street = c.sanitizer.PlainText(u.Address.Street)
			u.Address.Suite = c.sanitizer.PlainText(u.Address.Suite)
			u.Address.City = c.sanitizer.PlainText(u.Address.City)
			u.Address.Zipcode = c.sanitizer.PlainText(u.Address.Zipcode)
		}
	}
	return users, nil
}

// FetchAlbums は /albums を取得する。
func (c *Client) FetchAlbums(ctx context.Context) ([]model.Album, error) {
	albums, err := fetchList[model.Album](ctx, c, model.ResourceAlbums)
	if err != nil {
		return nil, err
	}
	if c.sanitizer != nil {
		for i := range albums {
			albums[i].Title = c.sanitizer.PlainText(albums[i].Title)
		}
	}
	return albums, nil
}

// FetchPhotos は /photos を取得する。
func (c *Client) FetchPhotos(ctx context.Context) ([]model.Photo, error) {
	photos, err := fetchList[model.Photo](ctx, c, model.ResourcePhotos)
	if err != nil {
		return nil, err
	}
	if c.sanitizer != nil {
		for i := range photos {
			photos[i].Title = c.sanitizer.PlainText(photos[i].Title)
		}
	}
	return photos, nil
}

// fetchList はコレクションを取得してJSON配列としてデコードする。
// 失敗の原因は区別せず、すべて*model.FetchFailureとして返す。
func fetchList[T any](ctx context.Context, c *Client, resource model.Resource) (items []T, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeFailure
		}
		c.metrics.RecordRemoteFetch(string(resource), outcome, time.Since(start))
	}()

	fail := func(cause error) ([]T, error) {
		return nil, &model.FetchFailure{Resource: resource, Cause: cause}
	}

	reqURL := c.baseURL + "/" + string(resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fail(fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Albumdeck/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("プレースホルダーAPIの呼び出しに失敗しました",
			slog.String("resource", string(resource)),
			slog.String("error", err.Error()),
		)
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("プレースホルダーAPIがエラーステータスを返しました",
			slog.String("resource", string(resource)),
			slog.Int("http_status", resp.StatusCode),
		)
		return fail(fmt.Errorf("プレースホルダーAPIがステータス %d を返しました", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("resource", string(resource)),
			slog.String("error", err.Error()),
		)
		return fail(fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err))
	}
	if int64(len(body)) > c.maxSize {
		c.logger.Error("レスポンスサイズが上限を超えました",
			slog.String("resource", string(resource)),
			slog.Int64("max_size", c.maxSize),
		)
		return fail(fmt.Errorf("レスポンスサイズが上限 %d バイトを超えました", c.maxSize))
	}

	if err := json.Unmarshal(body, &items); err != nil {
		c.logger.Error("プレースホルダーAPIのレスポンスのパースに失敗しました",
			slog.String("resource", string(resource)),
			slog.String("error", err.Error()),
		)
		return fail(fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err))
	}
	if items == nil {
		items = []T{}
	}

	c.logger.Debug("プレースホルダーAPIから取得しました",
		slog.String("resource", string(resource)),
		slog.Int("count", len(items)),
	)
	return items, nil
}
