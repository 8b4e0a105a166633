package rewardclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"reward-core/pkg/errno"
	"reward-core/pkg/logger"
	"reward-core/pkg/monitor"
	"reward-core/pkg/session"
)

// DefaultMaxBodyBytes caps decoded JSON responses. Streamed exports are not capped.
const DefaultMaxBodyBytes = 10 << 20

// error bodies are only mined for a message
const maxErrorBodyBytes = 64 << 10

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration // 0 = no client side timeout
	MaxRetries int           // extra attempts for reads, never for writes
	RetryDelay time.Duration
	// MaxBodyBytes caps JSON responses; 0 = DefaultMaxBodyBytes
	MaxBodyBytes int64
	Store        session.Store
	// OnUnauthorized runs after a 401 cleared the stored credentials.
	OnUnauthorized func()
	HTTPClient     *http.Client
}

// Client talks to the Global Classrooms admin REST API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	retryDelay     time.Duration
	maxBody        int64
	store          session.Store
	onUnauthorized func()
}

// NewClient creates a new admin API client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Client{
		baseURL:        strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient:     httpClient,
		maxRetries:     retries,
		retryDelay:     opts.RetryDelay,
		maxBody:        maxBody,
		store:          opts.Store,
		onUnauthorized: opts.OnUnauthorized,
	}
}

type call struct {
	endpoint string // metric / log label
	method   string
	path     string
	query    url.Values
	body     interface{}
	auth     bool
	// sink receives a 2xx body as it arrives instead of buffering it
	sink io.Writer
}

// isAuthRoute: a 401 here means bad credentials, not an expired session.
func isAuthRoute(path string) bool {
	return strings.HasPrefix(path, "/auth/")
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.store == nil {
		return "", errno.ErrNoSession
	}
	creds, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrNoCredentials) {
			logger.Warn("failed to load session", zap.Error(err))
		}
		return "", errno.ErrNoSession
	}
	if !session.TokenLooksValid(creds.AccessToken) {
		return "", errno.ErrNoSession
	}
	return creds.AccessToken, nil
}

// do executes one logical call and returns the raw 2xx body.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	body, _, err := c.exec(ctx, cl)
	return body, err
}

// stream executes a call whose 2xx body is copied into w without a size cap.
func (c *Client) stream(ctx context.Context, cl call, w io.Writer) (int64, error) {
	cl.sink = w
	_, n, err := c.exec(ctx, cl)
	return n, err
}

func (c *Client) exec(ctx context.Context, cl call) ([]byte, int64, error) {
	// 1. 鉴权: token 不合法时直接在本地失败，不发请求
	var token string
	if cl.auth {
		t, err := c.token(ctx)
		if err != nil {
			logger.Debug("request skipped without session", zap.String("endpoint", cl.endpoint))
			return nil, 0, err
		}
		token = t
	}

	var payload []byte
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal %s payload: %w", cl.endpoint, err)
		}
		payload = b
	}

	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	// 2. 只有读请求会重试; distribute 之类的写请求最多发一次
	attempts := 1
	if cl.method == http.MethodGet {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx, attempt); err != nil {
				return nil, 0, lastErr
			}
			logger.Debug("retrying request", zap.String("endpoint", cl.endpoint), zap.Int("attempt", attempt))
		}

		body, n, err := c.send(ctx, cl, target, token, payload)
		if err == nil {
			return body, n, nil
		}
		lastErr = err

		var apiErr *APIError
		switch {
		case n > 0:
			// 已经写入 sink 的部分无法撤回，不再重试
			return nil, n, err
		case errors.Is(err, errno.ErrUnauthorized), errors.Is(err, errno.ErrBadResponse):
			return nil, 0, err
		case errors.As(err, &apiErr) && !apiErr.Retryable():
			return nil, 0, err
		case ctx.Err() != nil:
			return nil, 0, err
		}
	}
	return nil, 0, lastErr
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	if c.retryDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.retryDelay * time.Duration(attempt-1))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) send(ctx context.Context, cl call, target, token string, payload []byte) ([]byte, int64, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	monitor.Client.APIRequestDuration.WithLabelValues(cl.endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		monitor.Client.APIRequestsTotal.WithLabelValues(cl.endpoint, cl.method, "error").Inc()
		logger.Warn("request failed", zap.String("endpoint", cl.endpoint), zap.Error(err))
		return nil, 0, errno.ErrNetwork.Wrap(err)
	}
	defer resp.Body.Close()
	monitor.Client.APIRequestsTotal.WithLabelValues(cl.endpoint, cl.method, strconv.Itoa(resp.StatusCode)).Inc()

	logger.Debug("api response",
		zap.String("endpoint", cl.endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	// 3. 401: 清空本地凭证并提示重新登录 (登录接口本身除外，避免死循环)
	if resp.StatusCode == http.StatusUnauthorized && !isAuthRoute(cl.path) {
		c.handleUnauthorized(ctx)
		return nil, 0, errno.ErrUnauthorized
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		apiErr := &APIError{Endpoint: cl.endpoint, StatusCode: resp.StatusCode, Message: extractMessage(body)}
		logger.Warn("backend rejected request", zap.String("endpoint", cl.endpoint), zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return nil, 0, apiErr
	}

	// 4. 导出类接口直接写入 sink，不做大小限制
	if cl.sink != nil {
		n, err := io.Copy(cl.sink, resp.Body)
		if err != nil {
			return nil, n, errno.ErrNetwork.Wrap(err)
		}
		return nil, n, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, 0, errno.ErrNetwork.Wrap(err)
	}
	if int64(len(body)) > c.maxBody {
		logger.Warn("response body too large", zap.String("endpoint", cl.endpoint), zap.Int64("limit", c.maxBody))
		return nil, 0, errno.ErrBadResponse.Wrap(fmt.Errorf("%s: response body exceeds %d bytes", cl.endpoint, c.maxBody))
	}
	return body, 0, nil
}

func (c *Client) handleUnauthorized(ctx context.Context) {
	logger.Warn("session rejected by backend, clearing credentials")
	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			logger.Error("failed to clear credentials", zap.Error(err))
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}
