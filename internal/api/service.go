package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Service defaults.
const (
	DefaultRetryCount    = 2
	DefaultBackoff       = 1 * time.Second
	DefaultBackoffFactor = 2.0
	DefaultPageSize      = 5000
	MaxPageSize          = 5000
	DefaultPollDelay     = 1 * time.Second
	userAgent            = "anaplan-go/0.1"
)

const (
	contentTypeJSON = "application/json"
	contentTypeGzip = "application/x-gzip"
)

// Config controls retry, pagination and polling behaviour of a Service.
// Zero values fall back to the defaults above.
type Config struct {
	RetryCount    int
	Backoff       time.Duration
	BackoffFactor float64
	PageSize      int
	PollDelay     time.Duration
}

// Requester is the request surface shared by pagination and file transfer.
// Service implements it; tests substitute fakes.
type Requester interface {
	Get(ctx context.Context, rawURL string, params url.Values, out any) error
	GetBinary(ctx context.Context, rawURL string) ([]byte, error)
	Post(ctx context.Context, rawURL string, body, out any) error
	PutBinaryGzip(ctx context.Context, rawURL string, content []byte) error
	GetPaginated(ctx context.Context, q PageQuery) ([]json.RawMessage, error)
	Executor() Executor
}

// Service issues requests against the Anaplan APIs. Authentication lives in
// the http.Client's transport; Service owns retry, rate limiting, error
// classification, pagination and polling.
//
// Requests are retried unconditionally, including writes. Callers are
// responsible for the idempotency of write operations.
type Service struct {
	httpClient    *http.Client
	exec          Executor
	logger        *slog.Logger
	retryCount    int
	backoff       time.Duration
	backoffFactor float64
	pageSize      int
	pollDelay     time.Duration

	// sleepFunc waits between retries and polls. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewService creates a Service. A nil exec means Parallel(0).
func NewService(httpClient *http.Client, cfg Config, exec Executor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if exec == nil {
		exec = Parallel(0)
	}

	s := &Service{
		httpClient:    httpClient,
		exec:          exec,
		logger:        logger,
		retryCount:    cfg.RetryCount,
		backoff:       cfg.Backoff,
		backoffFactor: cfg.BackoffFactor,
		pageSize:      cfg.PageSize,
		pollDelay:     cfg.PollDelay,
		sleepFunc:     timeSleep,
	}

	if s.retryCount < 1 {
		s.retryCount = 1
	}

	if s.backoff <= 0 {
		s.backoff = DefaultBackoff
	}

	if s.backoffFactor <= 0 {
		s.backoffFactor = DefaultBackoffFactor
	}

	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}

	s.pageSize = min(s.pageSize, MaxPageSize)

	if s.pollDelay <= 0 {
		s.pollDelay = DefaultPollDelay
	}

	logger.Debug("http service initialized",
		slog.Int("retry_count", s.retryCount),
		slog.Int("page_size", s.pageSize),
		slog.Duration("poll_delay", s.pollDelay),
	)

	return s
}

// Executor returns the fan-out strategy used for pages and chunks.
func (s *Service) Executor() Executor {
	return s.exec
}

// Close releases idle pooled connections.
func (s *Service) Close() {
	s.httpClient.CloseIdleConnections()
}

// Get issues a GET and decodes the JSON response into out.
func (s *Service) Get(ctx context.Context, rawURL string, params url.Values, out any) error {
	target, err := withParams(rawURL, params)
	if err != nil {
		return err
	}

	data, err := s.do(ctx, http.MethodGet, target, "", nil)
	if err != nil {
		return err
	}

	return decode(data, out)
}

// GetBinary issues a GET and returns the raw body unchanged.
func (s *Service) GetBinary(ctx context.Context, rawURL string) ([]byte, error) {
	return s.do(ctx, http.MethodGet, rawURL, "", nil)
}

// Post sends body as JSON and decodes the response into out.
func (s *Service) Post(ctx context.Context, rawURL string, body, out any) error {
	return s.sendJSON(ctx, http.MethodPost, rawURL, body, out)
}

// Put sends body as JSON. An empty response leaves out untouched.
func (s *Service) Put(ctx context.Context, rawURL string, body, out any) error {
	return s.sendJSON(ctx, http.MethodPut, rawURL, body, out)
}

// Patch sends body as JSON and decodes the response into out.
func (s *Service) Patch(ctx context.Context, rawURL string, body, out any) error {
	return s.sendJSON(ctx, http.MethodPatch, rawURL, body, out)
}

// Delete issues a DELETE and decodes any response into out.
func (s *Service) Delete(ctx context.Context, rawURL string, out any) error {
	data, err := s.do(ctx, http.MethodDelete, rawURL, contentTypeJSON, nil)
	if err != nil {
		return err
	}

	return decode(data, out)
}

// PostEmpty issues a POST without a body. An empty response leaves out untouched.
func (s *Service) PostEmpty(ctx context.Context, rawURL string, out any) error {
	data, err := s.do(ctx, http.MethodPost, rawURL, "", nil)
	if err != nil {
		return err
	}

	return decode(data, out)
}

// PutBinaryGzip gzip-compresses content and PUTs it as application/x-gzip.
func (s *Service) PutBinaryGzip(ctx context.Context, rawURL string, content []byte) error {
	compressed, err := Gzip(content)
	if err != nil {
		return err
	}

	_, err = s.do(ctx, http.MethodPut, rawURL, contentTypeGzip, compressed)

	return err
}

// Gzip compresses b with the default compression level.
func Gzip(b []byte) ([]byte, error) {
	var buf bytes.Buffer

	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		return nil, fmt.Errorf("anaplan: compressing chunk: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("anaplan: compressing chunk: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *Service) sendJSON(ctx context.Context, method, rawURL string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("anaplan: encoding request body: %w", err)
	}

	data, err := s.do(ctx, method, rawURL, contentTypeJSON, payload)
	if err != nil {
		return err
	}

	return decode(data, out)
}

// do executes a request with the retry policy and returns the response body.
func (s *Service) do(ctx context.Context, method, rawURL, contentType string, body []byte) ([]byte, error) {
	for attempt := range s.retryCount {
		last := attempt == s.retryCount-1

		status, header, data, err := s.doOnce(ctx, method, rawURL, contentType, body)
		if err != nil {
			switch {
			case isAuthFailure(err):
				return nil, err
			case isTimeout(err):
				s.logger.Error("request timed out",
					slog.String("method", method),
					slog.String("url", rawURL),
					slog.String("error", err.Error()),
				)

				return nil, fmt.Errorf("%w: %s %s: %w", ErrTimeout, method, rawURL, err)
			case ctx.Err() != nil:
				return nil, fmt.Errorf("anaplan: request canceled: %w", ctx.Err())
			case !last:
				s.logger.Warn("retrying after transport error",
					slog.String("method", method),
					slog.String("url", rawURL),
					slog.Int("attempt", attempt+1),
					slog.String("error", err.Error()),
				)

				continue
			default:
				s.logger.Error("request failed after retries",
					slog.String("method", method),
					slog.String("url", rawURL),
					slog.Int("attempts", attempt+1),
					slog.String("error", err.Error()),
				)

				return nil, fmt.Errorf("%w: %s %s: %w", ErrGeneric, method, rawURL, err)
			}
		}

		switch {
		case status >= http.StatusOK && status < http.StatusMultipleChoices:
			s.logger.Debug("request succeeded",
				slog.String("method", method),
				slog.String("url", rawURL),
				slog.Int("status", status),
			)

			return data, nil

		case status == http.StatusTooManyRequests:
			if last {
				s.logger.Error("rate limit exceeded",
					slog.String("method", method),
					slog.String("url", rawURL),
					slog.Int("attempts", attempt+1),
				)

				return nil, fmt.Errorf("%w: %s %s", ErrRateLimitExceeded, method, rawURL)
			}

			backoff := s.rateLimitBackoff(header, attempt)
			s.logger.Warn("rate limited, backing off",
				slog.String("method", method),
				slog.String("url", rawURL),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := s.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("anaplan: request canceled: %w", err)
			}

		case status == http.StatusNotFound:
			return nil, &RemoteError{Method: method, URL: rawURL, StatusCode: status, Body: string(data)}

		case !last:
			s.logger.Info("retrying after HTTP error",
				slog.String("method", method),
				slog.String("url", rawURL),
				slog.Int("status", status),
				slog.Int("attempt", attempt+1),
			)

		default:
			s.logger.Error("request failed",
				slog.String("method", method),
				slog.String("url", rawURL),
				slog.Int("status", status),
				slog.String("body", string(data)),
			)

			return nil, &RemoteError{Method: method, URL: rawURL, StatusCode: status, Body: string(data)}
		}
	}

	// Unreachable: the final attempt always returns.
	return nil, fmt.Errorf("%w: %s %s: retries exhausted", ErrGeneric, method, rawURL)
}

// doOnce executes a single HTTP request (no retry) and drains the body.
func (s *Service) doOnce(
	ctx context.Context, method, rawURL, contentType string, body []byte,
) (int, http.Header, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading response body: %w", err)
	}

	return resp.StatusCode, resp.Header, data, nil
}

// rateLimitBackoff returns backoff for the first attempt and
// backoff*factor afterwards. A longer Retry-After from the server wins.
func (s *Service) rateLimitBackoff(header http.Header, attempt int) time.Duration {
	wait := s.backoff
	if attempt > 0 {
		wait = time.Duration(float64(s.backoff) * s.backoffFactor)
	}

	if ra := header.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil {
			if d := time.Duration(seconds) * time.Second; d > wait {
				return d
			}
		}
	}

	return wait
}

// withParams merges params into the query string of rawURL.
func withParams(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("anaplan: parsing url %q: %w", rawURL, err)
	}

	q := u.Query()
	for k, vs := range params {
		q.Del(k)

		for _, v := range vs {
			q.Add(k, v)
		}
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

// decode unmarshals data into out. Empty bodies and nil targets are no-ops.
func decode(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("anaplan: decoding response: %w", err)
	}

	return nil
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Service.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
