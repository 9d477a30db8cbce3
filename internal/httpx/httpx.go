package httpx

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	contentTypeJSON = "application/json"
	acceptJSON      = contentTypeJSON
	acceptEncoding  = "br, gzip"

	HeaderRequestID = "X-Request-ID"
)

var (
	// ErrCancelled means the caller's context was cancelled (view unmounted).
	// Callers must treat it as a silent no-op.
	ErrCancelled = errors.New("httpx: request cancelled")
	// ErrTimeout means no response arrived within the configured bound.
	ErrTimeout = errors.New("httpx: request timed out")
	// ErrNetwork covers transport failures without a response.
	ErrNetwork = errors.New("httpx: network error")
)

func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }

func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsRetryable reports failures the user may retry from a banner:
// timeouts, transport errors and 5xx.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork) {
		return true
	}
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.StatusCode >= 500
	}
	return false
}

// HTTPError carries status/body for non-2xx responses.
// Message is the backend's {"message": "..."} when present.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http error: %s %s status=%d message=%s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, e.URL, e.StatusCode, snippet(e.Body, 900))
}

// Message returns the server-provided message of err, or fallback.
func Message(err error, fallback string) string {
	var herr *HTTPError
	if errors.As(err, &herr) && strings.TrimSpace(herr.Message) != "" {
		return herr.Message
	}
	return fallback
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// TokenSource supplies the bearer credential. An empty token sends no header.
type TokenSource interface {
	AccessToken() string
}

// Client is the single outbound path to the backend. It never retries.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Timeout time.Duration
	Tokens  TokenSource
	Logger  zerolog.Logger
}

func New(baseURL string, timeout time.Duration, tokens TokenSource, logger zerolog.Logger) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Transport: tr},
		Timeout: timeout,
		Tokens:  tokens,
		Logger:  logger,
	}
}

// Do sends method path with an optional JSON body and decodes a JSON response
// into out (skipped when out is nil or the body is empty).
func (c *Client) Do(ctx context.Context, method, path string, body any, out any) error {
	_, raw, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeJSON(raw, out)
}

// DoRaw is Do without decoding; the body is returned as read.
func (c *Client) DoRaw(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	return c.do(ctx, method, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("httpx: marshal %s %s: %w", method, path, err)
		}
		payload = b
	}

	reqCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	u := c.url(path)
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, u, rdr)
	if err != nil {
		return nil, nil, fmt.Errorf("httpx: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	req.Header.Set("Accept", acceptJSON)
	req.Header.Set("Accept-Encoding", acceptEncoding)
	reqID := uuid.NewString()
	req.Header.Set(HeaderRequestID, reqID)
	if c.Tokens != nil {
		if tok := c.Tokens.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		err = classify(ctx, method, u, err)
		c.logFailure(method, path, reqID, start, err)
		return nil, nil, err
	}

	raw, err := readBody(resp)
	if err != nil {
		err = classify(ctx, method, u, err)
		c.logFailure(method, path, reqID, start, err)
		return resp, nil, err
	}

	c.Logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Str("request_id", reqID).
		Msg("http request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, raw, &HTTPError{
			Method:     method,
			URL:        u,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       raw,
			Message:    serverMessage(raw),
		}
	}
	return resp, raw, nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

func (c *Client) logFailure(method, path, reqID string, start time.Time, err error) {
	ev := c.Logger.Warn()
	if IsCancelled(err) {
		ev = c.Logger.Debug()
	}
	ev.Err(err).
		Str("method", method).
		Str("path", path).
		Dur("took", time.Since(start)).
		Str("request_id", reqID).
		Msg("http request failed")
}

// classify maps transport errors onto the cancelled / timeout / network kinds.
// parent is the caller's context, before the per-request timeout was applied.
func classify(parent context.Context, method, u string, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("%w: %s %s", ErrCancelled, method, u)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s: %w", ErrTimeout, method, u, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %s %s: %w", ErrTimeout, method, u, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, u, err)
}

// readBody always drains and closes so the connection can be reused.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("httpx: gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return io.ReadAll(r)
}

func serverMessage(body []byte) string {
	var m struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &m) != nil {
		return ""
	}
	return strings.TrimSpace(m.Message)
}

func decodeJSON(raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("json parse error: %w body=%s", err, snippet(raw, 900))
	}
	return nil
}
