package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	defaultTimeout = 90 * time.Second
)

// StatusError reports a non-2xx answer from a source.
type StatusError struct {
	Step string // "GET", "POST", "detail"
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d on %s", e.Code, e.Step)
}

// session is one cookie-carrying HTTP conversation with a source. It is opened
// lazily on first request and torn down once by release.
type session struct {
	timeout   time.Duration
	client    *resty.Client
	teardowns int
}

func newSession(timeout time.Duration) *session {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &session{timeout: timeout}
}

func (s *session) open() *resty.Client {
	if s.client != nil {
		return s.client
	}
	// resty.New installs a fresh cookie jar, so cookies never leak between adapters.
	s.client = resty.New().
		SetTimeout(s.timeout).
		SetRetryCount(0).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	return s.client
}

func (s *session) request(ctx context.Context) *resty.Request {
	return s.open().R().SetContext(ctx)
}

// get fetches rawURL with optional query params and returns the body of a 2xx response.
func (s *session) get(ctx context.Context, step, rawURL string, query url.Values, headers map[string]string) (string, error) {
	req := s.request(ctx).SetHeaders(headers)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(rawURL)
	return body(step, resp, err)
}

// postForm submits an urlencoded form and returns the body of a 2xx response.
func (s *session) postForm(ctx context.Context, step, rawURL string, form url.Values, headers map[string]string) (string, error) {
	resp, err := s.request(ctx).
		SetHeaders(headers).
		SetFormDataFromValues(form).
		Post(rawURL)
	return body(step, resp, err)
}

func body(step string, resp *resty.Response, err error) (string, error) {
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", step, err)
	}
	if !resp.IsSuccess() {
		return "", &StatusError{Step: step, Code: resp.StatusCode()}
	}
	return resp.String(), nil
}

// release closes pooled connections. Safe to call repeatedly and on a session
// that never opened.
func (s *session) release() {
	if s.client == nil {
		return
	}
	if hc := s.client.GetClient(); hc != nil {
		hc.CloseIdleConnections()
	}
	s.teardowns++
	s.client = nil
}
