package client

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vos-tools/types"

	"jaytaylor.com/html2text"
)

const (
	retryDefaultWait = 5 * time.Second
	retryMaxWait     = 64 * time.Second
	maxRedirects     = 5
	maxErrorBody     = 16 << 10
)

// backoff shapes the wait between retries when the service does not send
// a Retry-After header.
type backoff struct {
	base   time.Duration
	max    time.Duration
	jitter float64
}

func (b backoff) forAttempt(attempt int) time.Duration {
	delay := b.base << uint(attempt)
	if delay <= 0 || delay > b.max {
		delay = b.max
	}
	if b.jitter > 0 {
		factor := 1 + (rand.Float64()*2-1)*b.jitter
		delay = time.Duration(float64(delay) * factor)
	}
	return delay
}

var retryBackoff = backoff{base: retryDefaultWait, max: retryMaxWait, jitter: 0.2}

// request is a rebuildable HTTP request. Retries and redirects need a
// fresh body on every attempt, so the body is carried as bytes.
type request struct {
	method      string
	url         string
	body        []byte
	contentType string
}

// do sends the request, waiting out 503 answers until the retry window
// closes and following up to maxRedirects redirect answers when asked
// to. Redirects are re-issued as GET, which is what the service expects
// for its 303 transfer answers.
func (c *Client) do(ctx context.Context, r request, followRedirects bool) (*http.Response, error) {
	deadline := time.Now().Add(c.retryWindow)
	attempt := 0
	redirects := 0
	method, url, body := r.method, r.url, r.body

	for {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, types.Wrap(types.ErrBadRequest, err)
		}
		if body != nil && r.contentType != "" {
			req.Header.Set("Content-Type", r.contentType)
		}

		resp, err := c.conn.Do(req)
		if err != nil {
			return nil, types.Wrap(types.ErrUnavailable, err)
		}

		switch {
		case resp.StatusCode == http.StatusServiceUnavailable:
			wait := retryAfter(resp, attempt)
			drain(resp)
			if time.Now().Add(wait).After(deadline) {
				return nil, &types.ServiceError{
					Sentinel: types.ErrUnavailable,
					Op:       method,
					URL:      url,
					Status:   http.StatusServiceUnavailable,
				}
			}
			log.Warnf("service busy on %s, retrying in %s", url, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			attempt++

		case followRedirects && (resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusSeeOther):
			loc := resp.Header.Get("Location")
			drain(resp)
			if loc == "" {
				return nil, &types.ServiceError{
					Sentinel: types.ErrNoTransferURL,
					Op:       method,
					URL:      url,
					Status:   resp.StatusCode,
				}
			}
			redirects++
			if redirects > maxRedirects {
				return nil, types.Wrapf(types.ErrNoTransferURL, "too many redirects for %s", r.url)
			}
			log.Debugf("following %d redirect to %s", resp.StatusCode, loc)
			method, url, body = http.MethodGet, loc, nil

		default:
			return resp, nil
		}
	}
}

// retryAfter picks the wait before the next attempt, honouring the
// Retry-After header when the service sends one.
func retryAfter(resp *http.Response, attempt int) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return retryBackoff.forAttempt(attempt)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close() //nolint: errcheck
}

// checkStatus maps an unexpected response onto the error taxonomy and
// consumes the response body. A nil return means the status was one of
// the expected codes and the body is still open.
func checkStatus(resp *http.Response, op string, ok ...int) error {
	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}
	body := errorBody(resp)
	resp.Body.Close() //nolint: errcheck

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		sentinel = types.ErrNodeNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		sentinel = types.ErrNotAuthorized
	case resp.StatusCode == http.StatusConflict && strings.Contains(body, "DuplicateNode"):
		sentinel = types.ErrDuplicateNode
	case resp.StatusCode == http.StatusLocked:
		sentinel = types.ErrNodeLocked
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusConflict:
		sentinel = types.ErrBadRequest
	case resp.StatusCode == http.StatusServiceUnavailable:
		sentinel = types.ErrUnavailable
	default:
		sentinel = types.ErrServerError
	}

	return &types.ServiceError{
		Sentinel: sentinel,
		Op:       op,
		URL:      resp.Request.URL.String(),
		Status:   resp.StatusCode,
		Body:     body,
	}
}

// errorBody reads the start of the response body for the error message.
// The service answers browsers, so failures often arrive as HTML pages;
// those are rendered down to plain text.
func errorBody(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body := strings.TrimSpace(string(raw))
	if looksLikeHTML(resp.Header.Get("Content-Type"), body) {
		if text, err := html2text.FromString(body, html2text.Options{TextOnly: true}); err == nil {
			body = strings.TrimSpace(text)
		}
	}
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return body
}

func looksLikeHTML(contentType, body string) bool {
	if strings.Contains(contentType, "html") {
		return true
	}
	lower := strings.ToLower(body)
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}
