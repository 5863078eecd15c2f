package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vos-tools/types"

	"github.com/stretchr/testify/require"
)

func TestBackoffBounds(t *testing.T) {
	b := backoff{base: time.Second, max: 30 * time.Second, jitter: 0.2}
	for attempt := 0; attempt < 10; attempt++ {
		d := b.forAttempt(attempt)
		require.GreaterOrEqual(t, d, time.Duration(float64(time.Second)*0.8))
		require.LessOrEqual(t, d, time.Duration(float64(30*time.Second)*1.2))
	}

	exact := backoff{base: time.Second, max: 8 * time.Second}
	require.Equal(t, time.Second, exact.forAttempt(0))
	require.Equal(t, 2*time.Second, exact.forAttempt(1))
	require.Equal(t, 8*time.Second, exact.forAttempt(5))
	// shifted past the bit width, still capped
	require.Equal(t, 8*time.Second, exact.forAttempt(100))
}

func TestRetryAfterHeader(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "7")
	require.Equal(t, 7*time.Second, retryAfter(resp, 0))

	// a date or garbage falls back to the shaped wait
	resp.Header.Set("Retry-After", "soon")
	d := retryAfter(resp, 0)
	require.GreaterOrEqual(t, d, 4*time.Second)
	require.LessOrEqual(t, d, 6*time.Second)
}

func errResponse(t *testing.T, status int, body string) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	rec.WriteHeader(status)
	_, _ = rec.WriteString(body)
	resp := rec.Result()
	resp.Request = httptest.NewRequest(http.MethodGet, "http://service/vospace/nodes/a", nil)
	return resp
}

func TestCheckStatus(t *testing.T) {
	require.NoError(t, checkStatus(errResponse(t, http.StatusOK, "fine"), "get", http.StatusOK))

	err := checkStatus(errResponse(t, http.StatusNotFound, "NodeNotFound"), "get", http.StatusOK)
	require.ErrorIs(t, err, types.ErrNodeNotFound)

	err = checkStatus(errResponse(t, http.StatusForbidden, "denied"), "get", http.StatusOK)
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	err = checkStatus(errResponse(t, http.StatusUnauthorized, ""), "get", http.StatusOK)
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	err = checkStatus(errResponse(t, http.StatusConflict, "DuplicateNode: node exists"), "create", http.StatusOK, http.StatusCreated)
	require.ErrorIs(t, err, types.ErrDuplicateNode)

	err = checkStatus(errResponse(t, http.StatusConflict, "some other conflict"), "create", http.StatusOK)
	require.ErrorIs(t, err, types.ErrBadRequest)

	err = checkStatus(errResponse(t, http.StatusLocked, "NodeLocked"), "delete", http.StatusOK)
	require.ErrorIs(t, err, types.ErrNodeLocked)

	err = checkStatus(errResponse(t, http.StatusInternalServerError, "boom"), "get", http.StatusOK)
	require.ErrorIs(t, err, types.ErrServerError)

	var svcErr *types.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusInternalServerError, svcErr.Status)
	require.Equal(t, "boom", svcErr.Body)
	require.Contains(t, svcErr.Error(), "HTTP 500")
	require.Contains(t, svcErr.Error(), "get")
}

func TestErrorBodyHTML(t *testing.T) {
	page := "<html><head><title>Error</title></head><body><h1>Permission denied</h1>" +
		"<p>user has no read access</p></body></html>"
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "text/html")
	rec.WriteHeader(http.StatusForbidden)
	_, _ = rec.WriteString(page)

	body := errorBody(rec.Result())
	require.NotContains(t, body, "<h1>")
	require.Contains(t, body, "Permission denied")
	require.Contains(t, body, "user has no read access")
}

func TestErrorBodyTruncated(t *testing.T) {
	body := errorBody(errResponse(t, http.StatusInternalServerError, strings.Repeat("x", 600)))
	require.Len(t, body, 515)
	require.True(t, strings.HasSuffix(body, "..."))
}

func TestLooksLikeHTML(t *testing.T) {
	require.True(t, looksLikeHTML("text/html; charset=utf-8", ""))
	require.True(t, looksLikeHTML("", "<!DOCTYPE html><html>"))
	require.True(t, looksLikeHTML("", "<html><body>x</body></html>"))
	require.False(t, looksLikeHTML("text/plain", "NodeNotFound"))
}

func TestDoRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", srv.URL+r.URL.Path)
		w.WriteHeader(http.StatusSeeOther)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.CertFile = ""
	cfg.RetryWindowSeconds = 1
	c, err := NewClientWithConfig(context.Background(), cfg, t.TempDir())
	require.NoError(t, err)

	resp, err := c.do(context.Background(), request{method: http.MethodGet, url: srv.URL + "/loop"}, true)
	require.Nil(t, resp)
	require.ErrorIs(t, err, types.ErrNoTransferURL)

	// with following turned off the redirect comes back untouched
	resp, err = c.do(context.Background(), request{method: http.MethodGet, url: srv.URL + "/loop"}, false)
	require.NoError(t, err)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	drain(resp)
}
