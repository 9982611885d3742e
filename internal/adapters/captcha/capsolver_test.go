package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapSolverReturnsTokenAfterProcessing(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cap-key", body["clientKey"])

		switch r.URL.Path {
		case "/createTask":
			task := body["task"].(map[string]interface{})
			assert.Equal(t, "AntiTurnstileTaskProxyLess", task["type"])
			assert.Equal(t, testSiteKey, task["websiteKey"])
			_, _ = w.Write([]byte(`{"errorId":0,"taskId":"task-1"}`))
		case "/getTaskResult":
			if polls.Add(1) < 3 {
				_, _ = w.Write([]byte(`{"errorId":0,"status":"processing"}`))
				return
			}
			_, _ = w.Write([]byte(`{"errorId":0,"status":"ready","solution":{"token":"cap-token"}}`))
		}
	}))
	t.Cleanup(server.Close)

	clk := clock.NewManual(time.Now())
	solver := NewCapSolver("cap-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithClock(clk))
	token, err := solver.SolveTurnstile(context.Background(), testSiteKey, testPageURL)
	require.NoError(t, err)
	assert.Equal(t, "cap-token", token)
	assert.Equal(t, 15*time.Second, clk.Slept())
}

func TestCapSolverZeroBalance(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorId":1,"errorCode":"ERROR_ZERO_BALANCE"}`))
	}))
	t.Cleanup(server.Close)

	solver := NewCapSolver("cap-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithClock(clock.NewManual(time.Now())))
	_, err := solver.SolveTurnstile(context.Background(), testSiteKey, testPageURL)
	assert.True(t, errors.Is(err, ErrZeroBalance))
}

func TestCapSolverBoundedPolling(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/createTask" {
			_, _ = w.Write([]byte(`{"errorId":0,"taskId":"task-1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"errorId":0,"status":"processing"}`))
	}))
	t.Cleanup(server.Close)

	solver := NewCapSolver("cap-key",
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
		WithClock(clock.NewManual(time.Now())),
		WithMaxAttempts(3),
	)
	_, err := solver.SolveTurnstile(context.Background(), testSiteKey, testPageURL)

	var timeout *TimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, 3, timeout.Attempts)
}
