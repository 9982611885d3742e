package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/app"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const menuKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (h *hitCounter) get(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[path]
}

func newMenuApp(t *testing.T) (*app.App, *hitCounter) {
	t.Helper()
	h := &hitCounter{hits: map[string]int{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.hits[r.URL.Path]++
		h.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/in.php":
			_, _ = w.Write([]byte(`{"status":1,"request":"7"}`))
		case "/res.php":
			_, _ = w.Write([]byte(`{"status":1,"request":"solved"}`))
		case "/api/swap/token_list":
			_, _ = w.Write([]byte(`{"code":0,"data":[{"symbol":"USDT","price":"1"}]}`))
		default:
			_, _ = w.Write([]byte(`{"code":0,"data":{}}`))
		}
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	wallets := filepath.Join(dir, "private_keys.txt")
	require.NoError(t, os.WriteFile(wallets, []byte(menuKey+":M1\n"), 0o600))
	key := filepath.Join(dir, "2captcha.txt")
	require.NoError(t, os.WriteFile(key, []byte("k\n"), 0o600))

	cfg := config.Config{
		WalletsPath:    wallets,
		ProxiesPath:    filepath.Join(dir, "proxies.txt"),
		CaptchaKeyPath: key,
		TxCount:        1,
		APIBaseURL:     server.URL,
		CaptchaBaseURL: server.URL,
		SignTemplate:   config.DefaultSignTemplate,
		Policy:         config.DefaultPolicy(),
		Service:        config.BlockStreet,
	}
	a := app.New(cfg, nil, app.Options{
		Clock:      clock.NewManual(time.Date(2025, 10, 27, 9, 0, 0, 0, time.UTC)),
		HTTPClient: server.Client(),
	})
	t.Cleanup(func() { _ = a.Close() })
	return a, h
}

func TestMenuPreparesOnceAcrossSelections(t *testing.T) {
	a, hits := newMenuApp(t)

	picks := []string{"Daily check-in", menuTxCount, "Daily check-in", menuExit}
	origSelect, origInput := selectOption, inputTxCount
	t.Cleanup(func() { selectOption, inputTxCount = origSelect, origInput })
	selectOption = func(string, []string) (string, error) {
		next := picks[0]
		picks = picks[1:]
		return next, nil
	}
	inputTxCount = func(current int) (int, error) {
		assert.Equal(t, 1, current)
		return 3, nil
	}

	c := &cli{app: a}
	require.NoError(t, c.menu(context.Background()))

	assert.Equal(t, 1, hits.get("/in.php"))
	assert.Equal(t, 1, hits.get("/api/swap/token_list"))
	// One login before the menu, then one per pass on the same session.
	assert.Equal(t, 3, hits.get("/api/account/signverify"))
	assert.Equal(t, 2, hits.get("/api/share"))
	assert.Equal(t, 3, a.TxCount())
}

func TestMenuStopsWhenPrepareFails(t *testing.T) {
	origSelect := selectOption
	t.Cleanup(func() { selectOption = origSelect })
	selectOption = func(string, []string) (string, error) {
		t.Fatal("menu shown without a prepared session")
		return "", nil
	}

	c := &cli{app: app.New(config.Config{}, nil, app.Options{})}
	var cfgErr *config.ConfigError
	assert.ErrorAs(t, c.menu(context.Background()), &cfgErr)
}
