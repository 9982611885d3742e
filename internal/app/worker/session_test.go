package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/adapters/chain"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/domain/model"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var testStart = time.Date(2025, 10, 27, 9, 50, 0, 0, time.UTC)

func testIdentity(t *testing.T) model.WalletIdentity {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	return model.NewWalletIdentity("W1", key)
}

func newTestSession(t *testing.T, server *httptest.Server, clk clock.Clock) *SessionClient {
	t.Helper()
	s, err := NewSessionClient(testIdentity(t), SessionOptions{
		BaseURL:    server.URL,
		Policy:     config.DefaultPolicy(),
		InviteCode: "INV123",
		Clock:      clk,
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	return s
}

func okHandler(hits *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"message":"ok","data":true}`))
	}
}

func TestLoginPostsSignedForm(t *testing.T) {
	t.Parallel()

	id := testIdentity(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/account/signverify", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "turnstile-token", r.Header.Get("cf-turnstile-response"))
		assert.Equal(t, "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36", r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Cookie"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, id.Address, r.PostForm.Get("address"))
		assert.Equal(t, "Z9YFj5VY80yTwN3n", r.PostForm.Get("nonce"))
		assert.Equal(t, "1", r.PostForm.Get("chainId"))
		assert.Equal(t, "2025-10-27T09:49:38.537Z", r.PostForm.Get("issuedAt"))
		assert.Equal(t, "2025-10-27T09:51:38.537Z", r.PostForm.Get("expirationTime"))
		assert.Equal(t, "INV123", r.PostForm.Get("invite_code"))

		signer, err := chain.Recover(config.DefaultSignTemplate, r.PostForm.Get("signature"))
		require.NoError(t, err)
		assert.Equal(t, id.Address, signer.Hex())

		http.SetCookie(w, &http.Cookie{Name: "gfsessionid", Value: "s1", Path: "/"})
		_, _ = w.Write([]byte(`{"code":0,"data":{"rst":true}}`))
	}))
	t.Cleanup(server.Close)

	s := newTestSession(t, server, clock.NewManual(testStart))
	assert.Equal(t, model.Unauthenticated, s.State())

	info, err := s.Login(context.Background(), "turnstile-token")
	require.NoError(t, err)
	assert.Equal(t, model.Authenticated, s.State())
	assert.Equal(t, "gfsessionid=s1", info.Cookie)
	assert.Equal(t, id.Address, info.Address)

	count, _ := s.Counter()
	assert.Zero(t, count)
}

func TestLoginRejectedIsAuthError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":5017,"message":"verify failed"}`))
	}))
	t.Cleanup(server.Close)

	s := newTestSession(t, server, clock.NewManual(testStart))
	_, err := s.Login(context.Background(), "token")
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "5017", reqErr.Code)
	assert.Equal(t, "verify failed", reqErr.Message)
	assert.Equal(t, model.Failed, s.State())
	assert.Equal(t, AbortWallet, Classify(err))
}

func TestSessionCookieRotates(t *testing.T) {
	t.Parallel()

	var (
		calls atomic.Int32
		mu    sync.Mutex
		seen  []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		mu.Lock()
		seen = append(seen, r.Header.Get("Cookie"))
		mu.Unlock()
		switch n {
		case 1:
			http.SetCookie(w, &http.Cookie{Name: "gfsessionid", Value: "s1"})
			_, _ = w.Write([]byte(`{"code":0}`))
		case 2:
			http.SetCookie(w, &http.Cookie{Name: "gfsessionid", Value: "s2"})
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`oops`))
		default:
			_, _ = w.Write([]byte(`{"code":"0","data":[]}`))
		}
	}))
	t.Cleanup(server.Close)

	s := newTestSession(t, server, clock.NewManual(testStart))
	_, err := s.Login(context.Background(), "")
	require.NoError(t, err)

	_, err = s.CheckIn(context.Background())
	require.Error(t, err)

	_, err = s.GetSupplies(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "gfsessionid=s1", "gfsessionid=s2"}, seen)
	assert.Equal(t, "gfsessionid=s2", s.Cookie())
}

func TestGuardAdmitsLimitThenRejectsWithoutNetwork(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(okHandler(&hits))
	t.Cleanup(server.Close)

	clk := clock.NewManual(testStart)
	s := newTestSession(t, server, clk)
	amount := decimal.RequireFromString("0.001")

	for i := 0; i < 100; i++ {
		_, err := s.Supply(context.Background(), "USDT", amount)
		require.NoError(t, err, "supply %d", i+1)
		clk.Advance(time.Second)
	}

	_, err := s.Supply(context.Background(), "USDT", amount)
	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, 100, rateErr.Limit)
	assert.EqualValues(t, 100, hits.Load())
	assert.Equal(t, Skip, Classify(err))

	count, start := s.Counter()
	assert.Equal(t, 100, count)
	assert.Equal(t, testStart, start)
}

func TestGuardWindowResets(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(okHandler(&hits))
	t.Cleanup(server.Close)

	clk := clock.NewManual(testStart)
	s := newTestSession(t, server, clk)

	for i := 0; i < 100; i++ {
		require.True(t, s.CheckRateLimit())
	}
	assert.False(t, s.CheckRateLimit())

	clk.Advance(time.Hour)
	_, err := s.CheckIn(context.Background())
	require.NoError(t, err)

	count, start := s.Counter()
	assert.Equal(t, 1, count)
	assert.Equal(t, testStart.Add(time.Hour), start)
}

func TestGuardNeverAdmitsMoreThanLimitPerWindow(t *testing.T) {
	t.Parallel()

	policy := config.DefaultPolicy()
	policy.MaxTransactionsPerWindow = 5
	policy.Window = time.Minute
	g := newRateGuard(policy)

	now := testStart
	admitted := map[time.Time]int{}
	for i := 0; i < 500; i++ {
		now = now.Add(time.Duration(i%7) * time.Second)
		if g.allow(now) {
			_, start := g.snapshot()
			admitted[start]++
		}
	}
	require.NotEmpty(t, admitted)
	for start, n := range admitted {
		assert.LessOrEqual(t, n, 5, "window starting %s", start)
	}
}

func TestAmountCeilingBlocksBeforeDispatch(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(okHandler(&hits))
	t.Cleanup(server.Close)

	s := newTestSession(t, server, clock.NewManual(testStart))

	assert.True(t, s.ValidateAmount(decimal.RequireFromString("0.01")))
	assert.False(t, s.ValidateAmount(decimal.RequireFromString("0.0100001")))

	_, err := s.Supply(context.Background(), "USDT", decimal.RequireFromString("0.02"))
	var amountErr *AmountLimitError
	require.True(t, errors.As(err, &amountErr))
	assert.Equal(t, "0.01", amountErr.Ceiling.String())

	_, err = s.Swap(context.Background(), SwapRequest{
		FromSymbol: "USDT",
		ToSymbol:   "ETH",
		FromAmount: decimal.RequireFromString("5"),
		ToAmount:   decimal.RequireFromString("0.001"),
	})
	require.True(t, errors.As(err, &amountErr))
	assert.Zero(t, hits.Load())
}

func TestServerErrorIsRequestErrorAndCounts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":500,"message":"internal"}`))
	}))
	t.Cleanup(server.Close)

	s := newTestSession(t, server, clock.NewManual(testStart))
	_, err := s.Borrow(context.Background(), "USDT", decimal.RequireFromString("0.001"))

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
	assert.Equal(t, "/borrow", reqErr.Path)
	assert.Equal(t, Fail, Classify(err))

	count, _ := s.Counter()
	assert.Equal(t, 1, count)
}

func TestEnvelopeCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		ok   bool
	}{
		{name: "numeric zero", body: `{"code":0}`, ok: true},
		{name: "string zero", body: `{"code":"0","data":{}}`, ok: true},
		{name: "non zero", body: `{"code":1,"message":"insufficient"}`},
		{name: "string non zero", body: `{"code":"E1"}`},
		{name: "missing code", body: `{"data":{}}`},
		{name: "not json", body: `<html></html>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(server.Close)

			s := newTestSession(t, server, clock.NewManual(testStart))
			_, err := s.Repay(context.Background(), "USDT", decimal.RequireFromString("0.001"))
			if tc.ok {
				require.NoError(t, err)
				return
			}
			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, http.StatusOK, reqErr.StatusCode)
		})
	}
}

func TestFundMovingPayloads(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	bodies := map[string]map[string]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		if len(raw) > 0 {
			var body map[string]string
			require.NoError(t, json.Unmarshal(raw, &body))
			bodies[r.URL.Path] = body
		} else {
			bodies[r.URL.Path] = nil
		}
		_, _ = w.Write([]byte(`{"code":0}`))
	}))
	t.Cleanup(server.Close)

	s := newTestSession(t, server, clock.NewManual(testStart))
	ctx := context.Background()
	amount := decimal.RequireFromString("0.00123456")

	_, err := s.Swap(ctx, SwapRequest{FromSymbol: "USDT", ToSymbol: "ETH", FromAmount: amount, ToAmount: decimal.RequireFromString("0.0000005")})
	require.NoError(t, err)
	for _, op := range []func(context.Context, string, decimal.Decimal) (*Response, error){s.Supply, s.Withdraw, s.Borrow, s.Repay} {
		_, err := op(ctx, "USDT", amount)
		require.NoError(t, err)
	}
	_, err = s.CheckIn(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]string{
		"from_symbol": "USDT",
		"to_symbol":   "ETH",
		"from_amount": "0.00123456",
		"to_amount":   "0.0000005",
	}, bodies["/api/swap"])
	for _, p := range []string{"/api/supply", "/api/withdraw", "/api/borrow", "/api/repay"} {
		assert.Equal(t, map[string]string{"symbol": "USDT", "amount": "0.00123456"}, bodies[p], p)
	}
	body, ok := bodies["/api/share"]
	assert.True(t, ok)
	assert.Nil(t, body)

	count, _ := s.Counter()
	assert.Equal(t, 6, count)
}

func TestReadOnlyCallsSkipGuard(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/api/swap/token_list":
			_, _ = w.Write([]byte(`{"code":0,"data":[{"symbol":"USDT","price":"1"},{"symbol":"ETH","price":3500.5},{"symbol":"NEW"},{"symbol":"ODD","price":""},{"symbol":"BAD","price":"n/a"},{"symbol":"NUL","price":null}]}`))
		case "/api/my/supply":
			_, _ = w.Write([]byte(`{"code":0,"data":[{"symbol":"USDT","amount":"0.5"},null,{"symbol":"ETH","amount":"0"},{"symbol":"BTC","amount":""}]}`))
		case "/api/earn/info":
			_, _ = w.Write([]byte(`{"code":0,"data":{"balance":"12.5","today_earn":"","total_earn":null}}`))
		}
	}))
	t.Cleanup(server.Close)

	s := newTestSession(t, server, clock.NewManual(testStart))
	ctx := context.Background()

	tokens, err := s.ListTokens(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 6)
	assert.Equal(t, "3500.5", tokens[1].Price.String())
	for _, tok := range tokens[2:] {
		assert.True(t, tok.Price.IsZero(), tok.Symbol)
		assert.Equal(t, "1", tok.EffectivePrice().String(), tok.Symbol)
	}

	supplies, err := s.GetSupplies(ctx)
	require.NoError(t, err)
	assert.Len(t, supplies, 3)
	assert.Len(t, ownedAssets(supplies), 1)

	info, err := s.GetEarnInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "12.5", info.Balance.String())
	assert.True(t, info.TodayEarn.IsZero())
	assert.True(t, info.TotalEarn.IsZero())

	count, _ := s.Counter()
	assert.Zero(t, count)
}
