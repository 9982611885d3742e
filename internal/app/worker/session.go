package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/adapters/chain"
	adhttp "github.com/ohmynofan/blockstreet-auto-bot/internal/adapters/http"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/domain/model"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/clock"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/logger"
	"github.com/ohmynofan/blockstreet-auto-bot/pkg/utils"
	"github.com/shopspring/decimal"
)

const apiPrefix = "/api"

type SessionOptions struct {
	BaseURL    string
	Proxy      model.Proxy
	Policy     config.RateLimitPolicy
	Service    config.Service
	Template   string
	InviteCode string
	Clock      clock.Clock
	Logger     logger.Logger
	// HTTPClient replaces the proxy-aware client built from Proxy.
	HTTPClient *http.Client
}

// SessionClient is one wallet's authenticated conversation with the service.
// It is used by one flow at a time; the counters are still mutex-guarded.
type SessionClient struct {
	identity model.WalletIdentity
	signer   *chain.Signer
	api      *adhttp.APIClient
	opts     SessionOptions
	log      logger.Logger
	clock    clock.Clock
	guard    *rateGuard

	mu     sync.Mutex
	proxy  model.Proxy
	cookie string
	state  model.LoginState
}

func NewSessionClient(identity model.WalletIdentity, opts SessionOptions) (*SessionClient, error) {
	signer, err := chain.New(identity)
	if err != nil {
		return nil, err
	}
	if opts.Service.SessionCookie == "" {
		opts.Service = config.BlockStreet
	}
	if opts.BaseURL == "" {
		opts.BaseURL = opts.Service.APIBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Template == "" {
		opts.Template = config.DefaultSignTemplate
	}
	if opts.Policy.MaxTransactionsPerWindow == 0 && opts.Policy.Window == 0 {
		opts.Policy = config.DefaultPolicy()
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	api, err := adhttp.NewAPIClient(opts.Proxy.String(), opts.Service, opts.Logger)
	if err != nil {
		return nil, err
	}
	if opts.HTTPClient != nil {
		api.HTTPClient = opts.HTTPClient
	}

	return &SessionClient{
		identity: identity,
		signer:   signer,
		api:      api,
		opts:     opts,
		log:      opts.Logger,
		clock:    opts.Clock,
		guard:    newRateGuard(opts.Policy),
		proxy:    opts.Proxy,
		state:    model.Unauthenticated,
	}, nil
}

// UseProxy routes later calls through proxy. The cookie, login state and
// guard window are kept.
func (s *SessionClient) UseProxy(proxy model.Proxy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if proxy == s.proxy {
		return nil
	}
	if s.opts.HTTPClient == nil {
		api, err := adhttp.NewAPIClient(proxy.String(), s.opts.Service, s.log)
		if err != nil {
			return err
		}
		s.api = api
	}
	s.proxy = proxy
	return nil
}

func (s *SessionClient) Proxy() model.Proxy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proxy
}

func (s *SessionClient) client() *adhttp.APIClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.api
}

func (s *SessionClient) Identity() model.WalletIdentity { return s.identity }

func (s *SessionClient) State() model.LoginState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SessionClient) setState(st model.LoginState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Cookie returns the stored session cookie as "name=value", or "".
func (s *SessionClient) Cookie() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookie
}

func (s *SessionClient) captureCookie(h http.Header) {
	if h == nil {
		return
	}
	name := s.opts.Service.SessionCookie
	if v, ok := adhttp.CookieValue(h, name); ok {
		s.mu.Lock()
		s.cookie = name + "=" + v
		s.mu.Unlock()
	}
}

// Counter reports the guard's admitted count and the start of its window.
func (s *SessionClient) Counter() (int, time.Time) {
	return s.guard.snapshot()
}

// CheckRateLimit admits one fund-moving operation, or reports that the
// window is full.
func (s *SessionClient) CheckRateLimit() bool {
	if s.guard.allow(s.clock.Now()) {
		return true
	}
	s.log.Security(fmt.Sprintf("Rate limit reached for %s", s.identity.Name))
	return false
}

// ValidateAmount is false iff amount exceeds the per-transaction ceiling.
func (s *SessionClient) ValidateAmount(amount decimal.Decimal) bool {
	if exceedsCeiling(amount, s.opts.Policy.MaxAmountPerTransaction) {
		s.log.Security(fmt.Sprintf("Transaction amount %s exceeds limit %s", amount, s.opts.Policy.MaxAmountPerTransaction))
		return false
	}
	return true
}

// Dispatch sends one API call and applies the envelope success rule.
func (s *SessionClient) Dispatch(ctx context.Context, method, path string, payload interface{}) (*Response, error) {
	opts := &adhttp.FetchOptions{Method: method, Cookie: s.Cookie()}
	switch p := payload.(type) {
	case nil:
	case FormPayload:
		form, err := utils.URLValues(p.V)
		if err != nil {
			return nil, &RequestError{Method: method, Path: path, Err: err}
		}
		opts.Form = form
	case *FormPayload:
		form, err := utils.URLValues(p.V)
		if err != nil {
			return nil, &RequestError{Method: method, Path: path, Err: err}
		}
		opts.Form = form
	case url.Values:
		opts.Form = p
	default:
		opts.Body = payload
	}
	return s.fetch(ctx, path, opts)
}

func (s *SessionClient) fetch(ctx context.Context, path string, opts *adhttp.FetchOptions) (*Response, error) {
	raw, err := s.client().Fetch(ctx, s.opts.BaseURL+apiPrefix+path, opts)
	if err != nil {
		var httpErr *adhttp.HTTPError
		if errors.As(err, &httpErr) {
			s.captureCookie(httpErr.Header)
			reqErr := &RequestError{
				Method:     opts.Method,
				Path:       path,
				StatusCode: httpErr.StatusCode,
				Body:       utils.TruncateForLog(string(httpErr.Body), 512),
			}
			var env envelope
			if json.Unmarshal(httpErr.Body, &env) == nil && env.Code.set {
				reqErr.Code, reqErr.Message = env.Code.value, env.message()
			}
			return nil, reqErr
		}
		return nil, &RequestError{Method: opts.Method, Path: path, Err: err}
	}
	s.captureCookie(raw.Header)

	var env envelope
	if err := json.Unmarshal(raw.Body, &env); err != nil {
		return nil, &RequestError{
			Method:     opts.Method,
			Path:       path,
			StatusCode: raw.StatusCode,
			Body:       utils.TruncateForLog(string(raw.Body), 512),
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	if !env.Code.ok() {
		return nil, &RequestError{
			Method:     opts.Method,
			Path:       path,
			StatusCode: raw.StatusCode,
			Code:       env.Code.value,
			Message:    env.message(),
			Body:       utils.TruncateForLog(string(raw.Body), 512),
		}
	}

	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage(raw.Body)
	}
	return &Response{
		StatusCode: raw.StatusCode,
		Code:       env.Code.value,
		Message:    env.message(),
		Data:       data,
	}, nil
}

// guarded runs the rate and amount checks ahead of a fund-moving call.
func (s *SessionClient) guarded(amounts ...decimal.Decimal) error {
	if !s.CheckRateLimit() {
		return &RateLimitError{
			Wallet: s.identity.Name,
			Limit:  s.opts.Policy.MaxTransactionsPerWindow,
			Window: s.opts.Policy.Window,
		}
	}
	for _, a := range amounts {
		if !s.ValidateAmount(a) {
			return &AmountLimitError{Amount: a, Ceiling: s.opts.Policy.MaxAmountPerTransaction}
		}
	}
	return nil
}

func (s *SessionClient) Swap(ctx context.Context, req SwapRequest) (*Response, error) {
	if err := s.guarded(req.FromAmount); err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, http.MethodPost, "/swap", req)
}

func (s *SessionClient) Supply(ctx context.Context, symbol string, amount decimal.Decimal) (*Response, error) {
	return s.assetOp(ctx, "/supply", symbol, amount)
}

func (s *SessionClient) Withdraw(ctx context.Context, symbol string, amount decimal.Decimal) (*Response, error) {
	return s.assetOp(ctx, "/withdraw", symbol, amount)
}

func (s *SessionClient) Borrow(ctx context.Context, symbol string, amount decimal.Decimal) (*Response, error) {
	return s.assetOp(ctx, "/borrow", symbol, amount)
}

func (s *SessionClient) Repay(ctx context.Context, symbol string, amount decimal.Decimal) (*Response, error) {
	return s.assetOp(ctx, "/repay", symbol, amount)
}

func (s *SessionClient) assetOp(ctx context.Context, path, symbol string, amount decimal.Decimal) (*Response, error) {
	if err := s.guarded(amount); err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, http.MethodPost, path, assetRequest{Symbol: symbol, Amount: amount})
}

// CheckIn is the daily share call. It counts against the rate limit but
// carries no amount.
func (s *SessionClient) CheckIn(ctx context.Context) (*Response, error) {
	if err := s.guarded(); err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, http.MethodPost, "/share", nil)
}

func (s *SessionClient) ListTokens(ctx context.Context) ([]model.Token, error) {
	res, err := s.Dispatch(ctx, http.MethodGet, "/swap/token_list", nil)
	if err != nil {
		return nil, err
	}
	var tokens []model.Token
	if err := res.Decode(&tokens); err != nil {
		return nil, fmt.Errorf("decode token list: %w", err)
	}
	return tokens, nil
}

func (s *SessionClient) GetEarnInfo(ctx context.Context) (model.EarnInfo, error) {
	res, err := s.Dispatch(ctx, http.MethodGet, "/earn/info", nil)
	if err != nil {
		return model.EarnInfo{}, err
	}
	var info model.EarnInfo
	if err := res.Decode(&info); err != nil {
		return model.EarnInfo{}, fmt.Errorf("decode earn info: %w", err)
	}
	return info, nil
}

// GetSupplies lists the wallet's supplied positions. Null entries are dropped.
func (s *SessionClient) GetSupplies(ctx context.Context) ([]model.SupplyPosition, error) {
	res, err := s.Dispatch(ctx, http.MethodGet, "/my/supply", nil)
	if err != nil {
		return nil, err
	}
	var raw []*model.SupplyPosition
	if err := res.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode supplies: %w", err)
	}
	out := make([]model.SupplyPosition, 0, len(raw))
	for _, p := range raw {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}
