package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/adapters/captcha"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/app/worker"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/domain/model"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/clock"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/logger"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/ui"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/storage/oplog"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingParam = errors.New("missing parameter")
	ErrCancelled    = errors.New("cancelled by user")
	ErrNotPrepared  = errors.New("app is not prepared")
)

// Job is one requested campaign mode with its parameters. Zero-valued
// parameters are prompted for when Interactive is set.
type Job struct {
	Mode        worker.Mode
	From        string
	To          string
	Symbol      string
	Amount      decimal.Decimal
	Interactive bool
}

type Options struct {
	Clock clock.Clock
	Rand  *rand.Rand
	// HTTPClient is shared by sessions and the captcha solver when set.
	HTTPClient *http.Client
	Solver     captcha.Solver
}

// App keeps what Prepare builds so later jobs reuse it.
type App struct {
	cfg   config.Config
	sink  *logger.Sink
	log   logger.Logger
	clock clock.Clock
	opts  Options

	wallets []model.WalletIdentity
	tokens  []model.Token
	store   *oplog.Store
	pool    *worker.SessionPool
	runner  *worker.Runner
}

func New(cfg config.Config, sink *logger.Sink, opts Options) *App {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	return &App{cfg: cfg, sink: sink, log: sink.Named(""), clock: opts.Clock, opts: opts}
}

// ShowWallets prints the wallet table without contacting the service.
func (a *App) ShowWallets() error {
	wallets, proxies, err := a.loadCredentials()
	if err != nil {
		return err
	}
	ui.WalletTable(wallets, proxies)
	return nil
}

func (a *App) ShowSecurity() {
	ui.SecurityTable(a.cfg.Policy)
}

func (a *App) TxCount() int { return a.cfg.TxCount }

// SetTxCount changes how many times each wallet repeats an operation in
// later jobs.
func (a *App) SetTxCount(n int) error {
	if err := config.CheckTxCount(n); err != nil {
		return err
	}
	if a.runner != nil {
		if err := a.runner.SetTxCount(n); err != nil {
			return err
		}
	}
	a.cfg.TxCount = n
	a.log.Info(fmt.Sprintf("Transaction count set to %d", n))
	return nil
}

// Run prepares the app on first use and executes job.
func (a *App) Run(ctx context.Context, job Job) error {
	if err := a.Prepare(ctx); err != nil {
		return err
	}
	return a.Execute(ctx, job)
}

// Prepare loads credentials, solves the captcha, logs the first wallet in
// and fetches the token list. It does the work once; later calls return nil.
func (a *App) Prepare(ctx context.Context) error {
	if a.runner != nil {
		return nil
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	wallets, proxies, err := a.loadCredentials()
	if err != nil {
		return err
	}
	solver, err := a.solver()
	if err != nil {
		return err
	}

	var ledger worker.Ledger
	if a.cfg.LedgerPath != "" {
		if a.store == nil {
			if a.store, err = oplog.NewStore(a.cfg.LedgerPath); err != nil {
				return err
			}
		}
		ledger = a.store
	}

	ui.WalletTable(wallets, proxies)
	ui.SecurityTable(a.cfg.Policy)

	token, err := a.solveCaptcha(ctx, solver)
	if err != nil {
		return err
	}

	pool, err := worker.NewSessionPool(a.newSession)
	if err != nil {
		return err
	}
	firstProxy := model.Proxy("")
	if len(proxies) > 0 {
		firstProxy = proxies[0]
	}
	first, err := pool.Get(wallets[0], firstProxy)
	if err != nil {
		return err
	}
	if _, err := first.Login(ctx, token); err != nil {
		return err
	}
	tokens, err := first.ListTokens(ctx)
	if err != nil {
		return fmt.Errorf("fetch token list: %w", err)
	}
	a.log.Info(fmt.Sprintf("Loaded %d tokens", len(tokens)))
	a.showEarnings(ctx, first)

	runner, err := worker.NewRunner(worker.RunnerOptions{
		Wallets:      wallets,
		Proxies:      proxies,
		Tokens:       tokens,
		CaptchaToken: token,
		TxCount:      a.cfg.TxCount,
		Policy:       a.cfg.Policy,
		NewSession:   pool.Factory(),
		Clock:        a.clock,
		Rand:         a.opts.Rand,
		Logger:       a.log,
		WalletLogger: a.sink.Named,
		Ledger:       ledger,
		OnPassComplete: func(report model.PassReport) {
			ui.PassSummary(report)
			a.showDaily(context.Background(), report)
		},
		OnWait: func(next time.Time) { ui.NextRun(next, a.clock.Now()) },
	})
	if err != nil {
		return err
	}

	a.wallets, a.tokens = wallets, tokens
	a.pool, a.runner = pool, runner
	return nil
}

// Execute runs one job on the prepared sessions.
func (a *App) Execute(ctx context.Context, job Job) error {
	if a.runner == nil {
		return ErrNotPrepared
	}
	job, err := a.resolveJob(job, a.tokens)
	if err != nil {
		return err
	}
	if a.cfg.Policy.RequireConfirmation && job.Interactive {
		ok, err := ui.Confirm(fmt.Sprintf("Run %s on %d wallets?", job.Mode, len(a.wallets)))
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}
	return a.dispatch(ctx, a.runner, job, a.tokens)
}

// Close releases the ledger.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *App) dispatch(ctx context.Context, runner *worker.Runner, job Job, tokens []model.Token) error {
	var err error
	switch job.Mode {
	case worker.ModeAutoSwap:
		_, err = runner.AutoSwap(ctx)
	case worker.ModeSwap:
		from, _ := lookupToken(tokens, job.From)
		to, _ := lookupToken(tokens, job.To)
		_, err = runner.Swap(ctx, from, to, job.Amount)
	case worker.ModeSupply:
		_, err = runner.Supply(ctx, job.Symbol, job.Amount)
	case worker.ModeWithdraw:
		_, err = runner.Withdraw(ctx, job.Symbol, job.Amount)
	case worker.ModeBorrow:
		_, err = runner.Borrow(ctx, job.Symbol, job.Amount)
	case worker.ModeRepay:
		_, err = runner.Repay(ctx, job.Symbol, job.Amount)
	case worker.ModeCheckIn:
		_, err = runner.CheckIn(ctx)
	case worker.ModeAutoAll:
		err = runner.AutoAll(ctx)
	default:
		return fmt.Errorf("unknown mode %q", job.Mode)
	}
	return err
}

// lookupToken matches symbol case-insensitively. An unlisted symbol comes
// back unpriced.
func lookupToken(tokens []model.Token, symbol string) (model.Token, bool) {
	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return model.Token{Symbol: symbol}, false
}

func (a *App) loadCredentials() ([]model.WalletIdentity, []model.Proxy, error) {
	wallets, err := config.LoadWallets(a.cfg.WalletsPath, a.log)
	if err != nil {
		return nil, nil, err
	}
	proxies, err := config.LoadProxies(a.cfg.ProxiesPath)
	if err != nil {
		return nil, nil, err
	}
	a.log.Info(fmt.Sprintf("Loaded %d wallets and %d proxies", len(wallets), len(proxies)))
	return wallets, proxies, nil
}

// solver prefers 2Captcha and falls back to CapSolver when only its key is set.
func (a *App) solver() (captcha.Solver, error) {
	if a.opts.Solver != nil {
		return a.opts.Solver, nil
	}
	common := []captcha.Option{captcha.WithClock(a.clock), captcha.WithLogger(a.log)}
	if a.opts.HTTPClient != nil {
		common = append(common, captcha.WithHTTPClient(a.opts.HTTPClient))
	}

	key, err := config.LoadCaptchaKey(a.cfg.CaptchaKeyPath, a.cfg.TwoCaptchaAPIKey)
	if err == nil {
		return captcha.NewTwoCaptcha(key, append(common, captcha.WithBaseURL(a.cfg.CaptchaBaseURL))...), nil
	}
	if a.cfg.CapSolverAPIKey != "" {
		return captcha.NewCapSolver(a.cfg.CapSolverAPIKey, append(common, captcha.WithBaseURL(a.cfg.CapSolverBaseURL))...), nil
	}
	return nil, err
}

func (a *App) solveCaptcha(ctx context.Context, solver captcha.Solver) (string, error) {
	spinner := ui.StartSpinner("Solving Turnstile captcha...")
	token, err := solver.SolveTurnstile(ctx, a.cfg.Service.TurnstileSiteKey, a.cfg.Service.CaptchaPageURL)
	if err != nil {
		spinner.Fail(fmt.Sprintf("Captcha failed: %v", err))
		if errors.Is(err, captcha.ErrZeroBalance) {
			a.log.Error("Captcha account balance is zero")
		}
		return "", err
	}
	spinner.Success("Captcha solved")
	return token, nil
}

func (a *App) newSession(id model.WalletIdentity, proxy model.Proxy) (*worker.SessionClient, error) {
	return worker.NewSessionClient(id, worker.SessionOptions{
		BaseURL:    a.cfg.APIBaseURL,
		Proxy:      proxy,
		Policy:     a.cfg.Policy,
		Service:    a.cfg.Service,
		Template:   a.cfg.SignTemplate,
		InviteCode: a.cfg.InviteCode,
		Clock:      a.clock,
		Logger:     logger.NewLogger(a.sink, (*worker.SessionClient)(nil), id.Name),
		HTTPClient: a.opts.HTTPClient,
	})
}

// showEarnings is best effort; a failure only logs.
func (a *App) showEarnings(ctx context.Context, s *worker.SessionClient) {
	info, err := s.GetEarnInfo(ctx)
	if err != nil {
		a.log.Warn(fmt.Sprintf("Could not fetch earn info: %v", err))
		return
	}
	id := s.Identity()
	ui.EarnBalance(id.Name, info)
	if a.store != nil {
		if err := a.store.UpdateEarning(ctx, id.Address, a.clock.Now(), info); err != nil {
			a.log.Warn(fmt.Sprintf("Could not store earn info: %v", err))
		}
	}
}

func (a *App) showDaily(ctx context.Context, report model.PassReport) {
	if a.store == nil {
		return
	}
	now := a.clock.Now()
	var sums []oplog.Summary
	for _, w := range report.Wallets {
		sum, err := a.store.DailySummary(ctx, w.Address, now)
		if err != nil {
			a.log.Warn(fmt.Sprintf("Could not read ledger: %v", err))
			return
		}
		sums = append(sums, sum)
	}
	ui.DailySummary(sums)
}

func (a *App) resolveJob(job Job, tokens []model.Token) (Job, error) {
	var err error
	ceiling := a.cfg.Policy.MaxAmountPerTransaction
	switch job.Mode {
	case worker.ModeSwap:
		if job.From, err = a.resolveSymbol(job, tokens, job.From, "", "Swap from"); err != nil {
			return job, err
		}
		if job.To, err = a.resolveSymbol(job, tokens, job.To, job.From, "Swap to"); err != nil {
			return job, err
		}
		if strings.EqualFold(job.From, job.To) {
			return job, fmt.Errorf("swap needs two different tokens, got %s twice", job.From)
		}
	case worker.ModeSupply, worker.ModeWithdraw, worker.ModeBorrow, worker.ModeRepay:
		if job.Symbol, err = a.resolveSymbol(job, tokens, job.Symbol, "", fmt.Sprintf("Token to %s", job.Mode)); err != nil {
			return job, err
		}
	default:
		return job, nil
	}

	if job.Amount.Sign() <= 0 {
		if !job.Interactive {
			return job, fmt.Errorf("%w: amount", ErrMissingParam)
		}
		if job.Amount, err = ui.InputAmount("Amount", ceiling); err != nil {
			return job, err
		}
	}
	if job.Amount.GreaterThan(ceiling) {
		return job, &worker.AmountLimitError{Amount: job.Amount, Ceiling: ceiling}
	}
	return job, nil
}

func (a *App) resolveSymbol(job Job, tokens []model.Token, symbol, exclude, prompt string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol != "" {
		if len(tokens) == 0 {
			return symbol, nil
		}
		t, ok := lookupToken(tokens, symbol)
		if !ok {
			return "", fmt.Errorf("token %s is not listed", symbol)
		}
		return t.Symbol, nil
	}
	if !job.Interactive {
		return "", fmt.Errorf("%w: token symbol", ErrMissingParam)
	}
	t, err := ui.SelectToken(prompt, tokens, exclude)
	if err != nil {
		return "", err
	}
	return t.Symbol, nil
}
