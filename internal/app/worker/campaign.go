package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/domain/model"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/clock"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/logger"
	"github.com/shopspring/decimal"
)

type RunnerOptions struct {
	Wallets      []model.WalletIdentity
	Proxies      []model.Proxy
	Tokens       []model.Token
	CaptchaToken string
	TxCount      int
	Policy       config.RateLimitPolicy
	NewSession   SessionFactory
	Clock        clock.Clock
	Rand         *rand.Rand
	Logger       logger.Logger
	WalletLogger func(name string) logger.Logger
	Ledger       Ledger
	// OnPassComplete sees every finished pass, including partial ones.
	OnPassComplete func(model.PassReport)
	// OnWait is told when the next auto-all pass will start.
	OnWait        func(next time.Time)
	CycleInterval time.Duration
}

// Runner executes campaign passes over every wallet, one wallet at a time.
type Runner struct {
	opts     RunnerOptions
	log      logger.Logger
	clock    clock.Clock
	rnd      *rand.Rand
	proxyIdx int
}

func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.NewSession == nil {
		return nil, errors.New("runner needs a session factory")
	}
	if err := config.CheckTxCount(opts.TxCount); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.WalletLogger == nil {
		base := opts.Logger
		opts.WalletLogger = func(string) logger.Logger { return base }
	}
	if opts.CycleInterval <= 0 {
		opts.CycleInterval = defaultCycle
	}
	if opts.Policy.MaxAmountPerTransaction.Sign() <= 0 {
		opts.Policy = config.DefaultPolicy()
	}
	return &Runner{opts: opts, log: opts.Logger, clock: opts.Clock, rnd: opts.Rand}, nil
}

// SetTxCount changes the per-wallet repetition for later passes.
func (r *Runner) SetTxCount(n int) error {
	if err := config.CheckTxCount(n); err != nil {
		return err
	}
	r.opts.TxCount = n
	return nil
}

func (r *Runner) TxCount() int { return r.opts.TxCount }

func (r *Runner) nextProxy() model.Proxy {
	if len(r.opts.Proxies) == 0 {
		return ""
	}
	p := r.opts.Proxies[r.proxyIdx%len(r.opts.Proxies)]
	r.proxyIdx++
	return p
}

// walletRun is one wallet's share of a pass.
type walletRun struct {
	r       *Runner
	passID  string
	session Session
	log     logger.Logger
	report  *model.WalletReport
}

// do runs one fund-moving call, records it and counts it. It returns an
// error only when the wallet or the whole run has to stop.
func (w *walletRun) do(ctx context.Context, op model.Operation, call func() error) error {
	op.PassID = w.passID
	op.Wallet = w.report.Name
	op.Address = w.report.Address

	err := call()
	op.At = w.r.clock.Now()
	disp := Classify(err)
	switch disp {
	case Continue:
		op.Status = model.StatusSucceeded
		w.report.Succeeded++
	case Skip:
		op.Status = model.StatusSkipped
		w.report.Skipped++
		w.log.Warn(fmt.Sprintf("%s skipped: %v", op.Kind, err))
	case AbortRun:
		return err
	default:
		op.Status = model.StatusFailed
		w.report.Failed++
		w.log.Error(fmt.Sprintf("%s failed: %v", op.Kind, err))
	}
	if err != nil {
		op.Error = err.Error()
	}
	w.record(ctx, op)

	if disp == AbortWallet {
		return err
	}
	return nil
}

// skip counts an operation that could not even be built.
func (w *walletRun) skip(ctx context.Context, op model.Operation, reason string) {
	op.PassID = w.passID
	op.Wallet = w.report.Name
	op.Address = w.report.Address
	op.Status = model.StatusSkipped
	op.Error = reason
	op.At = w.r.clock.Now()
	w.report.Skipped++
	w.log.Warn(fmt.Sprintf("%s skipped: %s", op.Kind, reason))
	w.record(ctx, op)
}

func (w *walletRun) record(ctx context.Context, op model.Operation) {
	if w.r.opts.Ledger == nil {
		return
	}
	if err := w.r.opts.Ledger.Record(context.WithoutCancel(ctx), op); err != nil {
		w.log.Warn(fmt.Sprintf("Warning: failed to record operation: %v", err))
	}
}

func (w *walletRun) delay(ctx context.Context) error {
	return w.r.clock.Sleep(ctx, randomDelay(w.r.rnd))
}

type walletFunc func(ctx context.Context, w *walletRun) error

// pass visits every wallet once. It stops early only on cancellation or a
// run-level error; per-wallet failures are recorded in the report.
func (r *Runner) pass(ctx context.Context, mode Mode, pause time.Duration, fn walletFunc) (report model.PassReport, err error) {
	report = model.PassReport{ID: uuid.NewString(), Mode: string(mode), Started: r.clock.Now()}
	defer func() {
		report.Finished = r.clock.Now()
		if r.opts.OnPassComplete != nil {
			r.opts.OnPassComplete(report)
		}
	}()

	r.log.Info(fmt.Sprintf("Starting %s for %d wallet(s)", mode, len(r.opts.Wallets)))
	for i, wallet := range r.opts.Wallets {
		if i > 0 {
			if err := r.clock.Sleep(ctx, pause); err != nil {
				return report, err
			}
		}
		proxy := r.nextProxy()
		log := r.opts.WalletLogger(wallet.Name)
		log.Info(fmt.Sprintf("Processing wallet %d/%d: %s", i+1, len(r.opts.Wallets), wallet.Name))

		wr := &walletRun{
			r:      r,
			passID: report.ID,
			log:    log,
			report: &model.WalletReport{Name: wallet.Name, Address: wallet.Address},
		}
		runErr := r.runWallet(ctx, wallet, proxy, wr, fn)
		if runErr != nil {
			wr.report.Aborted = runErr.Error()
		}
		report.Wallets = append(report.Wallets, *wr.report)

		if runErr == nil {
			continue
		}
		if Classify(runErr) == AbortRun {
			return report, runErr
		}
		log.Error(fmt.Sprintf("Error: %v", runErr))
	}
	return report, nil
}

func (r *Runner) runWallet(ctx context.Context, wallet model.WalletIdentity, proxy model.Proxy, wr *walletRun, fn walletFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	session, err := r.opts.NewSession(wallet, proxy)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	wr.session = session
	if _, err := session.Login(ctx, r.opts.CaptchaToken); err != nil {
		return err
	}
	return fn(ctx, wr)
}

func (r *Runner) finish(report model.PassReport, err error) (model.PassReport, error) {
	s, f, k := report.Totals()
	r.log.Success(fmt.Sprintf("Pass %s finished: %d succeeded, %d failed, %d skipped", report.Mode, s, f, k))
	return report, err
}

// AutoSwap runs TxCount random swaps per wallet, sourcing from assets the
// wallet has supplied.
func (r *Runner) AutoSwap(ctx context.Context) (model.PassReport, error) {
	return r.finish(r.pass(ctx, ModeAutoSwap, walletPause, func(ctx context.Context, w *walletRun) error {
		owned, err := r.owned(ctx, w)
		if err != nil {
			return err
		}
		if len(owned) == 0 {
			w.log.Warn("No supplied assets found to swap")
			return nil
		}
		for i := 0; i < r.opts.TxCount; i++ {
			w.log.Process(fmt.Sprintf("Executing swap %d/%d", i+1, r.opts.TxCount))
			if err := r.randomSwap(ctx, w, owned); err != nil {
				return err
			}
			if i < r.opts.TxCount-1 {
				if err := w.delay(ctx); err != nil {
					return err
				}
			}
		}
		return nil
	}))
}

// Swap runs the same manual swap TxCount times per wallet.
func (r *Runner) Swap(ctx context.Context, from, to model.Token, amount decimal.Decimal) (model.PassReport, error) {
	toAmount := ConvertSwap(amount, from, to)
	r.log.Info(fmt.Sprintf("Starting Manual Swap: %s %s -> %s", amount, from.Symbol, to.Symbol))
	return r.finish(r.pass(ctx, ModeSwap, walletPause, func(ctx context.Context, w *walletRun) error {
		return r.repeat(ctx, w, func(i int) error {
			w.log.Process(fmt.Sprintf("Executing swap %d/%d", i+1, r.opts.TxCount))
			return r.swapOnce(ctx, w, from, to, amount, toAmount)
		})
	}))
}

func (r *Runner) Supply(ctx context.Context, symbol string, amount decimal.Decimal) (model.PassReport, error) {
	return r.assetPass(ctx, ModeSupply, model.OpSupply, symbol, amount)
}

func (r *Runner) Withdraw(ctx context.Context, symbol string, amount decimal.Decimal) (model.PassReport, error) {
	return r.assetPass(ctx, ModeWithdraw, model.OpWithdraw, symbol, amount)
}

func (r *Runner) Borrow(ctx context.Context, symbol string, amount decimal.Decimal) (model.PassReport, error) {
	return r.assetPass(ctx, ModeBorrow, model.OpBorrow, symbol, amount)
}

func (r *Runner) Repay(ctx context.Context, symbol string, amount decimal.Decimal) (model.PassReport, error) {
	return r.assetPass(ctx, ModeRepay, model.OpRepay, symbol, amount)
}

func (r *Runner) assetPass(ctx context.Context, mode Mode, kind model.OperationKind, symbol string, amount decimal.Decimal) (model.PassReport, error) {
	r.log.Info(fmt.Sprintf("Starting %s: %s %s", kind, amount, symbol))
	return r.finish(r.pass(ctx, mode, walletPause, func(ctx context.Context, w *walletRun) error {
		return r.repeat(ctx, w, func(i int) error {
			w.log.Process(fmt.Sprintf("Executing %s %d/%d", kind, i+1, r.opts.TxCount))
			return r.assetOnce(ctx, w, kind, symbol, amount)
		})
	}))
}

// CheckIn performs the daily check-in for every wallet.
func (r *Runner) CheckIn(ctx context.Context) (model.PassReport, error) {
	return r.finish(r.pass(ctx, ModeCheckIn, walletPause, func(ctx context.Context, w *walletRun) error {
		w.log.Process("Daily check-in...")
		return r.checkIn(ctx, w)
	}))
}

// AutoAll repeats the full daily routine until ctx is cancelled, waiting
// CycleInterval between passes.
func (r *Runner) AutoAll(ctx context.Context) error {
	r.log.Info(fmt.Sprintf("Starting Auto All for %d wallet(s)", len(r.opts.Wallets)))
	for {
		if _, err := r.finish(r.pass(ctx, ModeAutoAll, autoAllPause, r.autoAllWallet)); err != nil {
			return err
		}
		r.log.Success("Daily run completed for all wallets")

		next := r.clock.Now().Add(r.opts.CycleInterval)
		if r.opts.OnWait != nil {
			r.opts.OnWait(next)
		}
		r.log.Info(fmt.Sprintf("Waiting %s for next run...", r.opts.CycleInterval))
		if err := r.clock.Sleep(ctx, r.opts.CycleInterval); err != nil {
			return err
		}
	}
}

func (r *Runner) autoAllWallet(ctx context.Context, w *walletRun) error {
	w.log.Process("Daily check-in...")
	if err := r.checkIn(ctx, w); err != nil {
		return err
	}

	owned, err := r.owned(ctx, w)
	if err != nil {
		return err
	}
	if len(owned) > 0 {
		w.log.Process(fmt.Sprintf("Executing %d swaps...", r.opts.TxCount))
		for i := 0; i < r.opts.TxCount; i++ {
			if err := r.randomSwap(ctx, w, owned); err != nil {
				return err
			}
			if err := w.delay(ctx); err != nil {
				return err
			}
		}
	} else {
		w.log.Warn("No supplied assets found to swap")
	}

	for _, kind := range []model.OperationKind{model.OpSupply, model.OpWithdraw, model.OpBorrow, model.OpRepay} {
		w.log.Process(fmt.Sprintf("Executing %d %s(s)...", r.opts.TxCount, kind))
		for i := 0; i < r.opts.TxCount; i++ {
			if len(r.opts.Tokens) == 0 {
				w.skip(ctx, model.Operation{Kind: kind}, "token list is empty")
			} else {
				token := r.opts.Tokens[r.rnd.IntN(len(r.opts.Tokens))]
				amount := RandomAmount(r.rnd, r.opts.Policy.MaxAmountPerTransaction)
				if err := r.assetOnce(ctx, w, kind, token.Symbol, amount); err != nil {
					return err
				}
			}
			if err := w.delay(ctx); err != nil {
				return err
			}
		}
	}
	w.log.Success("All operations completed")
	return nil
}

// repeat runs op TxCount times with a random delay between runs.
func (r *Runner) repeat(ctx context.Context, w *walletRun, op func(i int) error) error {
	for i := 0; i < r.opts.TxCount; i++ {
		if err := op(i); err != nil {
			return err
		}
		if i < r.opts.TxCount-1 {
			if err := w.delay(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) owned(ctx context.Context, w *walletRun) ([]model.SupplyPosition, error) {
	supplies, err := w.session.GetSupplies(ctx)
	if err != nil {
		return nil, fmt.Errorf("get supplies: %w", err)
	}
	return ownedAssets(supplies), nil
}

func (r *Runner) randomSwap(ctx context.Context, w *walletRun, owned []model.SupplyPosition) error {
	asset := owned[r.rnd.IntN(len(owned))]
	from, ok := model.FindToken(r.opts.Tokens, asset.Symbol)
	if !ok {
		w.skip(ctx, model.Operation{Kind: model.OpSwap, Symbol: asset.Symbol}, "token not in token list")
		return nil
	}
	candidates := make([]model.Token, 0, len(r.opts.Tokens))
	for _, t := range r.opts.Tokens {
		if t.Symbol != from.Symbol {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		w.skip(ctx, model.Operation{Kind: model.OpSwap, Symbol: from.Symbol}, "no swap target available")
		return nil
	}
	to := candidates[r.rnd.IntN(len(candidates))]
	amount := RandomAmount(r.rnd, r.opts.Policy.MaxAmountPerTransaction)
	return r.swapOnce(ctx, w, from, to, amount, ConvertSwap(amount, from, to))
}

func (r *Runner) swapOnce(ctx context.Context, w *walletRun, from, to model.Token, amount, toAmount decimal.Decimal) error {
	op := model.Operation{Kind: model.OpSwap, Symbol: from.Symbol, Target: to.Symbol, Amount: amount}
	return w.do(ctx, op, func() error {
		_, err := w.session.Swap(ctx, SwapRequest{
			FromSymbol: from.Symbol,
			ToSymbol:   to.Symbol,
			FromAmount: amount,
			ToAmount:   toAmount,
		})
		if err == nil {
			w.log.Success(fmt.Sprintf("Swapped %s %s -> %s %s", amount.StringFixed(6), from.Symbol, toAmount.StringFixed(6), to.Symbol))
		}
		return err
	})
}

func (r *Runner) assetOnce(ctx context.Context, w *walletRun, kind model.OperationKind, symbol string, amount decimal.Decimal) error {
	op := model.Operation{Kind: kind, Symbol: symbol, Amount: amount}
	return w.do(ctx, op, func() error {
		var err error
		switch kind {
		case model.OpSupply:
			_, err = w.session.Supply(ctx, symbol, amount)
		case model.OpWithdraw:
			_, err = w.session.Withdraw(ctx, symbol, amount)
		case model.OpBorrow:
			_, err = w.session.Borrow(ctx, symbol, amount)
		case model.OpRepay:
			_, err = w.session.Repay(ctx, symbol, amount)
		default:
			err = fmt.Errorf("unsupported operation %q", kind)
		}
		if err == nil {
			w.log.Success(fmt.Sprintf("%s %s %s done", kind, amount.StringFixed(6), symbol))
		}
		return err
	})
}

func (r *Runner) checkIn(ctx context.Context, w *walletRun) error {
	return w.do(ctx, model.Operation{Kind: model.OpCheckIn}, func() error {
		_, err := w.session.CheckIn(ctx)
		if err == nil {
			w.log.Success("Daily check-in complete")
		}
		return err
	})
}
