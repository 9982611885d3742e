package worker

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/domain/model"
	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeAutoSwap Mode = "auto-swap"
	ModeSwap     Mode = "swap"
	ModeSupply   Mode = "supply"
	ModeWithdraw Mode = "withdraw"
	ModeBorrow   Mode = "borrow"
	ModeRepay    Mode = "repay"
	ModeCheckIn  Mode = "check-in"
	ModeAutoAll  Mode = "auto-all"
)

const (
	opDelayMin     = 5 * time.Second
	opDelayMax     = 10 * time.Second
	walletPause    = 3 * time.Second
	autoAllPause   = 5 * time.Second
	defaultCycle   = 24 * time.Hour
	amountDecimals = 8
)

var (
	randomAmountMin = decimal.RequireFromString("0.001")
	randomAmountMax = decimal.RequireFromString("0.0015")
)

// Session is the slice of SessionClient the runner drives.
type Session interface {
	Login(ctx context.Context, captchaToken string) (*SessionInfo, error)
	Swap(ctx context.Context, req SwapRequest) (*Response, error)
	Supply(ctx context.Context, symbol string, amount decimal.Decimal) (*Response, error)
	Withdraw(ctx context.Context, symbol string, amount decimal.Decimal) (*Response, error)
	Borrow(ctx context.Context, symbol string, amount decimal.Decimal) (*Response, error)
	Repay(ctx context.Context, symbol string, amount decimal.Decimal) (*Response, error)
	CheckIn(ctx context.Context) (*Response, error)
	GetSupplies(ctx context.Context) ([]model.SupplyPosition, error)
}

type SessionFactory func(identity model.WalletIdentity, proxy model.Proxy) (Session, error)

// Ledger receives every attempted fund-moving operation.
type Ledger interface {
	Record(ctx context.Context, op model.Operation) error
}

// RandomAmount is uniform in [0.001, 0.0015], clamped to ceiling and
// rounded to 8 decimals.
func RandomAmount(r *rand.Rand, ceiling decimal.Decimal) decimal.Decimal {
	span := randomAmountMax.Sub(randomAmountMin)
	amount := randomAmountMin.Add(span.Mul(decimal.NewFromFloat(r.Float64()))).Round(amountDecimals)
	if ceiling.Sign() > 0 && amount.GreaterThan(ceiling) {
		return ceiling
	}
	return amount
}

// ConvertSwap prices a swap: from * fromPrice / toPrice, with an unquoted
// price treated as 1.
func ConvertSwap(amount decimal.Decimal, from, to model.Token) decimal.Decimal {
	return amount.Mul(from.EffectivePrice()).Div(to.EffectivePrice()).Round(amountDecimals)
}

func randomDelay(r *rand.Rand) time.Duration {
	return opDelayMin + time.Duration(r.Int64N(int64(opDelayMax-opDelayMin)+1))
}

// ownedAssets keeps positions with a positive amount.
func ownedAssets(supplies []model.SupplyPosition) []model.SupplyPosition {
	out := make([]model.SupplyPosition, 0, len(supplies))
	for _, s := range supplies {
		if s.Amount.Sign() > 0 {
			out = append(out, s)
		}
	}
	return out
}
