package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/adapters/captcha"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
	"github.com/shopspring/decimal"
)

// AuthError is a failed signverify. The wallet cannot continue this pass.
type AuthError struct {
	Wallet string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Wallet, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RequestError is a non-2xx response, a non-zero envelope code, or a
// transport failure (StatusCode 0).
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Code       string
	Message    string
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Code != "":
		return fmt.Sprintf("%s %s: HTTP %d code=%s message=%s", e.Method, e.Path, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error { return e.Err }

type RateLimitError struct {
	Wallet string
	Limit  int
	Window time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %d operations per %s", e.Wallet, e.Limit, e.Window)
}

type AmountLimitError struct {
	Amount  decimal.Decimal
	Ceiling decimal.Decimal
}

func (e *AmountLimitError) Error() string {
	return fmt.Sprintf("amount %s exceeds security limit %s", e.Amount, e.Ceiling)
}

// Disposition tells the runner what to do after an operation error.
type Disposition int

const (
	// Continue means no error.
	Continue Disposition = iota
	Skip
	Fail
	AbortWallet
	AbortRun
)

func (d Disposition) String() string {
	switch d {
	case Continue:
		return "continue"
	case Skip:
		return "skip"
	case Fail:
		return "fail"
	case AbortWallet:
		return "abort-wallet"
	case AbortRun:
		return "abort-run"
	}
	return fmt.Sprintf("Disposition(%d)", int(d))
}

func Classify(err error) Disposition {
	if err == nil {
		return Continue
	}
	var (
		rateErr    *RateLimitError
		amountErr  *AmountLimitError
		authErr    *AuthError
		reqErr     *RequestError
		cfgErr     *config.ConfigError
		submitErr  *captcha.SubmitError
		solveErr   *captcha.SolveError
		timeoutErr *captcha.TimeoutError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return AbortRun
	case errors.As(err, &rateErr), errors.As(err, &amountErr):
		return Skip
	case errors.As(err, &authErr):
		return AbortWallet
	case errors.As(err, &cfgErr), errors.As(err, &submitErr), errors.As(err, &solveErr), errors.As(err, &timeoutErr):
		return AbortRun
	case errors.As(err, &reqErr):
		return Fail
	}
	return Fail
}
