package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/domain/model"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/storage/oplog"
	"github.com/ohmynofan/blockstreet-auto-bot/pkg/utils"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidTxCount = errors.New("invalid transaction count")
)

func Banner(service string) {
	_ = pterm.DefaultBigText.WithLetters(putils.LettersFromString(strings.ToUpper(service))).Render()
	pterm.DefaultCenter.Println(pterm.Gray("auto bot - swap, supply, withdraw, borrow, repay, check-in"))
}

func WalletTable(wallets []model.WalletIdentity, proxies []model.Proxy) {
	pterm.DefaultSection.Println("Wallet Configuration")
	_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(walletRows(wallets, proxies)).Render()
}

func walletRows(wallets []model.WalletIdentity, proxies []model.Proxy) pterm.TableData {
	rows := pterm.TableData{{"#", "Name", "Address", "Proxy"}}
	for i, w := range wallets {
		proxy := "direct"
		if len(proxies) > 0 {
			proxy = maskProxy(proxies[i%len(proxies)])
		}
		rows = append(rows, []string{fmt.Sprint(i + 1), w.Name, utils.ShortenAddress(w.Address), proxy})
	}
	return rows
}

// maskProxy hides proxy credentials.
func maskProxy(p model.Proxy) string {
	s := p.String()
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return s
	}
	scheme := ""
	if i := strings.Index(s, "://"); i >= 0 {
		scheme = s[:i+3]
	}
	return scheme + "***@" + s[at+1:]
}

func SecurityTable(p config.RateLimitPolicy) {
	pterm.DefaultSection.Println("Security Settings")
	_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(securityRows(p)).Render()
}

func securityRows(p config.RateLimitPolicy) pterm.TableData {
	return pterm.TableData{
		{"Setting", "Value"},
		{"Max amount per transaction", p.MaxAmountPerTransaction.String()},
		{"Min balance threshold", p.MinBalanceThreshold.String()},
		{"Max transactions per window", fmt.Sprint(p.MaxTransactionsPerWindow)},
		{"Window", p.Window.String()},
		{"Require confirmation", fmt.Sprint(p.RequireConfirmation)},
	}
}

func EarnBalance(wallet string, info model.EarnInfo) {
	pterm.DefaultBox.WithTitle(wallet).Println(fmt.Sprintf(
		"Balance : %s\nToday   : %s\nTotal   : %s",
		info.Balance.String(), info.TodayEarn.String(), info.TotalEarn.String()))
}

func PassSummary(report model.PassReport) {
	succeeded, failed, skipped := report.Totals()
	pterm.DefaultSection.Println(fmt.Sprintf("Pass %s (%s) finished in %s",
		shortID(report.ID), report.Mode, FormatDelay(report.Finished.Sub(report.Started))))
	_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(passRows(report)).Render()
	pterm.Info.Println(fmt.Sprintf("Total: %d succeeded, %d failed, %d skipped", succeeded, failed, skipped))
}

func passRows(report model.PassReport) pterm.TableData {
	rows := pterm.TableData{{"Wallet", "Address", "OK", "Failed", "Skipped", "Aborted"}}
	for _, w := range report.Wallets {
		aborted := "-"
		if w.Aborted != "" {
			aborted = utils.TruncateForLog(w.Aborted, 60)
		}
		rows = append(rows, []string{
			w.Name, utils.ShortenAddress(w.Address),
			fmt.Sprint(w.Succeeded), fmt.Sprint(w.Failed), fmt.Sprint(w.Skipped), aborted,
		})
	}
	return rows
}

func DailySummary(sums []oplog.Summary) {
	if len(sums) == 0 {
		return
	}
	pterm.DefaultSection.Println("Today")
	_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(dailyRows(sums)).Render()
}

func dailyRows(sums []oplog.Summary) pterm.TableData {
	rows := pterm.TableData{{"Address", "Day", "OK", "Failed", "Skipped", "Volume"}}
	for _, s := range sums {
		rows = append(rows, []string{
			utils.ShortenAddress(s.Address), s.Day,
			fmt.Sprint(s.Succeeded), fmt.Sprint(s.Failed), fmt.Sprint(s.Skipped), formatVolume(s.Volume),
		})
	}
	return rows
}

func formatVolume(v map[model.OperationKind]decimal.Decimal) string {
	kinds := []model.OperationKind{model.OpSwap, model.OpSupply, model.OpWithdraw, model.OpBorrow, model.OpRepay}
	var parts []string
	for _, k := range kinds {
		if d, ok := v[k]; ok && !d.IsZero() {
			parts = append(parts, fmt.Sprintf("%s %s", k, d.String()))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// NextRun prints the next auto-all start once.
func NextRun(next, now time.Time) {
	pterm.Info.Println(fmt.Sprintf("Next cycle at %s (in %s)",
		next.Format("2006-01-02 15:04:05"), FormatDelay(next.Sub(now))))
}

func FormatDelay(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d H %02d M %02d S", h, m, s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type Spinner struct {
	sp *pterm.SpinnerPrinter
}

func StartSpinner(text string) *Spinner {
	sp, err := pterm.DefaultSpinner.WithRemoveWhenDone(false).Start(text)
	if err != nil {
		return &Spinner{}
	}
	return &Spinner{sp: sp}
}

func (s *Spinner) Success(msg string) {
	if s.sp != nil {
		s.sp.Success(msg)
	}
}

func (s *Spinner) Fail(msg string) {
	if s.sp != nil {
		s.sp.Fail(msg)
	}
}

func Select(prompt string, options []string) (string, error) {
	return pterm.DefaultInteractiveSelect.WithOptions(options).WithDefaultText(prompt).Show()
}

func SelectToken(prompt string, tokens []model.Token, exclude string) (model.Token, error) {
	var options []string
	for _, t := range tokens {
		if t.Symbol != exclude {
			options = append(options, t.Symbol)
		}
	}
	if len(options) == 0 {
		return model.Token{}, errors.New("no tokens available")
	}
	symbol, err := Select(prompt, options)
	if err != nil {
		return model.Token{}, err
	}
	t, _ := model.FindToken(tokens, symbol)
	return t, nil
}

func InputAmount(prompt string, ceiling decimal.Decimal) (decimal.Decimal, error) {
	text, err := pterm.DefaultInteractiveTextInput.Show(fmt.Sprintf("%s (max %s)", prompt, ceiling.String()))
	if err != nil {
		return decimal.Zero, err
	}
	return ParseAmount(text, ceiling)
}

// ParseAmount accepts a positive decimal no larger than ceiling.
func ParseAmount(text string, ceiling decimal.Decimal) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if ceiling.Sign() > 0 && d.GreaterThan(ceiling) {
		return decimal.Zero, fmt.Errorf("%w: %s exceeds %s", ErrInvalidAmount, d.String(), ceiling.String())
	}
	return d, nil
}

func InputTxCount(current int) (int, error) {
	text, err := pterm.DefaultInteractiveTextInput.
		WithDefaultValue(strconv.Itoa(current)).
		Show(fmt.Sprintf("Transactions per wallet (%d-%d)", config.MinTxCount, config.MaxTxCount))
	if err != nil {
		return 0, err
	}
	return ParseTxCount(text)
}

func ParseTxCount(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTxCount, text)
	}
	if err := config.CheckTxCount(n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTxCount, err)
	}
	return n, nil
}

func Confirm(prompt string) (bool, error) {
	return pterm.DefaultInteractiveConfirm.Show(prompt)
}
