package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OperationKind string

const (
	OpSwap     OperationKind = "swap"
	OpSupply   OperationKind = "supply"
	OpWithdraw OperationKind = "withdraw"
	OpBorrow   OperationKind = "borrow"
	OpRepay    OperationKind = "repay"
	OpCheckIn  OperationKind = "checkin"
)

type OperationStatus string

const (
	StatusSucceeded OperationStatus = "succeeded"
	StatusFailed    OperationStatus = "failed"
	StatusSkipped   OperationStatus = "skipped"
)

// Operation is one attempted fund-moving call as recorded in the ledger.
type Operation struct {
	PassID  string
	Wallet  string
	Address string
	Kind    OperationKind
	Symbol  string
	Target  string
	Amount  decimal.Decimal
	Status  OperationStatus
	Error   string
	At      time.Time
}

type WalletReport struct {
	Name      string
	Address   string
	Succeeded int
	Failed    int
	Skipped   int
	Aborted   string
}

type PassReport struct {
	ID       string
	Mode     string
	Started  time.Time
	Finished time.Time
	Wallets  []WalletReport
}

func (r PassReport) Totals() (succeeded, failed, skipped int) {
	for _, w := range r.Wallets {
		succeeded += w.Succeeded
		failed += w.Failed
		skipped += w.Skipped
	}
	return succeeded, failed, skipped
}
