package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type Token struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// EffectivePrice is the token price, or 1 when the service did not quote one.
func (t Token) EffectivePrice() decimal.Decimal {
	if t.Price.Sign() <= 0 {
		return decimal.NewFromInt(1)
	}
	return t.Price
}

func (t *Token) UnmarshalJSON(b []byte) error {
	var raw struct {
		Symbol string      `json:"symbol"`
		Price  looseAmount `json:"price"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.Symbol, t.Price = raw.Symbol, decimal.Decimal(raw.Price)
	return nil
}

type SupplyPosition struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}

func (p *SupplyPosition) UnmarshalJSON(b []byte) error {
	var raw struct {
		Symbol string      `json:"symbol"`
		Amount looseAmount `json:"amount"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Symbol, p.Amount = raw.Symbol, decimal.Decimal(raw.Amount)
	return nil
}

type EarnInfo struct {
	Balance   decimal.Decimal `json:"balance"`
	TodayEarn decimal.Decimal `json:"today_earn"`
	TotalEarn decimal.Decimal `json:"total_earn"`
}

func (e *EarnInfo) UnmarshalJSON(b []byte) error {
	var raw struct {
		Balance   looseAmount `json:"balance"`
		TodayEarn looseAmount `json:"today_earn"`
		TotalEarn looseAmount `json:"total_earn"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Balance = decimal.Decimal(raw.Balance)
	e.TodayEarn = decimal.Decimal(raw.TodayEarn)
	e.TotalEarn = decimal.Decimal(raw.TotalEarn)
	return nil
}

// looseAmount reads a number or a numeric string. Empty, null and
// unparseable values decode as zero.
type looseAmount decimal.Decimal

func (a *looseAmount) UnmarshalJSON(b []byte) error {
	text := strings.TrimSpace(string(bytes.Trim(bytes.TrimSpace(b), `"`)))
	d, err := decimal.NewFromString(text)
	if err != nil {
		d = decimal.Zero
	}
	*a = looseAmount(d)
	return nil
}

func FindToken(tokens []Token, symbol string) (Token, bool) {
	for _, t := range tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return Token{}, false
}
