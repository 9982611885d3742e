package worker

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Wire mapping for request and response bodies.
//
//	SwapRequest.FromSymbol  from_symbol
//	SwapRequest.ToSymbol    to_symbol
//	SwapRequest.FromAmount  from_amount (string)
//	SwapRequest.ToAmount    to_amount (string)
//	assetRequest.Symbol     symbol
//	assetRequest.Amount     amount (string)
//	loginForm.ChainID       chainId
//	loginForm.InviteCode    invite_code
//	model.Token.Price       price
//	model.EarnInfo.TodayEarn today_earn

type SwapRequest struct {
	FromSymbol string          `json:"from_symbol"`
	ToSymbol   string          `json:"to_symbol"`
	FromAmount decimal.Decimal `json:"from_amount"`
	ToAmount   decimal.Decimal `json:"to_amount"`
}

type assetRequest struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}

type loginForm struct {
	Address        string `url:"address"`
	Nonce          string `url:"nonce"`
	Signature      string `url:"signature"`
	ChainID        string `url:"chainId"`
	IssuedAt       string `url:"issuedAt"`
	ExpirationTime string `url:"expirationTime"`
	InviteCode     string `url:"invite_code"`
}

// FormPayload asks Dispatch to send V (a struct with url tags) form-encoded.
type FormPayload struct {
	V interface{}
}

// appCode is the envelope code, which the service sends either as a number
// or as a string.
type appCode struct {
	set   bool
	value string
}

func (c *appCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		c.set, c.value = true, strings.TrimSpace(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	c.set, c.value = true, n.String()
	return nil
}

func (c appCode) ok() bool {
	if !c.set {
		return false
	}
	if c.value == "0" {
		return true
	}
	f, err := strconv.ParseFloat(c.value, 64)
	return err == nil && f == 0
}

type envelope struct {
	Code    appCode         `json:"code"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

// Response is a successful call: HTTP 2xx with envelope code 0.
type Response struct {
	StatusCode int
	Code       string
	Message    string
	Data       json.RawMessage
}

// Decode unmarshals the data part of the response into out.
func (r *Response) Decode(out interface{}) error {
	if r == nil || len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, out)
}
