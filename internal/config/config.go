package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	KeyWalletsFile      = "wallets_file"
	KeyProxiesFile      = "proxies_file"
	KeyCaptchaKeyFile   = "captcha_key_file"
	KeyTwoCaptchaAPIKey = "two_captcha_api_key"
	KeyCapSolverAPIKey  = "capsolver_api_key"
	KeyInviteCode       = "invite_code"
	KeyTxCount          = "tx_count"
	KeyAPIBaseURL       = "api_base_url"
	KeyCaptchaBaseURL   = "captcha_base_url"
	KeyCapSolverBaseURL = "capsolver_base_url"
	KeySignTemplateFile = "sign_template_file"
	KeyLogFile          = "log_file"
	KeyLedgerFile       = "ledger_file"
	KeyMaxTxAmount      = "max_tx_amount"
	KeyMaxTxPerHour     = "max_tx_per_hour"
	KeyRequireConfirm   = "require_confirmation"
)

const (
	MinTxCount = 1
	MaxTxCount = 100
)

// RateLimitPolicy is the wallet-drain guard applied by every session.
type RateLimitPolicy struct {
	MaxAmountPerTransaction  decimal.Decimal
	MinBalanceThreshold      decimal.Decimal
	MaxTransactionsPerWindow int
	Window                   time.Duration
	RequireConfirmation      bool
}

func DefaultPolicy() RateLimitPolicy {
	return RateLimitPolicy{
		MaxAmountPerTransaction:  decimal.RequireFromString("0.01"),
		MinBalanceThreshold:      decimal.RequireFromString("0.001"),
		MaxTransactionsPerWindow: 100,
		Window:                   time.Hour,
	}
}

type Config struct {
	WalletsPath      string
	ProxiesPath      string
	CaptchaKeyPath   string
	TwoCaptchaAPIKey string
	CapSolverAPIKey  string
	InviteCode       string
	TxCount          int
	APIBaseURL       string
	CaptchaBaseURL   string
	CapSolverBaseURL string
	SignTemplate     string
	LogPath          string
	LedgerPath       string
	Policy           RateLimitPolicy
	Service          Service
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyWalletsFile, "private_keys.txt")
	v.SetDefault(KeyProxiesFile, "proxies.txt")
	v.SetDefault(KeyCaptchaKeyFile, "2captcha.txt")
	v.SetDefault(KeyTxCount, 1)
	v.SetDefault(KeyAPIBaseURL, BlockStreet.APIBaseURL)
	v.SetDefault(KeyCaptchaBaseURL, "http://2captcha.com")
	v.SetDefault(KeyCapSolverBaseURL, "https://api.capsolver.com")
	v.SetDefault(KeyLogFile, "logs/app.log")
	v.SetDefault(KeyLedgerFile, "data/ledger.db")
	v.SetDefault(KeyMaxTxAmount, DefaultPolicy().MaxAmountPerTransaction.String())
	v.SetDefault(KeyMaxTxPerHour, DefaultPolicy().MaxTransactionsPerWindow)
}

// Load reads .env into the environment, then resolves every setting through
// v (flags bound by the caller win over env, env wins over defaults).
func Load(v *viper.Viper) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}
	return FromViper(v)
}

func FromViper(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.AutomaticEnv()
	setDefaults(v)

	policy := DefaultPolicy()
	ceiling, err := decimal.NewFromString(strings.TrimSpace(v.GetString(KeyMaxTxAmount)))
	if err != nil {
		return Config{}, &ConfigError{Field: "MAX_TX_AMOUNT", Err: err}
	}
	policy.MaxAmountPerTransaction = ceiling
	policy.MaxTransactionsPerWindow = v.GetInt(KeyMaxTxPerHour)
	policy.RequireConfirmation = v.GetBool(KeyRequireConfirm)

	tmpl, err := LoadSignTemplate(v.GetString(KeySignTemplateFile))
	if err != nil {
		return Config{}, err
	}

	return Config{
		WalletsPath:      strings.TrimSpace(v.GetString(KeyWalletsFile)),
		ProxiesPath:      strings.TrimSpace(v.GetString(KeyProxiesFile)),
		CaptchaKeyPath:   strings.TrimSpace(v.GetString(KeyCaptchaKeyFile)),
		TwoCaptchaAPIKey: strings.TrimSpace(v.GetString(KeyTwoCaptchaAPIKey)),
		CapSolverAPIKey:  strings.TrimSpace(v.GetString(KeyCapSolverAPIKey)),
		InviteCode:       strings.TrimSpace(v.GetString(KeyInviteCode)),
		TxCount:          v.GetInt(KeyTxCount),
		APIBaseURL:       strings.TrimRight(strings.TrimSpace(v.GetString(KeyAPIBaseURL)), "/"),
		CaptchaBaseURL:   strings.TrimRight(strings.TrimSpace(v.GetString(KeyCaptchaBaseURL)), "/"),
		CapSolverBaseURL: strings.TrimRight(strings.TrimSpace(v.GetString(KeyCapSolverBaseURL)), "/"),
		SignTemplate:     tmpl,
		LogPath:          strings.TrimSpace(v.GetString(KeyLogFile)),
		LedgerPath:       strings.TrimSpace(v.GetString(KeyLedgerFile)),
		Policy:           policy,
		Service:          BlockStreet,
	}, nil
}

// CheckTxCount reports whether n is a usable per-wallet repetition count.
func CheckTxCount(n int) error {
	if n < MinTxCount || n > MaxTxCount {
		return &ConfigError{Field: "TX_COUNT", Err: fmt.Errorf("must be %d-%d, got %d", MinTxCount, MaxTxCount, n)}
	}
	return nil
}

func (c Config) Validate() error {
	if err := CheckTxCount(c.TxCount); err != nil {
		return err
	}
	if c.Policy.MaxAmountPerTransaction.Sign() <= 0 {
		return &ConfigError{Field: "MAX_TX_AMOUNT", Err: errors.New("must be positive")}
	}
	if c.Policy.MaxTransactionsPerWindow <= 0 {
		return &ConfigError{Field: "MAX_TX_PER_HOUR", Err: errors.New("must be positive")}
	}
	if c.APIBaseURL == "" {
		return &ConfigError{Field: "API_BASE_URL", Err: errors.New("required")}
	}
	if c.WalletsPath == "" {
		return &ConfigError{Field: "WALLETS_FILE", Err: errors.New("required")}
	}
	return nil
}
