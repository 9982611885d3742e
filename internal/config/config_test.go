package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := FromViper(newViper(map[string]any{
		KeyTxCount:      1,
		KeyAPIBaseURL:   "https://api.blockstreet.money/",
		KeyWalletsFile:  "private_keys.txt",
		KeyMaxTxAmount:  "0.01",
		KeyMaxTxPerHour: 100,
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://api.blockstreet.money", cfg.APIBaseURL)
	assert.Equal(t, DefaultSignTemplate, cfg.SignTemplate)
	assert.Equal(t, "0.01", cfg.Policy.MaxAmountPerTransaction.String())
	assert.Equal(t, 100, cfg.Policy.MaxTransactionsPerWindow)
	assert.Equal(t, BlockStreet, cfg.Service)
	require.NoError(t, cfg.Validate())
}

func TestFromViperOverrides(t *testing.T) {
	t.Parallel()

	tmpl := writeFile(t, "sign.txt", "custom message\nNonce: n1\n")
	cfg, err := FromViper(newViper(map[string]any{
		KeyTxCount:          25,
		KeyMaxTxAmount:      "0.5",
		KeyMaxTxPerHour:     10,
		KeyInviteCode:       " INV ",
		KeySignTemplateFile: tmpl,
		KeyRequireConfirm:   true,
	}))
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.TxCount)
	assert.Equal(t, "0.5", cfg.Policy.MaxAmountPerTransaction.String())
	assert.Equal(t, 10, cfg.Policy.MaxTransactionsPerWindow)
	assert.Equal(t, "INV", cfg.InviteCode)
	assert.Equal(t, "custom message\nNonce: n1", cfg.SignTemplate)
	assert.True(t, cfg.Policy.RequireConfirmation)
}

func TestFromViperRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := FromViper(newViper(map[string]any{KeyMaxTxAmount: "lots"}))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "MAX_TX_AMOUNT", cfgErr.Field)

	_, err = FromViper(newViper(map[string]any{
		KeyMaxTxAmount:      "0.01",
		KeySignTemplateFile: filepath.Join(t.TempDir(), "missing.txt"),
	}))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "sign template", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := Config{
		TxCount:     1,
		APIBaseURL:  "https://api.example",
		WalletsPath: "keys.txt",
		Policy:      DefaultPolicy(),
	}
	require.NoError(t, base.Validate())

	cases := map[string]func(c *Config){
		"TX_COUNT":        func(c *Config) { c.TxCount = 0 },
		"MAX_TX_AMOUNT":   func(c *Config) { c.Policy.MaxAmountPerTransaction = c.Policy.MaxAmountPerTransaction.Neg() },
		"MAX_TX_PER_HOUR": func(c *Config) { c.Policy.MaxTransactionsPerWindow = 0 },
		"API_BASE_URL":    func(c *Config) { c.APIBaseURL = "" },
		"WALLETS_FILE":    func(c *Config) { c.WalletsPath = "" },
	}
	for field, mutate := range cases {
		c := base
		mutate(&c)
		err := c.Validate()
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr, field)
		assert.Equal(t, field, cfgErr.Field)
	}

	c := base
	c.TxCount = MaxTxCount + 1
	require.Error(t, c.Validate())
	c.TxCount = MaxTxCount
	require.NoError(t, c.Validate())
}

func TestLoadSignTemplate(t *testing.T) {
	t.Parallel()

	tmpl, err := LoadSignTemplate("  ")
	require.NoError(t, err)
	assert.Equal(t, DefaultSignTemplate, tmpl)

	_, err = LoadSignTemplate(writeFile(t, "blank.txt", "  \n"))
	require.Error(t, err)
}
