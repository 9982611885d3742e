package utils

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
)

func TestDetermineType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindPrivateKey, DetermineType(testKey))
	assert.Equal(t, KindPrivateKey, DetermineType("0x"+testKey))
	assert.Equal(t, KindMnemonic, DetermineType(testPhrase))
	assert.Equal(t, KindUnknown, DetermineType("abandon abandon"))
	assert.Equal(t, KindUnknown, DetermineType(testKey[:60]))
}

func TestNormalizePrivateKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0x"+testKey, NormalizePrivateKey(" "+testKey+" "))
	assert.Equal(t, "0x"+testKey, NormalizePrivateKey("0x"+testKey))
}

func TestPrivateKeyFromMnemonicIsDeterministic(t *testing.T) {
	t.Parallel()

	a, err := PrivateKeyFromMnemonic(testPhrase, "")
	require.NoError(t, err)
	b, err := PrivateKeyFromMnemonic(testPhrase, "")
	require.NoError(t, err)
	assert.Equal(t, crypto.FromECDSA(a), crypto.FromECDSA(b))

	c, err := PrivateKeyFromMnemonic(testPhrase, "passphrase")
	require.NoError(t, err)
	assert.NotEqual(t, crypto.FromECDSA(a), crypto.FromECDSA(c))

	_, err = PrivateKeyFromMnemonic("not a phrase", "")
	require.Error(t, err)
}

func TestShortenAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0x2c75...5c23", ShortenAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"))
	assert.Equal(t, "short", ShortenAddress("short"))
}
