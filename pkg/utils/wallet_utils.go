package utils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	bip32 "github.com/tyler-smith/go-bip32"
	bip39 "github.com/tyler-smith/go-bip39"
)

var pkRegex = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

const (
	KindMnemonic   = "Secret Phrase"
	KindPrivateKey = "Private Key"
	KindUnknown    = "Unknown"
)

func ShortenAddress(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

func DetermineType(input string) string {
	if IsMnemonic(input) {
		return KindMnemonic
	}
	if IsPrivateKey(input) {
		return KindPrivateKey
	}
	return KindUnknown
}

func IsMnemonic(input string) bool {
	return bip39.IsMnemonicValid(normalizePhrase(input))
}

func IsPrivateKey(input string) bool {
	data := strings.TrimPrefix(strings.TrimSpace(input), "0x")
	return pkRegex.MatchString(data)
}

// NormalizePrivateKey trims the key and makes sure it carries a 0x prefix.
func NormalizePrivateKey(input string) string {
	data := strings.TrimSpace(input)
	if !strings.HasPrefix(data, "0x") {
		data = "0x" + data
	}
	return data
}

func PrivateKeyFromHex(input string) (*ecdsa.PrivateKey, error) {
	data := strings.TrimPrefix(strings.TrimSpace(input), "0x")
	return crypto.HexToECDSA(data)
}

// accountPath is m/44'/60'/0'/0/0, the first Ethereum account.
var accountPath = []uint32{
	bip32.FirstHardenedChild + 44,
	bip32.FirstHardenedChild + 60,
	bip32.FirstHardenedChild,
	0,
	0,
}

// PrivateKeyFromMnemonic derives the key of the first Ethereum account.
func PrivateKeyFromMnemonic(mnemonic, passphrase string) (*ecdsa.PrivateKey, error) {
	mnemonic = normalizePhrase(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid BIP-39 mnemonic")
	}
	key, err := bip32.NewMasterKey(bip39.NewSeed(mnemonic, passphrase))
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}
	for depth, idx := range accountPath {
		if key, err = key.NewChildKey(idx); err != nil {
			return nil, fmt.Errorf("derive level %d: %w", depth+1, err)
		}
	}
	return crypto.ToECDSA(key.Key)
}

func normalizePhrase(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
