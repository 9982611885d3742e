package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/domain/model"
)

// Signer produces EIP-191 personal_sign signatures for one wallet.
type Signer struct {
	identity model.WalletIdentity
}

func New(identity model.WalletIdentity) (*Signer, error) {
	if identity.PrivateKey() == nil {
		return nil, errors.New("[New Signer] Error : wallet has no private key")
	}
	return &Signer{identity: identity}, nil
}

func (s *Signer) Address() string { return s.identity.Address }

// SignMessage signs message exactly as given and returns the 65-byte
// signature as 0x-prefixed hex with v in {27, 28}.
func (s *Signer) SignMessage(message string) (string, error) {
	scope := "[SignMessage] Error :"
	msgHash := accounts.TextHash([]byte(message))
	signature, err := crypto.Sign(msgHash, s.identity.PrivateKey())
	if err != nil {
		return "", fmt.Errorf("%s failed to sign message: %w", scope, err)
	}

	if signature[64] < 27 {
		signature[64] += 27
	}
	return hexutil.Encode(signature), nil
}

// Recover returns the address that produced signature over message.
func Recover(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature length %d, want %d", len(sig), crypto.SignatureLength)
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
