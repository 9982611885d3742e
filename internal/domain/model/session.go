package model

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// WalletIdentity is one loaded signing identity. The key never leaves this
// struct except through PrivateKey, and never renders through fmt.
type WalletIdentity struct {
	Name    string
	Address string
	key     *ecdsa.PrivateKey
}

func NewWalletIdentity(name string, key *ecdsa.PrivateKey) WalletIdentity {
	return WalletIdentity{
		Name:    name,
		Address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		key:     key,
	}
}

func (w WalletIdentity) PrivateKey() *ecdsa.PrivateKey { return w.key }

func (w WalletIdentity) String() string {
	return fmt.Sprintf("%s (%s)", w.Name, w.Address)
}

func (w WalletIdentity) GoString() string {
	return fmt.Sprintf("model.WalletIdentity{Name:%q, Address:%q}", w.Name, w.Address)
}

// Proxy is a normalized proxy URL: http://[user:pass@]host:port.
type Proxy string

func (p Proxy) String() string { return string(p) }

// LoginState tracks where a session is in its authentication lifecycle.
type LoginState int

const (
	Unauthenticated LoginState = iota
	Authenticating
	Authenticated
	Failed
)

func (s LoginState) String() string {
	switch s {
	case Unauthenticated:
		return "UNAUTHENTICATED"
	case Authenticating:
		return "AUTHENTICATING"
	case Authenticated:
		return "AUTHENTICATED"
	case Failed:
		return "FAILED"
	}
	return fmt.Sprintf("LoginState(%d)", int(s))
}
