package worker

import (
	"errors"
	"strings"
	"sync"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/domain/model"
)

// SessionPool holds one SessionClient per wallet address for the life of
// the process, so a wallet's guard window carries over between passes.
type SessionPool struct {
	create func(model.WalletIdentity, model.Proxy) (*SessionClient, error)

	mu       sync.Mutex
	sessions map[string]*SessionClient
}

func NewSessionPool(create func(model.WalletIdentity, model.Proxy) (*SessionClient, error)) (*SessionPool, error) {
	if create == nil {
		return nil, errors.New("session pool needs a constructor")
	}
	return &SessionPool{create: create, sessions: make(map[string]*SessionClient)}, nil
}

// Get returns the wallet's session, creating it on first use. An existing
// session is moved onto proxy.
func (p *SessionPool) Get(id model.WalletIdentity, proxy model.Proxy) (*SessionClient, error) {
	key := strings.ToLower(id.Address)

	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[key]; ok {
		if err := s.UseProxy(proxy); err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := p.create(id, proxy)
	if err != nil {
		return nil, err
	}
	p.sessions[key] = s
	return s, nil
}

func (p *SessionPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Factory hands the pool to a Runner.
func (p *SessionPool) Factory() SessionFactory {
	return func(id model.WalletIdentity, proxy model.Proxy) (Session, error) {
		s, err := p.Get(id, proxy)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
