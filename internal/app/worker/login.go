package worker

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	adhttp "github.com/ohmynofan/blockstreet-auto-bot/internal/adapters/http"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/domain/model"
	"github.com/ohmynofan/blockstreet-auto-bot/pkg/utils"
)

const (
	fallbackNonce       = "Z9YFj5VY80yTwN3n"
	turnstileHeader     = "cf-turnstile-response"
	signVerifyPath      = "/account/signverify"
	challengeTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	nonceRe      = regexp.MustCompile(`Nonce:\s*([^\n\r]+)`)
	issuedAtRe   = regexp.MustCompile(`Issued At:\s*([^\n\r]+)`)
	expirationRe = regexp.MustCompile(`Expiration Time:\s*([^\n\r]+)`)
)

// Challenge holds the fields echoed to signverify alongside the signature.
type Challenge struct {
	Nonce          string
	IssuedAt       string
	ExpirationTime string
}

// ParseChallenge extracts the nonce and timestamps from a sign-in message.
// Missing fields fall back to a fixed nonce and to now.
func ParseChallenge(message string, now time.Time) Challenge {
	nowStr := formatTimeISO8601Z(now)
	return Challenge{
		Nonce:          firstMatch(nonceRe, message, fallbackNonce),
		IssuedAt:       firstMatch(issuedAtRe, message, nowStr),
		ExpirationTime: firstMatch(expirationRe, message, nowStr),
	}
}

func firstMatch(re *regexp.Regexp, s, fallback string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return fallback
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return fallback
	}
	return v
}

func formatTimeISO8601Z(t time.Time) string {
	return t.UTC().Format(challengeTimeLayout)
}

// SessionInfo is what a successful login returns.
type SessionInfo struct {
	Address  string
	Cookie   string
	Response *Response
}

// Login signs the configured message and exchanges it, with the solved
// Turnstile token, for a session cookie.
func (s *SessionClient) Login(ctx context.Context, captchaToken string) (*SessionInfo, error) {
	s.setState(model.Authenticating)
	s.log.Process("Generating signature...")

	message := s.opts.Template
	signature, err := s.signer.SignMessage(message)
	if err != nil {
		s.setState(model.Failed)
		return nil, &AuthError{Wallet: s.identity.Name, Err: err}
	}
	challenge := ParseChallenge(message, s.clock.Now())

	form, err := utils.URLValues(loginForm{
		Address:        s.identity.Address,
		Nonce:          challenge.Nonce,
		Signature:      signature,
		ChainID:        s.opts.Service.ChainID,
		IssuedAt:       challenge.IssuedAt,
		ExpirationTime: challenge.ExpirationTime,
		InviteCode:     s.opts.InviteCode,
	})
	if err != nil {
		s.setState(model.Failed)
		return nil, &AuthError{Wallet: s.identity.Name, Err: err}
	}

	headers := map[string]string{}
	if captchaToken != "" {
		headers[turnstileHeader] = captchaToken
	}

	s.log.Process("Authenticating with server...")
	res, err := s.fetch(ctx, signVerifyPath, &adhttp.FetchOptions{
		Method:            http.MethodPost,
		Form:              form,
		Cookie:            s.Cookie(),
		AdditionalHeaders: headers,
	})
	if err != nil {
		s.setState(model.Failed)
		return nil, &AuthError{Wallet: s.identity.Name, Err: err}
	}

	s.setState(model.Authenticated)
	s.log.Success("Authentication successful")
	return &SessionInfo{Address: s.identity.Address, Cookie: s.Cookie(), Response: res}, nil
}
