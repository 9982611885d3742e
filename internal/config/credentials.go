package config

import (
	"bufio"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/domain/model"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/logger"
	"github.com/ohmynofan/blockstreet-auto-bot/pkg/utils"
)

var ErrNoWallets = errors.New("no valid wallets")

// ParseWalletLine parses one "key:name" line. The key may be a hex private
// key with or without 0x, or a BIP-39 phrase. A missing name becomes W<lineNo>.
func ParseWalletLine(line string, lineNo int) (model.WalletIdentity, error) {
	line = strings.TrimSpace(line)
	secret, name := line, ""
	if i := strings.LastIndex(line, ":"); i >= 0 {
		secret, name = strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
	}
	if name == "" {
		name = fmt.Sprintf("W%d", lineNo)
	}

	var (
		key *ecdsa.PrivateKey
		err error
	)
	switch utils.DetermineType(secret) {
	case utils.KindPrivateKey:
		key, err = utils.PrivateKeyFromHex(utils.NormalizePrivateKey(secret))
	case utils.KindMnemonic:
		key, err = utils.PrivateKeyFromMnemonic(secret, "")
	default:
		return model.WalletIdentity{}, fmt.Errorf("line %d: not a private key or secret phrase", lineNo)
	}
	if err != nil {
		return model.WalletIdentity{}, fmt.Errorf("line %d: %w", lineNo, err)
	}
	return model.NewWalletIdentity(name, key), nil
}

// LoadWallets reads the wallet file. Blank lines and # comments are ignored;
// invalid lines are logged and skipped.
func LoadWallets(path string, log logger.Logger) ([]model.WalletIdentity, error) {
	if log == nil {
		log = logger.Nop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Field: "wallets", Path: path, Err: err}
	}
	defer f.Close()

	var wallets []model.WalletIdentity
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		w, err := ParseWalletLine(line, lineNo)
		if err != nil {
			log.Warn(fmt.Sprintf("Skipping wallet entry: %v", err))
			continue
		}
		wallets = append(wallets, w)
	}
	if err := sc.Err(); err != nil {
		return nil, &ConfigError{Field: "wallets", Path: path, Err: err}
	}
	if len(wallets) == 0 {
		return nil, &ConfigError{Field: "wallets", Path: path, Err: ErrNoWallets}
	}
	return wallets, nil
}

// ParseProxy normalizes a proxy line to http://[user:pass@]host:port.
// Accepted inputs: host:port, user:pass@host:port, host:port:user:pass,
// each optionally prefixed by a scheme.
func ParseProxy(line string) (model.Proxy, bool) {
	p := strings.TrimSpace(line)
	if i := strings.Index(p, "://"); i >= 0 {
		p = p[i+3:]
	}
	if p == "" {
		return "", false
	}
	if strings.Contains(p, "@") {
		return model.Proxy("http://" + p), true
	}
	parts := strings.Split(p, ":")
	if len(parts) == 4 {
		host, port, user, pass := parts[0], parts[1], parts[2], parts[3]
		return model.Proxy(fmt.Sprintf("http://%s:%s@%s:%s", user, pass, host, port)), true
	}
	return model.Proxy("http://" + p), true
}

// LoadProxies reads the proxy file. A missing file means no proxies.
func LoadProxies(path string) ([]model.Proxy, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &ConfigError{Field: "proxies", Path: path, Err: err}
	}
	var proxies []model.Proxy
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if p, ok := ParseProxy(line); ok {
			proxies = append(proxies, p)
		}
	}
	return proxies, nil
}

// LoadCaptchaKey returns the first line of the key file, or fallback when the
// file is missing or empty.
func LoadCaptchaKey(path, fallback string) (string, error) {
	key := ""
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		key = strings.TrimSpace(strings.SplitN(string(b), "\n", 2)[0])
	case !errors.Is(err, os.ErrNotExist):
		return "", &ConfigError{Field: "captcha key", Path: path, Err: err}
	}
	if key == "" {
		key = strings.TrimSpace(fallback)
	}
	if key == "" {
		return "", &ConfigError{Field: "captcha key", Path: path, Err: errors.New("empty")}
	}
	return key, nil
}
