package config

import (
	"fmt"
	"os"
	"strings"
)

// DefaultSignTemplate is the login message signed by every wallet. Its
// Nonce, Issued At and Expiration Time lines are parsed back out and echoed
// to the server, so the text must stay byte-exact.
const DefaultSignTemplate = `blockstreet.money wants you to sign in with your Ethereum account:
0x4CBB1421DF1CF362DC618d887056802d8adB7BC0

Welcome to Block Street

URI: https://blockstreet.money
Version: 1
Chain ID: 1
Nonce: Z9YFj5VY80yTwN3n
Issued At: 2025-10-27T09:49:38.537Z
Expiration Time: 2025-10-27T09:51:38.537Z`

// LoadSignTemplate reads a replacement template from path. Only a single
// trailing newline is removed; everything else is signed as-is.
func LoadSignTemplate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSignTemplate, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", &ConfigError{Field: "sign template", Path: path, Err: err}
	}
	tmpl := strings.TrimSuffix(strings.TrimSuffix(string(b), "\n"), "\r")
	if strings.TrimSpace(tmpl) == "" {
		return "", &ConfigError{Field: "sign template", Path: path, Err: fmt.Errorf("file is empty")}
	}
	return tmpl, nil
}
