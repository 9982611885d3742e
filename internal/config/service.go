package config

// Service describes the remote DeFi service the bot talks to.
type Service struct {
	Name             string
	APIBaseURL       string
	Origin           string
	TurnstileSiteKey string
	CaptchaPageURL   string
	ChainID          string
	SessionCookie    string
}

var BlockStreet = Service{
	Name:             "BlockStreet",
	APIBaseURL:       "https://api.blockstreet.money",
	Origin:           "https://blockstreet.money",
	TurnstileSiteKey: "0x4AAAAAABpfyUqunlqwRBYN",
	CaptchaPageURL:   "https://blockstreet.money/dashboard",
	ChainID:          "1",
	SessionCookie:    "gfsessionid",
}
