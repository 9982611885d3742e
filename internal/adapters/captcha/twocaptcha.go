package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
	"github.com/ohmynofan/blockstreet-auto-bot/pkg/utils"
)

const (
	baseURL         = "http://2captcha.com"
	submitPath      = "/in.php"
	resultPath      = "/res.php"
	turnstileMethod = "turnstile"
	defaultPollWait = 5 * time.Second
)

type TwoCaptcha struct {
	apiKey string
	opts   options
}

func NewTwoCaptcha(apiKey string, opts ...Option) *TwoCaptcha {
	return &TwoCaptcha{
		apiKey: strings.TrimSpace(apiKey),
		opts:   buildOptions(baseURL, opts),
	}
}

type submitForm struct {
	Key     string `url:"key"`
	Method  string `url:"method"`
	SiteKey string `url:"sitekey"`
	PageURL string `url:"pageurl"`
	JSON    int    `url:"json"`
}

type resultQuery struct {
	Key    string `url:"key"`
	Action string `url:"action"`
	ID     string `url:"id"`
	JSON   int    `url:"json"`
}

type legacyResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// SolveTurnstile submits the challenge and polls until a token is ready,
// the service reports an error, or the attempt budget runs out.
func (tc *TwoCaptcha) SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error) {
	if tc.apiKey == "" {
		return "", &config.ConfigError{Field: "captcha key", Err: fmt.Errorf("2captcha api key not provided")}
	}
	log := tc.opts.log
	log.Process("Initializing 2Captcha solver...")

	ticket, err := tc.submit(ctx, siteKey, pageURL)
	if err != nil {
		return "", err
	}
	log.Process(fmt.Sprintf("Captcha ID: %s", ticket.ID))
	log.Process("Waiting for 2Captcha solution...")

	var waited time.Duration
	for attempt := 1; attempt <= tc.opts.maxAttempts; attempt++ {
		if err := tc.opts.clock.Sleep(ctx, tc.opts.pollInterval); err != nil {
			return "", err
		}
		waited += tc.opts.pollInterval

		res, err := tc.poll(ctx, ticket)
		if err != nil {
			return "", err
		}
		if res.Status == 1 {
			log.Success("2Captcha solved successfully")
			return res.Request, nil
		}
		if res.Request == TwoNotReady {
			if attempt%progressEvery == 0 {
				log.Process(fmt.Sprintf("Still solving... (%d/%d)", attempt, tc.opts.maxAttempts))
			}
			continue
		}
		code := res.Request
		if code == "" {
			code = "UNKNOWN_ERROR"
		}
		return "", &SolveError{Provider: "2captcha", Code: code}
	}

	return "", &TimeoutError{Provider: "2captcha", Attempts: tc.opts.maxAttempts, Waited: waited}
}

func (tc *TwoCaptcha) submit(ctx context.Context, siteKey, pageURL string) (Ticket, error) {
	form, err := utils.URLValues(submitForm{
		Key:     tc.apiKey,
		Method:  turnstileMethod,
		SiteKey: siteKey,
		PageURL: pageURL,
		JSON:    1,
	})
	if err != nil {
		return Ticket{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.opts.baseURL+submitPath, strings.NewReader(form.Encode()))
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var res legacyResponse
	if err := tc.do(req, &res); err != nil {
		return Ticket{}, fmt.Errorf("2captcha submit: %w", err)
	}
	if res.Status != 1 {
		code := res.Request
		if code == "" {
			code = "Unknown error"
		}
		return Ticket{}, &SubmitError{Provider: "2captcha", Code: code}
	}
	return Ticket{ID: res.Request, CreatedAt: tc.opts.clock.Now()}, nil
}

func (tc *TwoCaptcha) poll(ctx context.Context, ticket Ticket) (legacyResponse, error) {
	q, err := utils.EncodeURLParams(resultQuery{
		Key:    tc.apiKey,
		Action: "get",
		ID:     ticket.ID,
		JSON:   1,
	})
	if err != nil {
		return legacyResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tc.opts.baseURL+resultPath+"?"+q, nil)
	if err != nil {
		return legacyResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	var res legacyResponse
	if err := tc.do(req, &res); err != nil {
		return legacyResponse{}, fmt.Errorf("2captcha poll: %w", err)
	}
	return res, nil
}

func (tc *TwoCaptcha) do(req *http.Request, out interface{}) error {
	res, err := tc.opts.client.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if res.StatusCode >= 400 {
		return fmt.Errorf("2captcha http error: %s", res.Status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
