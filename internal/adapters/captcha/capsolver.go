package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
)

const (
	capsolverBaseURL       = "https://api.capsolver.com"
	capsolverCreateTask    = "/createTask"
	capsolverGetResult     = "/getTaskResult"
	capsolverTurnstileType = "AntiTurnstileTaskProxyLess"
)

type CapSolver struct {
	apiKey string
	opts   options
}

func NewCapSolver(apiKey string, opts ...Option) *CapSolver {
	return &CapSolver{
		apiKey: strings.TrimSpace(apiKey),
		opts:   buildOptions(capsolverBaseURL, opts),
	}
}

type capCreateTaskReq struct {
	ClientKey string      `json:"clientKey"`
	Task      interface{} `json:"task"`
}

type capTurnstileTask struct {
	Type       string `json:"type"`
	WebsiteURL string `json:"websiteURL"`
	WebsiteKey string `json:"websiteKey"`
}

type capCreateTaskResp struct {
	ErrorID   int    `json:"errorId"`
	ErrorCode string `json:"errorCode"`
	TaskID    string `json:"taskId"`
}

type capResultReq struct {
	ClientKey string `json:"clientKey"`
	TaskID    string `json:"taskId"`
}

type capResultResp struct {
	ErrorID   int    `json:"errorId"`
	ErrorCode string `json:"errorCode"`
	Status    string `json:"status"`
	Solution  struct {
		Token string `json:"token"`
	} `json:"solution"`
}

func (c *CapSolver) SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error) {
	if c.apiKey == "" {
		return "", &config.ConfigError{Field: "captcha key", Err: errors.New("capsolver api key not provided")}
	}
	if strings.TrimSpace(siteKey) == "" || strings.TrimSpace(pageURL) == "" {
		return "", errors.New("capsolver site key and page url required")
	}
	log := c.opts.log
	log.Process("Submitting captcha to CapSolver...")

	var createResp capCreateTaskResp
	createPayload := capCreateTaskReq{
		ClientKey: c.apiKey,
		Task: capTurnstileTask{
			Type:       capsolverTurnstileType,
			WebsiteURL: pageURL,
			WebsiteKey: siteKey,
		},
	}
	if err := c.postJSON(ctx, capsolverCreateTask, createPayload, &createResp); err != nil {
		return "", err
	}
	if createResp.ErrorID != 0 || createResp.ErrorCode != "" {
		return "", &SubmitError{Provider: "capsolver", Code: createResp.ErrorCode}
	}
	if strings.TrimSpace(createResp.TaskID) == "" {
		return "", &SubmitError{Provider: "capsolver", Code: "EMPTY_TASK_ID"}
	}
	ticket := Ticket{ID: createResp.TaskID, CreatedAt: c.opts.clock.Now()}
	log.Process(fmt.Sprintf("Captcha ID: %s", ticket.ID))

	var waited time.Duration
	for attempt := 1; attempt <= c.opts.maxAttempts; attempt++ {
		if err := c.opts.clock.Sleep(ctx, c.opts.pollInterval); err != nil {
			return "", err
		}
		waited += c.opts.pollInterval

		var result capResultResp
		if err := c.postJSON(ctx, capsolverGetResult, capResultReq{ClientKey: c.apiKey, TaskID: ticket.ID}, &result); err != nil {
			return "", err
		}
		if result.ErrorID != 0 || result.ErrorCode != "" {
			return "", &SolveError{Provider: "capsolver", Code: result.ErrorCode}
		}
		switch strings.ToLower(strings.TrimSpace(result.Status)) {
		case "processing", "queued", "idle":
			if attempt%progressEvery == 0 {
				log.Process(fmt.Sprintf("Still solving... (%d/%d)", attempt, c.opts.maxAttempts))
			}
			continue
		case "ready", "completed":
			if strings.TrimSpace(result.Solution.Token) == "" {
				return "", &SolveError{Provider: "capsolver", Code: "EMPTY_TOKEN"}
			}
			log.Success("CapSolver solved successfully")
			return result.Solution.Token, nil
		default:
			return "", &SolveError{Provider: "capsolver", Code: result.Status}
		}
	}
	return "", &TimeoutError{Provider: "capsolver", Attempts: c.opts.maxAttempts, Waited: waited}
}

func (c *CapSolver) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	endpoint := fmt.Sprintf("%s%s", c.opts.baseURL, path)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("capsolver encode error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("capsolver request build error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.opts.client.Do(req)
	if err != nil {
		return fmt.Errorf("capsolver http error: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("capsolver read error: %w", err)
	}

	// CapSolver reports task errors with a 400 and a JSON body.
	if res.StatusCode >= 500 {
		return fmt.Errorf("capsolver status %s body=%s", res.Status, strings.TrimSpace(string(resBody)))
	}

	if err := json.Unmarshal(resBody, out); err != nil {
		return fmt.Errorf("capsolver decode error: %w", err)
	}
	return nil
}
