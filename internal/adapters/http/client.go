package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/logger"
	"github.com/ohmynofan/blockstreet-auto-bot/pkg/utils"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultTimeout   = 30 * time.Second
)

type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
	Header     http.Header
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s", e.StatusCode, e.Status)
}

type FetchOptions struct {
	Method            string
	Body              interface{}
	Form              url.Values
	RawBody           []byte
	Cookie            string
	AdditionalHeaders map[string]string
}

// RawResponse is a 2xx response. The body is returned undecoded.
type RawResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

type APIClient struct {
	Proxy      string
	UserAgent  string
	Service    config.Service
	HTTPClient *http.Client
	Log        logger.Logger
}

// NewAPIClient builds a client routed through proxy (empty for direct).
// Cookies are handled by the caller, so no jar is attached.
func NewAPIClient(proxy string, service config.Service, log logger.Logger) (*APIClient, error) {
	transport := &http.Transport{}

	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if log == nil {
		log = logger.Nop()
	}

	return &APIClient{
		Proxy:     proxy,
		UserAgent: DefaultUserAgent,
		Service:   service,
		HTTPClient: &http.Client{
			Transport: transport,
			Timeout:   DefaultTimeout,
		},
		Log: log,
	}, nil
}

func (c *APIClient) _generateHeaders(contentType string) map[string]string {
	headers := map[string]string{
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"User-Agent":      c.UserAgent,
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
		"Sec-Fetch-Dest":  "empty",
		"Sec-Fetch-Mode":  "cors",
		"Sec-Fetch-Site":  "same-site",
	}
	if c.Service.Origin != "" {
		headers["Origin"] = c.Service.Origin
		headers["Referer"] = c.Service.Origin + "/"
	}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	return headers
}

func (c *APIClient) Fetch(ctx context.Context, endpoint string, opts *FetchOptions) (*RawResponse, error) {
	if opts == nil {
		opts = &FetchOptions{}
	}

	if opts.Method == "" {
		opts.Method = http.MethodGet
	}

	set := 0
	for _, present := range []bool{opts.Body != nil, opts.Form != nil, opts.RawBody != nil} {
		if present {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("only one of Body, Form and RawBody may be set")
	}

	var (
		payload     []byte
		contentType string
	)
	switch {
	case opts.RawBody != nil:
		payload = opts.RawBody
		contentType = "application/json"
	case opts.Form != nil:
		payload = []byte(opts.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case opts.Body != nil:
		jsonBody, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = jsonBody
		contentType = "application/json"
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c._generateHeaders(contentType) {
		req.Header.Set(key, value)
	}
	for key, value := range opts.AdditionalHeaders {
		req.Header.Set(key, value)
	}
	if opts.Cookie != "" {
		req.Header.Set("Cookie", opts.Cookie)
	}

	if payload != nil {
		c.Log.Debug(fmt.Sprintf("%s %s\nBody:\n%s", opts.Method, endpoint, utils.BeautifyJSON(payload)))
	} else {
		c.Log.Debug(fmt.Sprintf("%s %s", opts.Method, endpoint))
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer res.Body.Close()

	resBodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.Log.Debug(fmt.Sprintf("Response %d:\n%s", res.StatusCode, utils.BeautifyJSON(resBodyBytes)))

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return &RawResponse{
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Header:     res.Header,
			Body:       resBodyBytes,
		}, nil
	}

	return nil, &HTTPError{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Body:       resBodyBytes,
		Header:     res.Header,
	}
}

// CookieValue returns the value of the named cookie set by h, if any.
func CookieValue(h http.Header, name string) (string, bool) {
	for _, line := range h.Values("Set-Cookie") {
		ck, err := http.ParseSetCookie(line)
		if err != nil {
			continue
		}
		if strings.EqualFold(ck.Name, name) && ck.Value != "" {
			return ck.Value, true
		}
	}
	return "", false
}
