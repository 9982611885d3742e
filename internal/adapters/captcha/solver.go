package captcha

import (
	"context"
	"net/http"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/clock"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/logger"
)

// Solver obtains a Turnstile token for a page.
type Solver interface {
	SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error)
}

// Ticket is a submitted task awaiting its solution.
type Ticket struct {
	ID        string
	CreatedAt time.Time
}

type options struct {
	baseURL      string
	client       *http.Client
	clock        clock.Clock
	pollInterval time.Duration
	maxAttempts  int
	log          logger.Logger
}

type Option func(*options)

func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.client = c } }

func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

func WithPollInterval(d time.Duration) Option { return func(o *options) { o.pollInterval = d } }

func WithMaxAttempts(n int) Option { return func(o *options) { o.maxAttempts = n } }

func WithLogger(l logger.Logger) Option { return func(o *options) { o.log = l } }

func buildOptions(defaultBase string, opts []Option) options {
	o := options{
		baseURL:      defaultBase,
		client:       &http.Client{Timeout: 30 * time.Second},
		clock:        clock.System{},
		pollInterval: defaultPollWait,
		maxAttempts:  DefaultMaxAttempts,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.baseURL == "" {
		o.baseURL = defaultBase
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = DefaultMaxAttempts
	}
	return o
}
