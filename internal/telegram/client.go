package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"moderbot/internal/config"
	"moderbot/internal/logging"
)

const userAgent = "moderbot/1.0"

// Options configures a Client.
type Options struct {
	BaseURL           string
	Token             string
	RequestTimeout    time.Duration
	ProxyURL          string
	MessagesPerSecond float64
	PerChatInterval   time.Duration
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client calls the Bot API over HTTPS.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	limits   *sendLimiter
	logger   *slog.Logger
}

// NewFromConfig builds a client from the [telegram] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	return New(Options{
		BaseURL:           cfg.Telegram.APIBaseURL,
		Token:             cfg.Telegram.BotToken,
		RequestTimeout:    cfg.RequestTimeout(),
		ProxyURL:          cfg.Telegram.ProxyURL,
		MessagesPerSecond: cfg.Telegram.MessagesPerSecond,
		PerChatInterval:   time.Duration(cfg.Telegram.PerChatIntervalMS) * time.Millisecond,
		Logger:            logger,
	})
}

// New validates opts and builds a client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport, err := newTransport(opts.ProxyURL)
		if err != nil {
			return nil, err
		}
		// deadlines come from per-call contexts so long polls are not cut short
		httpClient = &http.Client{Transport: transport}
	}

	return &Client{
		endpoint: base + "/bot" + opts.Token + "/",
		timeout:  opts.RequestTimeout,
		http:     httpClient,
		limits:   newSendLimiter(opts.MessagesPerSecond, opts.PerChatInterval),
		logger:   logging.NewComponentLogger(opts.Logger, "telegram"),
	}, nil
}

func newTransport(proxyURL string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL == "" {
		return transport, nil
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("telegram: parse proxy url: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsed)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(parsed, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("telegram: socks proxy: %w", err)
		}
		transport.Proxy = nil
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return nil, fmt.Errorf("telegram: unsupported proxy scheme %q", parsed.Scheme)
	}
	return transport, nil
}

// call posts payload to method and decodes the result into out (which may be nil).
// Sends to chatID are rate limited when chatID is non-zero.
func (c *Client) call(ctx context.Context, method string, chatID int64, extraTimeout time.Duration, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: encode request: %w", method, err)
	}

	for attempt := 0; ; attempt++ {
		if chatID != 0 {
			if err := c.limits.wait(ctx, chatID); err != nil {
				return err
			}
		}
		err := c.do(ctx, method, body, extraTimeout, out)
		var apiErr *APIError
		if attempt == 0 && errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests && apiErr.RetryAfter > 0 {
			c.logger.Warn("bot api flood limit, retrying",
				logging.String("method", method),
				logging.Duration("retry_after", apiErr.RetryAfter),
			)
			select {
			case <-time.After(apiErr.RetryAfter):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return err
	}
}

func (c *Client) do(ctx context.Context, method string, body []byte, extraTimeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout+extraTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: build request: %w", method, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, redactToken(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("telegram %s: read response: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return fmt.Errorf("telegram %s: status %d: decode response: %w (%s)", method, resp.StatusCode, err, snippet)
	}
	if !env.OK {
		apiErr := &APIError{Method: method, Code: env.ErrorCode, Description: env.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

// redactToken strips the request URL, which embeds the bot token, from transport errors.
func redactToken(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
