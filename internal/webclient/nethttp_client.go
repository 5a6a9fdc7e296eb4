package webclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raysh454/intent/internal/logging"
)

var ErrNilRequest = errors.New("nil request")

// NetHTTPClient sends requests with a plain *http.Client. Non-2xx statuses are
// returned as responses, not errors.
type NetHTTPClient struct {
	hc     *http.Client
	cfg    Config
	logger logging.Logger
}

// NewNetHTTPClient wraps hc. A nil hc gets one bounded by cfg.Timeout.
func NewNetHTTPClient(cfg Config, logger logging.Logger, hc *http.Client) (*NetHTTPClient, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultConfig().Timeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &NetHTTPClient{
		hc:     hc,
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "backend", Value: string(ClientNetHTTP)}),
	}, nil
}

func (c *NetHTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	fields := []logging.Field{
		{Key: "method", Value: httpReq.Method},
		{Key: "url", Value: req.URL},
	}
	c.logger.Debug("request", fields...)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		c.logger.Warn("request failed", append(fields, logging.Err(err))...)
		return nil, fmt.Errorf("%s %s: %w", httpReq.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(c.capped(resp.Body))
	if err != nil {
		c.logger.Warn("reading response failed", append(fields, logging.Err(err))...)
		return nil, fmt.Errorf("%s %s: read body: %w", httpReq.Method, req.URL, err)
	}
	return &Response{
		Request:    req,
		Headers:    resp.Header,
		Body:       body,
		StatusCode: resp.StatusCode,
		FetchedAt:  time.Now(),
	}, nil
}

// Get fetches url.
func (c *NetHTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, &Request{URL: url})
}

func (c *NetHTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

func (c *NetHTTPClient) build(ctx context.Context, req *Request) (*http.Request, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.Headers != nil {
		httpReq.Header = req.Headers.Clone()
	}
	if httpReq.Header.Get("User-Agent") == "" && c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	return httpReq, nil
}

func (c *NetHTTPClient) capped(r io.Reader) io.Reader {
	if c.cfg.MaxBodyBytes <= 0 {
		return r
	}
	return io.LimitReader(r, c.cfg.MaxBodyBytes)
}
