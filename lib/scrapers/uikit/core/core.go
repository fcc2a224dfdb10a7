package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"uicrawler/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrRetriesExhausted is returned once every attempt of a request has failed.
// A partial catalog is not valid output, callers treat it as fatal.
var ErrRetriesExhausted = errors.New("retries exhausted")

var ErrUnexpectedStatus = errors.New("unexpected status")

const DefaultAttempts = 3

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
	Session *Session

	attempts int
}

type ClientOptions struct {
	BaseUrl string
	// total number of attempts per request, defaults to DefaultAttempts
	Attempts         int
	UserAgent        string
	CloudflareBypass bool
	// receives full request/response dumps while debug logging is enabled, can be nil
	DumpOutput restyutil.InstrumentOutput
}

type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
	// when set, a 302 response is returned as is instead of being followed
	NoRedirect bool
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
	URL    string
}

func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

func (r Response) ETag() string {
	return r.Header.Get("ETag")
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", opts.BaseUrl)
	}

	client := resty.New()
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)
	// redirects are followed by Do so that every Set-Cookie reaches the session
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	restyutil.InstrumentClient(client, tracer, opts.DumpOutput)

	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	c := &Client{
		BaseUrl:  baseUrl,
		Http:     client,
		Session:  NewSession(),
		attempts: attempts,
	}
	return c, nil
}

// Resolve turns a site-relative reference into an absolute url.
func (c *Client) Resolve(ref string) (string, error) {
	u, err := c.BaseUrl.Parse(ref)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Do executes a request with the session attached, following a single 302.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	ctx, span := tracer.Start(ctx, "client:Do")
	defer span.End()

	res, err := c.fetchWithRetry(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return Response{}, err
	}
	span.SetAttributes(attribute.Int("status", res.Status))

	if res.Status != http.StatusFound || req.NoRedirect {
		return res, nil
	}
	location := res.Header.Get("Location")
	if location == "" {
		return res, nil
	}
	from, err := url.Parse(res.URL)
	if err != nil {
		return Response{}, err
	}
	target, err := from.Parse(location)
	if err != nil {
		return Response{}, err
	}

	slog.DebugContext(ctx, "following redirect", "from", res.URL, "to", target.String())
	redirected := req
	redirected.URL = target.String()
	return c.fetchWithRetry(ctx, redirected)
}

func (c *Client) fetchWithRetry(ctx context.Context, req Request) (Response, error) {
	target, err := c.Resolve(req.URL)
	if err != nil {
		return Response{}, err
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		start := time.Now()
		res, err := c.execute(ctx, method, target, req)
		elapsed := time.Since(start)

		if err == nil && res.Status < 500 {
			slog.InfoContext(ctx, "fetched", "method", method, "url", target, "status", res.Status, "elapsed", elapsed)
			return res, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.Status)
		}
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}

		lastErr = err
		slog.WarnContext(
			ctx, "fetch attempt failed",
			"method", method,
			"url", target,
			"attempt", attempt,
			"elapsed", elapsed,
			"err", err,
		)
	}

	// lastErr is not wrapped, an exhausted fetch must never pass for a
	// recoverable status
	return Response{}, fmt.Errorf("%w: %s %s: %v", ErrRetriesExhausted, method, target, lastErr)
}

func (c *Client) execute(ctx context.Context, method, target string, req Request) (Response, error) {
	r := c.Http.R().SetContext(ctx)
	for key, value := range req.Header {
		r.SetHeader(key, value)
	}
	if cookie := c.Session.Header(); cookie != "" {
		r.SetHeader("Cookie", cookie)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	res, err := r.Execute(method, target)
	if err != nil {
		return Response{}, err
	}
	if res.RawResponse != nil {
		c.Session.Merge(res.RawResponse.Cookies())
	}

	return Response{
		Status: res.StatusCode(),
		Header: res.Header(),
		Body:   res.Body(),
		URL:    target,
	}, nil
}

func (c *Client) Get(ctx context.Context, path string) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: path})
}

// GetPage fetches a document and returns its trimmed body, non-2xx responses
// are reported as ErrUnexpectedStatus.
func (c *Client) GetPage(ctx context.Context, path string) (string, error) {
	res, err := c.Get(ctx, path)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", fmt.Errorf("%w: GET %s responded %d", ErrUnexpectedStatus, path, res.Status)
	}
	return strings.TrimSpace(string(res.Body)), nil
}

// SendJSON issues a state-changing request the way the site's own frontend does.
func (c *Client) SendJSON(ctx context.Context, method, path string, payload any) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, err
	}

	header := map[string]string{
		"Content-Type":     "application/json",
		"Accept":           "text/html, application/xhtml+xml",
		"X-Requested-With": "XMLHttpRequest",
		"X-Inertia":        "true",
	}
	if version := c.Session.Version(); version != "" {
		header["X-Inertia-Version"] = version
	}
	if xsrf := c.Session.Get("XSRF-TOKEN"); xsrf != "" {
		header["X-XSRF-TOKEN"] = xsrf
	}

	return c.Do(ctx, Request{
		Method:     method,
		URL:        path,
		Header:     header,
		Body:       body,
		NoRedirect: true,
	})
}
