package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MKhiriev/go-chat-sync/internal/config"
	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/models"
	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
)

// maxRetryDelay caps the exponential backoff between attempts.
const maxRetryDelay = 30 * time.Second

// RequestOptions overrides the client defaults for a single call.
// The zero value means an authenticated call with client defaults.
type RequestOptions struct {
	// Timeout bounds the whole call including retries and the waits
	// between them. Zero keeps the per-attempt client default only.
	Timeout time.Duration

	// MaxRetries overrides the retry budget for transient failures.
	// Zero keeps the client default; use NoRetry to disable retries.
	MaxRetries int

	// RetryDelay overrides the base backoff delay.
	RetryDelay time.Duration

	// Headers are added to the request verbatim.
	Headers map[string]string

	// Query is appended to the request URL.
	Query url.Values

	// NoAuth skips the Authorization header for endpoints that run
	// before a session exists.
	NoAuth bool

	// NoRetry disables retries so the caller owns the retry policy.
	NoRetry bool
}

// RequestClient is the single HTTP entry point to the messaging server.
// Every response is decoded into the API envelope and every failure is
// normalized into an [*APIError]; transient failures are retried with
// exponential backoff.
type RequestClient struct {
	http   *resty.Client
	source CredentialSource

	maxRetries int
	retryDelay time.Duration

	logger *logger.Logger
}

// NewRequestClient constructs a [RequestClient] from the adapter config.
// It normalises and validates the base URL from cfg.HTTPAddress and wires a
// response interceptor that logs the outcome of every attempt.
//
// Returns an error if cfg.HTTPAddress is empty or cannot be parsed as a
// valid URL.
func NewRequestClient(cfg config.ClientAdapter, source CredentialSource, log *logger.Logger) (*RequestClient, error) {
	baseURL, err := normalizeBaseURL(cfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = config.DefaultRequestTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = config.DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = config.DefaultRetryDelay
	}

	cli := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.RequestTimeout)

	cli.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		log.Debug().
			Str("func", "RequestClient.Execute").
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Time()).
			Str("request_id", resp.Header().Get("X-Request-Id")).
			Msg("server response")

		return nil
	})

	return &RequestClient{
		http:       cli,
		source:     source,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     log,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// Execute performs one API call and returns the data block of the response
// envelope. Only network and server failures are retried; validation, auth,
// conflict and protocol failures return immediately. After the final attempt
// the last normalized error is returned. ctx cancellation aborts the waits
// between attempts.
func (c *RequestClient) Execute(ctx context.Context, method, path string, body any, opts RequestOptions) (json.RawMessage, error) {
	log := logger.FromContext(ctx)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var data json.RawMessage
	err := retry.Do(ctx, c.backoff(opts), func(ctx context.Context) error {
		out, attemptErr := c.attempt(ctx, method, path, body, opts)
		if attemptErr != nil {
			if apiErr, ok := AsAPIError(attemptErr); ok && apiErr.Transient() {
				log.Warn().
					Str("func", "RequestClient.Execute").
					Str("method", method).
					Str("path", path).
					Err(attemptErr).
					Msg("transient failure, retrying")

				return retry.RetryableError(attemptErr)
			}

			return attemptErr
		}

		data = out

		return nil
	})
	if err != nil {
		// Cancellation while waiting between attempts surfaces as ctx.Err;
		// fold it into the single error taxonomy.
		if _, ok := AsAPIError(err); !ok {
			return nil, networkError(err)
		}

		return nil, err
	}

	return data, nil
}

// backoff builds the retry schedule: exponential growth from the base delay,
// capped at maxRetryDelay, with a bounded number of retries. No jitter, so
// observed delays are monotonically non-decreasing.
func (c *RequestClient) backoff(opts RequestOptions) retry.Backoff {
	delay := c.retryDelay
	if opts.RetryDelay > 0 {
		delay = opts.RetryDelay
	}

	retries := c.maxRetries
	if opts.MaxRetries > 0 {
		retries = opts.MaxRetries
	}
	if opts.NoRetry {
		retries = 0
	}

	b := retry.NewExponential(delay)
	b = retry.WithCappedDuration(maxRetryDelay, b)

	return retry.WithMaxRetries(uint64(retries), b)
}

// attempt performs a single request/response round trip.
func (c *RequestClient) attempt(ctx context.Context, method, path string, body any, opts RequestOptions) (json.RawMessage, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")

	if !opts.NoAuth {
		token, err := c.source.AccessToken(ctx)
		if err != nil {
			if apiErr, ok := AsAPIError(err); ok {
				return nil, apiErr
			}

			return nil, &APIError{
				Kind:       KindAuth,
				Message:    "obtaining access token: " + err.Error(),
				AuthReason: AuthReasonServer,
				Timestamp:  time.Now(),
			}
		}
		if token != "" {
			req.SetHeader("Authorization", "Bearer "+token)
		}
	}

	for k, v := range opts.Headers {
		req.SetHeader(k, v)
	}
	if len(opts.Query) > 0 {
		req.SetQueryParamsFromValues(opts.Query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, networkError(err)
	}

	return decodeEnvelope(resp)
}

// decodeEnvelope validates the response envelope and extracts its data
// block. The envelope is mandatory on every endpoint; a 2xx body that does
// not parse is a protocol violation. When the envelope and the HTTP status
// disagree, the status is authoritative.
func decodeEnvelope(resp *resty.Response) (json.RawMessage, error) {
	status := resp.StatusCode()

	var env models.APIEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		if status >= http.StatusBadRequest {
			return nil, mapEnvelopeError(status, &models.APIErrorBody{
				Message: strings.TrimSpace(string(resp.Body())),
			})
		}

		return nil, protocolError(status, "malformed response envelope")
	}

	if status >= http.StatusBadRequest || !env.Success {
		return nil, mapEnvelopeError(status, env.Error)
	}

	return env.Data, nil
}
