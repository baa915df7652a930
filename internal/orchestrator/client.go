// Package orchestrator is a client of the orchestrator API. It implements
// the services a deployment template editor depends on.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/patrickmn/go-cache"

	"github.com/devtron-labs/dtconfig/internal/config"
	xhttp "github.com/devtron-labs/dtconfig/internal/http"
	"github.com/devtron-labs/dtconfig/internal/logging"
)

const (
	tokenHeader     = "token"
	requestIDHeader = "X-Request-Id"

	// maxResponseBytes bounds the size of any response body. Rendered
	// manifests are the largest responses.
	maxResponseBytes = 16 << 20
)

// Client talks to the orchestrator API.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	// variables caches scoped variable resolutions. It is nil when caching
	// is disabled.
	variables *cache.Cache
}

// NewClient returns a Client for the API described by cfg.
func NewClient(cfg config.RuntimeConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	baseURL, err := url.Parse(strings.TrimSuffix(cfg.APIURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("error parsing API URL: %w", err)
	}
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.RequestTimeout
	c := &Client{
		baseURL:    baseURL,
		token:      cfg.APIToken,
		httpClient: httpClient,
	}
	if cfg.ScopedVariableCacheTTL > 0 {
		c.variables = cache.New(cfg.ScopedVariableCacheTTL, 2*cfg.ScopedVariableCacheTTL)
	}
	return c, nil
}

// envelope is the body of every API response.
type envelope struct {
	Code   int             `json:"code"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Errors []apiError      `json:"errors"`
}

type apiError struct {
	Code            string `json:"code"`
	InternalMessage string `json:"internalMessage"`
	UserMessage     string `json:"userMessage"`
}

func (e apiError) message() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.InternalMessage
}

// do sends a request and decodes the result of the response envelope into
// out, which may be nil. Failed requests are returned as *xhttp.Error.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body any,
	out any,
) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}

	logger := logging.LoggerFromContext(ctx).WithValues(
		"method", method,
		"path", path,
		"requestID", requestID,
	)
	logger.Debug("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending %s request to %s: %w", method, path, err)
	}
	data, err := xhttp.LimitRead(resp.Body, maxResponseBytes)
	if err != nil {
		return err
	}
	logger.Trace("received response", "status", resp.StatusCode, "size", len(data))

	var env envelope
	decodeErr := json.Unmarshal(data, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFrom(resp.StatusCode, env.Errors)
	}
	if decodeErr != nil {
		return fmt.Errorf("error decoding response of %s %s: %w", method, path, decodeErr)
	}
	if env.Code != 0 && (env.Code < 200 || env.Code > 299) {
		return errorFrom(env.Code, env.Errors)
	}
	if out == nil || isNull(env.Result) {
		return nil
	}
	if err = json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("error decoding result of %s %s: %w", method, path, err)
	}
	return nil
}

func errorFrom(code int, errs []apiError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.message())
	}
	return xhttp.NewError(code, msgs...)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
