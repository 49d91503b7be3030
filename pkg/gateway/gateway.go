package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/bft-labs/indexcheck/internal/domain"
	"github.com/bft-labs/indexcheck/pkg/log"
)

// GrantClientCredentials is the only grant type the token endpoint is asked for.
const GrantClientCredentials = "client_credentials"

// Entity is one element of an entities array.
type Entity map[string]any

// UUID returns the store-assigned identifier, or "" if absent.
func (e Entity) UUID() string {
	s, _ := e["uuid"].(string)
	return s
}

// Credentials identify an application client for the token endpoint.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Empty reports whether no credentials were supplied.
func (c Credentials) Empty() bool {
	return c.ClientID == "" || c.ClientSecret == ""
}

type envelope struct {
	Entities    []Entity `json:"entities"`
	AccessToken string   `json:"access_token"`
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Client issues create, query and delete requests against the store.
//
// Default headers are held as an immutable snapshot. Authenticate and
// SetHeader swap in a new snapshot; requests only read it, so a Client is
// safe to share between the bulk writer's workers.
type Client struct {
	client  HTTPClient
	logger  log.Logger
	headers atomic.Pointer[http.Header]
}

// New creates a Client. A nil logger discards output.
func New(client HTTPClient, logger log.Logger) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	c := &Client{client: client, logger: logger}
	h := http.Header{}
	h.Set("Accept", "application/json")
	c.headers.Store(&h)
	return c
}

// SetHeader replaces the default header snapshot with one where key is set.
func (c *Client) SetHeader(key, value string) {
	h := c.Headers()
	h.Set(key, value)
	c.headers.Store(&h)
}

// Headers returns a copy of the default headers.
func (c *Client) Headers() http.Header {
	return c.headers.Load().Clone()
}

// Authenticate exchanges client credentials for an access token and installs
// it as the bearer token of every subsequent request.
func (c *Client) Authenticate(ctx context.Context, tokenURL string, creds Credentials) (string, error) {
	env, err := c.do(ctx, http.MethodPost, tokenURL, tokenRequest{
		GrantType:    GrantClientCredentials,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrAuth, err)
	}
	if env.AccessToken == "" {
		return "", fmt.Errorf("%w: %w: no access_token in token response", domain.ErrAuth, domain.ErrMalformedResponse)
	}

	c.SetHeader("Authorization", "Bearer "+env.AccessToken)
	c.logger.Info("authenticated", log.String("url", tokenURL))
	return env.AccessToken, nil
}

// Create posts one record body and returns the uuid the store assigned.
func (c *Client) Create(ctx context.Context, url string, body any) (string, error) {
	env, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	if len(env.Entities) == 0 {
		return "", fmt.Errorf("%w: create response has no entities", domain.ErrMalformedResponse)
	}
	uuid := env.Entities[0].UUID()
	if uuid == "" {
		return "", fmt.Errorf("%w: create response entity has no uuid", domain.ErrMalformedResponse)
	}
	return uuid, nil
}

// Query returns the entities matched by a query URL.
func (c *Client) Query(ctx context.Context, url string) ([]Entity, error) {
	env, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return env.Entities, nil
}

// Delete issues a delete-by-query and returns the number of entities the
// store reported in the response. Zero means nothing matched.
func (c *Client) Delete(ctx context.Context, url string) (int, error) {
	env, err := c.do(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return 0, err
	}
	return len(env.Entities), nil
}

func (c *Client) do(ctx context.Context, method, url string, body any) (envelope, error) {
	var env envelope

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return env, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return env, fmt.Errorf("create request: %w", err)
	}
	req.Header = c.Headers()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return env, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return env, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("http request",
		log.String("method", method),
		log.String("url", url),
		log.Int("status", resp.StatusCode),
		log.Int("bytes", len(respBody)),
	)

	if resp.StatusCode/100 != 2 {
		return env, &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return env, fmt.Errorf("%w: empty body from %s %s", domain.ErrMalformedResponse, method, url)
	}
	if err := json.Unmarshal(respBody, &env); err != nil {
		return env, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return env, nil
}
