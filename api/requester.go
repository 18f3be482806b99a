package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/ilumina-session/events"
	"golang.org/x/oauth2"
)

// Requester is the authorized request layer. Every call carries the bearer
// token from its TokenSource and any 401 is broadcast as events.Unauthorized.
type Requester struct {
	baseURL    string
	httpClient *http.Client
}

// Authorized returns a Requester that takes its token from source. When
// source has no token the call fails before reaching the network.
func (c *Client) Authorized(source oauth2.TokenSource, publisher events.Publisher) *Requester {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &Requester{
		baseURL: c.baseURL,
		httpClient: &http.Client{
			Timeout: c.httpClient.Timeout,
			Transport: &oauth2.Transport{
				Source: source,
				Base:   &signalTransport{base: base, publisher: publisher},
			},
		},
	}
}

// Do sends req through the authorized transport.
func (r *Requester) Do(req *http.Request) (*http.Response, error) {
	return r.httpClient.Do(req)
}

// GetJSON fetches path (relative to the API root) into out.
func (r *Requester) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("[GetJSON] failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if err := doJSON(r.httpClient, req, out); err != nil {
		return fmt.Errorf("[GetJSON %s] %w", path, err)
	}
	return nil
}

// signalTransport publishes events.Unauthorized whenever the backend rejects
// the token.
type signalTransport struct {
	base      http.RoundTripper
	publisher events.Publisher
}

func (t *signalTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && t.publisher != nil {
		t.publisher.Publish(events.Unauthorized)
	}
	return resp, nil
}
