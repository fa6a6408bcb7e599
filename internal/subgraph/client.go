// Package subgraph provides the GraphQL clients for the indexed history
// services. Every query is fetch-fresh: neither requests nor responses are
// cached, and the client retries only when explicitly configured to.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/meterfi/dex-stats-api/internal/apierr"
	"github.com/meterfi/dex-stats-api/internal/chains"
)

// Client runs GraphQL queries against a single fixed endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client for one endpoint. retryMax of 0 disables
// automatic retries; retry policy belongs to callers unless configured here.
func NewClient(endpoint string, timeout time.Duration, retryMax int) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	return &Client{
		endpoint:   endpoint,
		httpClient: rc.StandardClient(),
	}
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// Query POSTs the document and decodes the data payload into out. Transport
// failures, non-200 statuses and GraphQL-level errors all surface as
// UpstreamQueryError.
func (c *Client) Query(ctx context.Context, document string, out interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: document})
	if err != nil {
		return apierr.Wrap(apierr.KindUpstreamQuery, err, "encoding query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return apierr.Wrap(apierr.KindUpstreamQuery, err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.Wrap(apierr.KindUpstreamQuery, err, "querying %s", c.endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return apierr.New(apierr.KindUpstreamQuery,
			"subgraph %s returned status %d: %s", c.endpoint, resp.StatusCode, string(raw))
	}

	var decoded graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return apierr.Wrap(apierr.KindUpstreamQuery, err, "decoding response from %s", c.endpoint)
	}
	if len(decoded.Errors) > 0 {
		return apierr.New(apierr.KindUpstreamQuery,
			"subgraph %s: %s", c.endpoint, decoded.Errors[0].Message)
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return apierr.Wrap(apierr.KindUpstreamQuery, err, "decoding data from %s", c.endpoint)
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": c.endpoint,
		"took":     time.Since(start),
	}).Debug("subgraph query done")
	return nil
}

// Set holds the per-chain clients, one per configured endpoint, selected
// through the chain registry.
type Set struct {
	stats  map[chains.ChainID]*Client
	prices map[chains.ChainID]*Client
}

// NewSet builds clients for every endpoint the registry knows about.
func NewSet(registry *chains.Registry, timeout time.Duration, retryMax int) *Set {
	s := &Set{
		stats:  make(map[chains.ChainID]*Client),
		prices: make(map[chains.ChainID]*Client),
	}
	for _, chain := range chains.Supported {
		if url, err := registry.StatsSubgraph(chain); err == nil {
			s.stats[chain] = NewClient(url, timeout, retryMax)
		}
		if url, err := registry.PricesSubgraph(chain); err == nil {
			s.prices[chain] = NewClient(url, timeout, retryMax)
		}
	}
	return s
}

// Stats returns the stats-subgraph client for a chain.
func (s *Set) Stats(chain chains.ChainID) (*Client, error) {
	c, ok := s.stats[chain]
	if !ok {
		return nil, apierr.New(apierr.KindUnknownChain, "no stats subgraph client for chain %d", chain)
	}
	return c, nil
}

// Prices returns the prices-subgraph client for a chain.
func (s *Set) Prices(chain chains.ChainID) (*Client, error) {
	c, ok := s.prices[chain]
	if !ok {
		return nil, apierr.New(apierr.KindUnknownChain, "no prices subgraph client for chain %d", chain)
	}
	return c, nil
}

// WithStats installs a stats client for a chain, replacing any existing one.
func (s *Set) WithStats(chain chains.ChainID, c *Client) *Set {
	s.stats[chain] = c
	return s
}

// WithPrices installs a prices client for a chain, replacing any existing one.
func (s *Set) WithPrices(chain chains.ChainID, c *Client) *Set {
	s.prices[chain] = c
	return s
}
