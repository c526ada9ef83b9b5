package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcclellann/rabbitfunding/pkg/models"
)

// DefaultBaseURL is the Google Sheets API endpoint.
const DefaultBaseURL = "https://sheets.googleapis.com"

// APIError is returned when the Sheets API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sheets api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("sheets api: status %d: %s", e.StatusCode, e.Message)
}

// ClientConfig configures a Sheets API client.
type ClientConfig struct {
	BaseURL       string
	SpreadsheetID string
	APIKey        string
	DealsTab      string
	PayoutTab     string
	Timeout       time.Duration
}

// Client reads deal and payout tabs through the Sheets v4 values API.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient creates a Client, filling unset fields with defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DealsTab == "" {
		cfg.DealsTab = DefaultDealsTab
	}
	if cfg.PayoutTab == "" {
		cfg.PayoutTab = DefaultPayoutTab
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type valuesResponse struct {
	Values [][]string `json:"values"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// apiKeyHeader carries the API key so it never appears in a request URL.
const apiKeyHeader = "X-goog-api-key"

// redactURL drops the request URL from transport errors. The inner error,
// such as a context cancellation, is kept for errors.Is.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// Values fetches every row of a tab as strings.
func (c *Client) Values(ctx context.Context, tab string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(c.cfg.SpreadsheetID),
		url.PathEscape(tab),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %q: %w", tab, redactURL(err))
	}
	if c.cfg.APIKey != "" {
		req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q: %w", tab, redactURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: body.Error.Message}
	}

	var body valuesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", tab, err)
	}
	return body.Values, nil
}

func (c *Client) FetchDeals(ctx context.Context) ([]models.Deal, error) {
	rows, err := c.Values(ctx, c.cfg.DealsTab)
	if err != nil {
		return nil, err
	}
	return MapDeals(rows), nil
}

func (c *Client) FetchPayoutEvents(ctx context.Context) ([]models.PayoutEvent, error) {
	rows, err := c.Values(ctx, c.cfg.PayoutTab)
	if err != nil {
		return nil, err
	}
	return MapPayoutEvents(rows), nil
}
