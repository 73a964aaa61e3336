package linkedin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lmsapps/adsync/internal/models"
)

const (
	headerProtocolVersion = "X-Restli-Protocol-Version"
	headerAPIVersion      = "LinkedIn-Version"
	protocolVersion       = "2.0.0"

	// DefaultMaxPages bounds the continuation loop so a misbehaving or
	// malicious page token cannot spin the fetcher forever.
	DefaultMaxPages = 500
)

// Credential is an opaque bearer token plus the API version it was issued
// for, scoped to one user. Owned by the auth layer, read-only here.
type Credential struct {
	Token   string
	Version string
}

// Client issues authenticated requests against the LinkedIn Marketing REST
// API. Pagination within one fetch is strictly sequential: each page's token
// depends on the previous response.
type Client struct {
	baseURL  string
	version  string
	maxPages int
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewClient creates a client from configuration.
func NewClient(logger *zap.Logger) *Client {
	baseURL := viper.GetString("linkedin.api_url")
	if baseURL == "" {
		baseURL = "https://api.linkedin.com"
	}

	maxPages := viper.GetInt("sync.max_pages")
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	// Upstream is rate limited; pace requests client-side instead of
	// burning quota on 429s.
	rps := viper.GetFloat64("linkedin.requests_per_second")
	if rps <= 0 {
		rps = 4
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		version:  viper.GetString("linkedin.version"),
		maxPages: maxPages,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

// FetchAdAccounts retrieves every page of the caller's ad accounts,
// following the continuation token until the collection is exhausted.
// Elements are accumulated in arrival order; order across pages is not
// guaranteed stable upstream and nothing downstream relies on it.
func (c *Client) FetchAdAccounts(ctx context.Context, cred Credential) ([]models.AdAccountElement, error) {
	var elements []models.AdAccountElement
	pageToken := ""

	for page := 0; ; page++ {
		if page >= c.maxPages {
			return nil, fmt.Errorf("fetching ad accounts: %w", ErrPaginationLoop)
		}

		url := fmt.Sprintf("%s/rest/adAccounts?q=search", c.baseURL)
		if pageToken != "" {
			url += "&pageToken=" + pageToken
		}

		var resp models.AdAccountsPage
		if err := c.get(ctx, cred, url, &resp); err != nil {
			return nil, err
		}

		elements = append(elements, resp.Elements...)
		pageToken = resp.Metadata.NextPageToken
		if pageToken == "" {
			break
		}
	}

	c.logger.Debug("fetched ad accounts",
		zap.Int("count", len(elements)))

	return elements, nil
}

// LookupOrganizations retrieves the given organizations in one call. The
// response is map shaped (results keyed by organization ID), unlike the
// paginated ad accounts collection.
func (c *Client) LookupOrganizations(ctx context.Context, cred Credential, ids []string) (map[string]models.OrganizationResult, error) {
	if len(ids) == 0 {
		return map[string]models.OrganizationResult{}, nil
	}

	// The Restli List() syntax must not be percent-encoded.
	url := fmt.Sprintf("%s/rest/organizationsLookup?ids=List(%s)", c.baseURL, strings.Join(ids, ","))

	var resp models.OrganizationsLookup
	if err := c.get(ctx, cred, url, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("looked up organizations",
		zap.Int("requested", len(ids)),
		zap.Int("found", len(resp.Results)))

	return resp.Results, nil
}

func (c *Client) get(ctx context.Context, cred Credential, url string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	version := cred.Version
	if version == "" {
		version = c.version
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set(headerProtocolVersion, protocolVersion)
	req.Header.Set(headerAPIVersion, version)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		if isTimeout(err) {
			return &UpstreamTimeoutError{Cause: err}
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// readErrorMessage extracts the upstream error message, falling back to the
// raw body when it is not the usual {"message": ...} JSON.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}

	return strings.TrimSpace(string(raw))
}
