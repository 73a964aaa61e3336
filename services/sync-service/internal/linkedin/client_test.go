package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lmsapps/adsync/internal/models"
)

func newTestClient(srv *httptest.Server) *Client {
	return &Client{
		baseURL:  srv.URL,
		version:  "202401",
		maxPages: DefaultMaxPages,
		client:   srv.Client(),
		limiter:  rate.NewLimiter(rate.Inf, 1),
		logger:   zap.NewNop(),
	}
}

func pageOf(token string, ids ...string) models.AdAccountsPage {
	page := models.AdAccountsPage{
		Metadata: models.PageMetadata{NextPageToken: token},
	}
	for _, id := range ids {
		page.Elements = append(page.Elements, models.AdAccountElement{
			ID:   json.Number(id),
			Name: "Account " + id,
		})
	}
	return page
}

func TestFetchAdAccountsFollowsPageTokens(t *testing.T) {
	pages := map[string]models.AdAccountsPage{
		"":       pageOf("page-1", "100", "101"),
		"page-1": pageOf("page-2", "102"),
		"page-2": pageOf("", "103"),
	}

	var requests []*http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Clone(context.Background()))
		page, ok := pages[r.URL.Query().Get("pageToken")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	elements, err := client.FetchAdAccounts(context.Background(), Credential{Token: "tok-abc"})
	require.NoError(t, err)

	require.Len(t, elements, 4)
	assert.Equal(t, json.Number("100"), elements[0].ID)
	assert.Equal(t, json.Number("103"), elements[3].ID)

	require.Len(t, requests, 3)
	for _, req := range requests {
		assert.Equal(t, "/rest/adAccounts", req.URL.Path)
		assert.Equal(t, "search", req.URL.Query().Get("q"))
		assert.Equal(t, "Bearer tok-abc", req.Header.Get("Authorization"))
		assert.Equal(t, "2.0.0", req.Header.Get("X-Restli-Protocol-Version"))
		assert.Equal(t, "202401", req.Header.Get("LinkedIn-Version"))
	}
	assert.Equal(t, "page-1", requests[1].URL.Query().Get("pageToken"))
	assert.Equal(t, "page-2", requests[2].URL.Query().Get("pageToken"))
}

func TestFetchAdAccountsCredentialVersionWins(t *testing.T) {
	var gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("LinkedIn-Version")
		json.NewEncoder(w).Encode(pageOf(""))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.FetchAdAccounts(context.Background(), Credential{Token: "tok", Version: "202506"})
	require.NoError(t, err)
	assert.Equal(t, "202506", gotVersion)
}

func TestFetchAdAccountsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.FetchAdAccounts(context.Background(), Credential{Token: "stale"})
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusUnauthorized, upstreamErr.Status)
	assert.Equal(t, "token expired", upstreamErr.Message)
	assert.False(t, upstreamErr.Retryable())
}

func TestFetchAdAccountsServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.FetchAdAccounts(context.Background(), Credential{Token: "tok"})

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusServiceUnavailable, upstreamErr.Status)
	assert.Equal(t, "upstream exploded", upstreamErr.Message)
	assert.True(t, upstreamErr.Retryable())
}

func TestFetchAdAccountsPaginationLoop(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Never stops advertising a next page
		json.NewEncoder(w).Encode(pageOf("again", fmt.Sprintf("%d", 100+calls)))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	client.maxPages = 5

	_, err := client.FetchAdAccounts(context.Background(), Credential{Token: "tok"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaginationLoop)
	assert.Equal(t, 5, calls)
}

func TestFetchAdAccountsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(pageOf(""))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	client.client = &http.Client{Timeout: 20 * time.Millisecond}

	_, err := client.FetchAdAccounts(context.Background(), Credential{Token: "tok"})
	require.Error(t, err)

	var timeoutErr *UpstreamTimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestFetchAdAccountsContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(pageOf(""))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.FetchAdAccounts(ctx, Credential{Token: "tok"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookupOrganizations(t *testing.T) {
	var gotURL *url.URL
	var gotRawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL
		gotRawQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(models.OrganizationsLookup{
			Results: map[string]models.OrganizationResult{
				"70000001": {LocalizedName: "Acme Corp"},
				"70000002": {LocalizedName: "Globex"},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv)
	results, err := client.LookupOrganizations(context.Background(), Credential{Token: "tok"}, []string{"70000001", "70000002"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "Acme Corp", results["70000001"].LocalizedName)
	assert.Equal(t, "/rest/organizationsLookup", gotURL.Path)
	// The Restli list syntax travels unencoded
	assert.Equal(t, "ids=List(70000001,70000002)", gotRawQuery)
}

func TestLookupOrganizationsEmptyIDsSkipsCall(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := newTestClient(srv)
	results, err := client.LookupOrganizations(context.Background(), Credential{Token: "tok"}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, calls)
}

func TestReadErrorMessageFallsBackToRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>gateway error</html>")
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.FetchAdAccounts(context.Background(), Credential{Token: "tok"})

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "<html>gateway error</html>", upstreamErr.Message)
}
