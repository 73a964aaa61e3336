package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lmsapps/adsync/services/sync-service/internal/db"
	"github.com/lmsapps/adsync/services/sync-service/internal/linkedin"
	"github.com/lmsapps/adsync/services/sync-service/internal/models"
	syncpkg "github.com/lmsapps/adsync/services/sync-service/internal/sync"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSyncer struct {
	result   *syncpkg.Result
	err      error
	lastCred linkedin.Credential
	lastIDs  []string
}

func (f *fakeSyncer) SyncAdAccounts(ctx context.Context, cred linkedin.Credential, userID uuid.UUID) (*syncpkg.Result, error) {
	f.lastCred = cred
	return f.result, f.err
}

func (f *fakeSyncer) SyncOrganizations(ctx context.Context, cred linkedin.Credential, ids []string) (*syncpkg.Result, error) {
	f.lastCred = cred
	f.lastIDs = ids
	return f.result, f.err
}

type fakeAccounts struct {
	accounts map[string]models.AdAccount
	orgIDs   []string
	earliest *time.Time
}

func (f *fakeAccounts) FindByKey(ctx context.Context, key string) (models.AdAccount, error) {
	acct, ok := f.accounts[key]
	if !ok {
		return models.AdAccount{}, db.ErrNotFound
	}
	return acct, nil
}

func (f *fakeAccounts) ListByUser(ctx context.Context, userID uuid.UUID, statuses []string) ([]models.AdAccount, error) {
	var out []models.AdAccount
	for _, acct := range f.accounts {
		out = append(out, acct)
	}
	return out, nil
}

func (f *fakeAccounts) EarliestCreatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	return f.earliest, nil
}

func (f *fakeAccounts) ListOrganizationIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return f.orgIDs, nil
}

type fakeOrgs struct {
	orgs map[string]models.Organization
}

func (f *fakeOrgs) FindByKey(ctx context.Context, key string) (models.Organization, error) {
	org, ok := f.orgs[key]
	if !ok {
		return models.Organization{}, db.ErrNotFound
	}
	return org, nil
}

type fakeUsers struct {
	users map[uuid.UUID]models.User
}

func (f *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, db.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.users[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type fixture struct {
	server   *Server
	syncer   *fakeSyncer
	accounts *fakeAccounts
	orgs     *fakeOrgs
	users    *fakeUsers
}

func newFixture() *fixture {
	syncer := &fakeSyncer{result: &syncpkg.Result{Created: 1}}
	accounts := &fakeAccounts{accounts: map[string]models.AdAccount{}}
	orgs := &fakeOrgs{orgs: map[string]models.Organization{}}
	users := &fakeUsers{users: map[uuid.UUID]models.User{}}

	return &fixture{
		server:   New(syncer, accounts, orgs, users, zap.NewNop()),
		syncer:   syncer,
		accounts: accounts,
		orgs:     orgs,
		users:    users,
	}
}

func (f *fixture) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func authHeaders() map[string]string {
	return map[string]string{
		"Authorization":    "Bearer test-token",
		"LinkedIn-Version": "202401",
	}
}

func TestSyncAdAccountsRequiresToken(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/sync/adAccounts", gin.H{"userId": uuid.NewString()}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSyncAdAccountsOK(t *testing.T) {
	f := newFixture()
	f.syncer.result = &syncpkg.Result{Created: 4, Updated: 2}

	rec := f.do(http.MethodPost, "/api/sync/adAccounts", gin.H{"userId": uuid.NewString()}, authHeaders())
	require.Equal(t, http.StatusOK, rec.Code)

	var result syncpkg.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 4, result.Created)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, "test-token", f.syncer.lastCred.Token)
	assert.Equal(t, "202401", f.syncer.lastCred.Version)
}

func TestSyncAdAccountsRejectsBadUserID(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/sync/adAccounts", gin.H{"userId": "not-a-uuid"}, authHeaders())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncAdAccountsUpstreamAuthFailure(t *testing.T) {
	f := newFixture()
	f.syncer.err = &linkedin.UpstreamError{Status: http.StatusUnauthorized, Message: "token expired"}

	rec := f.do(http.MethodPost, "/api/sync/adAccounts", gin.H{"userId": uuid.NewString()}, authHeaders())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSyncAdAccountsUpstreamServerFailure(t *testing.T) {
	f := newFixture()
	f.syncer.err = fmt.Errorf("fetch phase failed: %w", &linkedin.UpstreamError{Status: http.StatusInternalServerError, Message: "boom"})

	rec := f.do(http.MethodPost, "/api/sync/adAccounts", gin.H{"userId": uuid.NewString()}, authHeaders())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSyncAdAccountsTimeout(t *testing.T) {
	f := newFixture()
	f.syncer.err = fmt.Errorf("fetch phase failed: %w", &linkedin.UpstreamTimeoutError{Cause: context.DeadlineExceeded})

	rec := f.do(http.MethodPost, "/api/sync/adAccounts", gin.H{"userId": uuid.NewString()}, authHeaders())
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestSyncOrganizationsDerivesIDs(t *testing.T) {
	f := newFixture()
	f.accounts.orgIDs = []string{"70000001", "70000003"}

	rec := f.do(http.MethodPost, "/api/sync/organizations", gin.H{"userId": uuid.NewString()}, authHeaders())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"70000001", "70000003"}, f.syncer.lastIDs)
}

func TestSyncOrganizationsExplicitIDsWin(t *testing.T) {
	f := newFixture()
	f.accounts.orgIDs = []string{"70000001"}

	rec := f.do(http.MethodPost, "/api/sync/organizations",
		gin.H{"userId": uuid.NewString(), "organizationIds": []string{"80000009"}}, authHeaders())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"80000009"}, f.syncer.lastIDs)
}

func TestSyncOrganizationsNoIDsAnywhere(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/sync/organizations", gin.H{"userId": uuid.NewString()}, authHeaders())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAdAccount(t *testing.T) {
	f := newFixture()
	f.accounts.accounts["512345678"] = models.AdAccount{AdAccountID: "512345678", Name: "Test Account"}

	rec := f.do(http.MethodGet, "/api/adAccounts/512345678", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var acct models.AdAccount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
	assert.Equal(t, "Test Account", acct.Name)
}

func TestGetAdAccountNotFound(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/api/adAccounts/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAdAccountOrganization(t *testing.T) {
	f := newFixture()
	ref := "urn:li:organization:70000001"
	f.accounts.accounts["512345678"] = models.AdAccount{AdAccountID: "512345678", Reference: &ref}
	f.orgs.orgs["70000001"] = models.Organization{OrganizationID: "70000001", Name: strPtr("Acme Corp")}

	rec := f.do(http.MethodGet, "/api/adAccounts/512345678/organization", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var org models.Organization
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &org))
	assert.Equal(t, "70000001", org.OrganizationID)
}

func TestGetAdAccountOrganizationNotSynchronized(t *testing.T) {
	f := newFixture()
	ref := "urn:li:organization:70000099"
	f.accounts.accounts["512345678"] = models.AdAccount{AdAccountID: "512345678", Reference: &ref}

	rec := f.do(http.MethodGet, "/api/adAccounts/512345678/organization", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAdAccountOrganizationNoReference(t *testing.T) {
	f := newFixture()
	f.accounts.accounts["512345678"] = models.AdAccount{AdAccountID: "512345678"}

	rec := f.do(http.MethodGet, "/api/adAccounts/512345678/organization", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEarliestAdAccountDate(t *testing.T) {
	f := newFixture()
	earliest := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	f.accounts.earliest = &earliest

	rec := f.do(http.MethodGet, "/api/earliestAdAccountDate?userId="+uuid.NewString(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2023-05-01")
}

func TestDeleteUser(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.users.users[id] = models.User{ID: id, Email: "user@example.com"}

	rec := f.do(http.MethodDelete, "/api/users/"+id.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.users.users)

	rec = f.do(http.MethodDelete, "/api/users/"+id.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func strPtr(s string) *string { return &s }
