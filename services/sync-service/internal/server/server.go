package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lmsapps/adsync/services/sync-service/internal/linkedin"
	"github.com/lmsapps/adsync/services/sync-service/internal/models"
	"github.com/lmsapps/adsync/services/sync-service/internal/sync"
)

// AccountReader reads synchronized ad accounts for the dashboard routes.
type AccountReader interface {
	FindByKey(ctx context.Context, key string) (models.AdAccount, error)
	ListByUser(ctx context.Context, userID uuid.UUID, statuses []string) ([]models.AdAccount, error)
	EarliestCreatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error)
	ListOrganizationIDs(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// OrganizationReader reads synchronized organizations.
type OrganizationReader interface {
	FindByKey(ctx context.Context, key string) (models.Organization, error)
}

// UserRepository backs the profile and deletion routes.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Syncer runs one synchronization cycle per call.
type Syncer interface {
	SyncAdAccounts(ctx context.Context, cred linkedin.Credential, userID uuid.UUID) (*sync.Result, error)
	SyncOrganizations(ctx context.Context, cred linkedin.Credential, ids []string) (*sync.Result, error)
}

// Server wires the dashboard HTTP routes to the stores and the sync
// orchestrator. All handlers are thin; the sync engine carries the logic.
type Server struct {
	router   *gin.Engine
	syncer   Syncer
	accounts AccountReader
	orgs     OrganizationReader
	users    UserRepository
	logger   *zap.Logger
}

func New(syncer Syncer, accounts AccountReader, orgs OrganizationReader, users UserRepository, logger *zap.Logger) *Server {
	s := &Server{
		router:   gin.Default(),
		syncer:   syncer,
		accounts: accounts,
		orgs:     orgs,
		users:    users,
		logger:   logger,
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	{
		api.POST("/sync/adAccounts", s.handleSyncAdAccounts)
		api.POST("/sync/organizations", s.handleSyncOrganizations)
		api.GET("/adAccounts", s.handleListAdAccounts)
		api.GET("/adAccounts/:id", s.handleGetAdAccount)
		api.GET("/adAccounts/:id/organization", s.handleGetAdAccountOrganization)
		api.GET("/organizations/:id", s.handleGetOrganization)
		api.GET("/earliestAdAccountDate", s.handleEarliestAdAccountDate)
		api.GET("/users/:id", s.handleGetUser)
		api.DELETE("/users/:id", s.handleDeleteUser)
	}

	return s
}

// Handler exposes the router to the http.Server in app and to tests.
func (s *Server) Handler() http.Handler { return s.router }

// credential reads the caller's upstream credential from the request. The
// dashboard's auth layer owns token issuance; this service just forwards it.
func credential(c *gin.Context) (linkedin.Credential, bool) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header {
		return linkedin.Credential{}, false
	}
	return linkedin.Credential{
		Token:   token,
		Version: c.GetHeader("LinkedIn-Version"),
	}, true
}
