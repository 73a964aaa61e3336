package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lmsapps/adsync/services/sync-service/internal/db"
	"github.com/lmsapps/adsync/services/sync-service/internal/linkedin"
	"github.com/lmsapps/adsync/services/sync-service/internal/sync"
)

type syncRequest struct {
	UserID          string   `json:"userId" binding:"required"`
	OrganizationIDs []string `json:"organizationIds"`
}

func (s *Server) handleSyncAdAccounts(c *gin.Context) {
	cred, ok := credential(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access token not found"})
		return
	}

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}

	result, err := s.syncer.SyncAdAccounts(c.Request.Context(), cred, userID)
	if err != nil {
		s.renderSyncError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSyncOrganizations(c *gin.Context) {
	cred, ok := credential(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access token not found"})
		return
	}

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}

	// When the caller passes no explicit IDs, sync every organization the
	// user's synchronized accounts reference.
	ids := req.OrganizationIDs
	if len(ids) == 0 {
		ids, err = s.accounts.ListOrganizationIDs(c.Request.Context(), userID)
		if err != nil {
			s.logger.Error("failed to derive organization IDs", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to derive organization IDs"})
			return
		}
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no organization IDs provided"})
		return
	}

	result, err := s.syncer.SyncOrganizations(c.Request.Context(), cred, ids)
	if err != nil {
		s.renderSyncError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListAdAccounts(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}

	var statuses []string
	if raw := c.Query("status"); raw != "" {
		statuses = strings.Split(raw, ",")
	}

	accounts, err := s.accounts.ListByUser(c.Request.Context(), userID, statuses)
	if err != nil {
		s.logger.Error("failed to list ad accounts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list ad accounts"})
		return
	}

	c.JSON(http.StatusOK, accounts)
}

func (s *Server) handleGetAdAccount(c *gin.Context) {
	acct, err := s.accounts.FindByKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ad account not found"})
			return
		}
		s.logger.Error("failed to fetch ad account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch ad account"})
		return
	}

	c.JSON(http.StatusOK, acct)
}

// handleGetAdAccountOrganization resolves an account's owning organization
// at display time: strip the URN prefix, look up zero-or-one organization.
// The organization may legitimately not exist locally yet.
func (s *Server) handleGetAdAccountOrganization(c *gin.Context) {
	acct, err := s.accounts.FindByKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ad account not found"})
			return
		}
		s.logger.Error("failed to fetch ad account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch ad account"})
		return
	}

	orgID := acct.OrganizationID()
	if orgID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "ad account references no organization"})
		return
	}

	org, err := s.orgs.FindByKey(c.Request.Context(), orgID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "organization not synchronized"})
			return
		}
		s.logger.Error("failed to fetch organization", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch organization"})
		return
	}

	c.JSON(http.StatusOK, org)
}

func (s *Server) handleGetOrganization(c *gin.Context) {
	org, err := s.orgs.FindByKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
			return
		}
		s.logger.Error("failed to fetch organization", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch organization"})
		return
	}

	c.JSON(http.StatusOK, org)
}

func (s *Server) handleEarliestAdAccountDate(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}

	earliest, err := s.accounts.EarliestCreatedAt(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("failed to fetch earliest ad account date", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch earliest ad account date"})
		return
	}

	c.JSON(http.StatusOK, earliest)
}

func (s *Server) handleGetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := s.users.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		s.logger.Error("failed to fetch user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := s.users.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		s.logger.Error("failed to delete user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// renderSyncError maps sync failures to response codes: upstream auth
// problems pass through as 401, other upstream rejections and a broken
// pagination contract are bad-gateway, timeouts are gateway-timeout.
func (s *Server) renderSyncError(c *gin.Context, err error) {
	s.logger.Error("sync cycle failed", zap.Error(err))

	var upstreamErr *linkedin.UpstreamError
	switch {
	case errors.As(err, &upstreamErr):
		if upstreamErr.Status == http.StatusUnauthorized || upstreamErr.Status == http.StatusForbidden {
			c.JSON(http.StatusUnauthorized, gin.H{"error": upstreamErr.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": upstreamErr.Error()})
	case errors.Is(err, linkedin.ErrPaginationLoop):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case isTimeout(err):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.Is(err, sync.ErrNoOrganizationIDs):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
	}
}

func isTimeout(err error) bool {
	var timeoutErr *linkedin.UpstreamTimeoutError
	return errors.As(err, &timeoutErr)
}
