package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lmsapps/adsync/services/mock-server/internal/mock"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	r := gin.Default()

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// LinkedIn REST endpoints
	rest := r.Group("/rest", requireUpstreamHeaders)
	{
		rest.GET("/adAccounts", handleGetAdAccounts)
		rest.GET("/organizationsLookup", handleOrganizationsLookup)
	}

	// Admin endpoints for testing
	admin := r.Group("/admin")
	{
		admin.POST("/accounts/add", handleAddAccounts)
		admin.POST("/failures", handleInjectFailures)
	}

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting mock LinkedIn API server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

// requireUpstreamHeaders enforces the headers the real API requires: a
// bearer token, the Restli protocol version and the API version.
func requireUpstreamHeaders(c *gin.Context) {
	if mock.ConsumeFailure() {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "injected failure"})
		return
	}
	if !strings.HasPrefix(c.GetHeader("Authorization"), "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
		return
	}
	if c.GetHeader("X-Restli-Protocol-Version") != "2.0.0" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "unsupported protocol version"})
		return
	}
	if c.GetHeader("LinkedIn-Version") == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "missing LinkedIn-Version header"})
		return
	}
	c.Next()
}

func handleGetAdAccounts(c *gin.Context) {
	if c.Query("q") != "search" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "unsupported query finder"})
		return
	}

	page, err := mock.GetAdAccountsPage(c.Query("pageToken"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, page)
}

func handleOrganizationsLookup(c *gin.Context) {
	ids, ok := parseIDList(c.Query("ids"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ids must be List(id1,id2,...)"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": mock.GetOrganizations(ids)})
}

// parseIDList unpacks the Restli List(id1,id2,...) syntax.
func parseIDList(raw string) ([]string, bool) {
	if !strings.HasPrefix(raw, "List(") || !strings.HasSuffix(raw, ")") {
		return nil, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(raw, "List("), ")")
	if inner == "" {
		return []string{}, true
	}
	return strings.Split(inner, ","), true
}

func handleAddAccounts(c *gin.Context) {
	var req struct {
		NumAccounts int `json:"numAccounts"`
	}

	// Try JSON body first
	if err := c.ShouldBindJSON(&req); err != nil {
		// Fall back to query parameter
		if num, err := strconv.Atoi(c.DefaultQuery("numAccounts", "1")); err == nil {
			req.NumAccounts = num
		} else {
			req.NumAccounts = 1
		}
	}

	if req.NumAccounts < 1 {
		req.NumAccounts = 1
	}

	total, err := mock.AddAccounts(req.NumAccounts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"added": req.NumAccounts,
		"total": total,
	})
}

func handleInjectFailures(c *gin.Context) {
	var req struct {
		Count int `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Count < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a non-negative integer"})
		return
	}

	mock.InjectFailures(req.Count)
	c.JSON(http.StatusOK, gin.H{"armed": req.Count})
}
