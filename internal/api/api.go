// Package api exposes the read-only HTTP listing endpoint over stored
// deposits — explicitly out of scope for the core engine (spec.md §1, §6)
// but given a minimal, real implementation here so the repository runs as
// a complete service. Grounded on internal/api/rest/rest.go's route layout
// and internal/api/middleware/cors.go.
package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/store"
)

const maxPageSize = 100

// Handler serves the listing endpoint over a DepositStore.
type Handler struct {
	store store.DepositStore
}

// NewHandler constructs a Handler over the given store.
func NewHandler(s store.DepositStore) *Handler {
	return &Handler{store: s}
}

// NewRouter builds a gin.Engine with CORS fully open (the teacher's
// SetupCORS default) and the listing routes registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
	}))

	router.GET("/health", h.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/deposits", h.ListDeposits)
		v1.GET("/deposits/:tx_hash", h.GetDeposit)
	}

	return router
}

// HealthCheck reports process liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listDepositsQuery holds the query parameters for GET /api/v1/deposits.
type listDepositsQuery struct {
	Chain  string `form:"chain"`
	Status string `form:"status"`
	Limit  int    `form:"limit,default=20"`
	Offset int    `form:"offset,default=0"`
}

// ListDeposits lists stored deposits, optionally filtered by chain and
// status, with pagination. It has no write path — the listing endpoint is
// read-only per spec.md §6.
func (h *Handler) ListDeposits(c *gin.Context) {
	var q listDepositsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Limit <= 0 || q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}

	statuses := []domain.Status{domain.StatusUnconfirmed, domain.StatusConfirming, domain.StatusConfirmed}
	if q.Status != "" {
		statuses = []domain.Status{domain.Status(q.Status)}
	}

	deposits, err := h.store.FindByStatusIn(c.Request.Context(), statuses)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list deposits"})
		return
	}

	filtered := make([]*domain.Deposit, 0, len(deposits))
	for _, dep := range deposits {
		if q.Chain != "" && !domain.ChainEquals(dep.Chain, domain.Chain(q.Chain)) {
			continue
		}
		filtered = append(filtered, dep)
	}

	start := q.Offset
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + q.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	c.JSON(http.StatusOK, gin.H{
		"deposits": filtered[start:end],
		"total":    len(filtered),
	})
}

// GetDeposit fetches a single deposit by transaction hash.
func (h *Handler) GetDeposit(c *gin.Context) {
	txHash := c.Param("tx_hash")

	dep, err := h.store.FindByTxHash(c.Request.Context(), txHash)
	if err != nil {
		if err == domain.ErrDepositNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "deposit not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch deposit"})
		return
	}

	c.JSON(http.StatusOK, dep)
}
