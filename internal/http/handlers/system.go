package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	intdb "tourbackend/internal/db"
)

func (h Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "excursion booking backend is running"})
}

func (h Handler) DBCheck(c *gin.Context) {
	if h.DB == nil {
		respondError(c, http.StatusInternalServerError, "db_unavailable", "database is not connected", nil)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		respondError(c, http.StatusInternalServerError, "db_unavailable", "database ping failed: "+err.Error(), nil)
		return
	}
	var count int
	if err := h.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM excursions").Scan(&count); err != nil {
		respondError(c, http.StatusInternalServerError, "db_query_failed", "database query failed: "+err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":          "database connection OK",
		"excursions_in_db": count,
		"bookings_ready":   intdb.HasTable(ctx, h.DB, "bookings"),
	})
}

// Endpoints lists the registered routes of the engine.
func (h Handler) Endpoints(c *gin.Context) {
	if h.Engine == nil {
		respondError(c, http.StatusServiceUnavailable, "router_not_ready", "router is not ready", nil)
		return
	}
	routes := h.Engine.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{"method": rt.Method, "path": rt.Path})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
