package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
	"tourbackend/internal/http/middleware"
	"tourbackend/internal/services"
)

// routeRequest carries route_points and days as parallel arrays; days[i]
// belongs to route_points[i] and may be null.
type routeRequest struct {
	Description *string  `json:"description"`
	RoutePoints *[]int64 `json:"route_points"`
	Days        []*int   `json:"days"`
}

func (r routeRequest) input() (services.RouteInput, error) {
	in := services.RouteInput{Description: r.Description}
	if r.RoutePoints == nil {
		if len(r.Days) > 0 {
			return in, domain.ValidationError{Field: "route_points", Msg: "is required when days are given"}
		}
		return in, nil
	}
	points := *r.RoutePoints
	if len(r.Days) > len(points) {
		return in, domain.ValidationError{Field: "days", Msg: fmt.Sprintf("has %d entries for %d route points", len(r.Days), len(points))}
	}
	in.StopsSet = true
	in.Stops = make([]models.RouteStop, 0, len(points))
	for i, id := range points {
		stop := models.RouteStop{PointID: id}
		if i < len(r.Days) {
			stop.Day = r.Days[i]
		}
		in.Stops = append(in.Stops, stop)
	}
	return in, nil
}

// GET /api/routes
func (h Handler) ListRoutes(c *gin.Context) {
	list, err := h.routes(c).List(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": list})
}

// GET /api/routes/search?description=
func (h Handler) SearchRoutes(c *gin.Context) {
	list, err := h.routes(c).Search(c.Request.Context(), c.Query("description"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": list})
}

// GET /api/routes/:id
func (h Handler) GetRoute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, err := h.routes(c).Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": v})
}

// POST /api/admin/routes
func (h Handler) CreateRoute(c *gin.Context) {
	var req routeRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	v, err := h.routes(c).Create(c.Request.Context(), middleware.GetIdentity(c), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "route created", "route": v})
}

// PUT|PATCH /api/admin/routes/:id
func (h Handler) UpdateRoute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req routeRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	v, err := h.routes(c).Update(c.Request.Context(), middleware.GetIdentity(c), id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "route updated", "route": v})
}

// DELETE /api/admin/routes/:id
func (h Handler) DeleteRoute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.routes(c).Delete(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "route deleted"})
}
