package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tourbackend/internal/domain"
	"tourbackend/internal/http/middleware"
	"tourbackend/internal/services"
)

// routePointForm reads description, order and photo from a multipart or
// urlencoded form. Absent keys stay nil. The returned close func must be
// called once the photo has been consumed.
func routePointForm(c *gin.Context) (services.RoutePointInput, func(), error) {
	var in services.RoutePointInput
	noop := func() {}

	if v, ok := c.GetPostForm("description"); ok {
		in.Description = &v
	}
	if raw, ok := c.GetPostForm("order"); ok && strings.TrimSpace(raw) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return in, noop, domain.ValidationError{Field: "order", Msg: "must be an integer"}
		}
		in.Order = &n
	}

	fh, err := c.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, noop, nil
	case err != nil:
		return in, noop, domain.ValidationError{Field: "photo", Msg: "could not read upload", Err: err}
	}
	f, err := fh.Open()
	if err != nil {
		return in, noop, domain.ValidationError{Field: "photo", Msg: "could not read upload", Err: err}
	}
	in.Photo = f
	return in, func() { _ = f.Close() }, nil
}

// GET /api/route-points
func (h Handler) ListRoutePoints(c *gin.Context) {
	list, err := h.routePoints(c).List(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route_points": list})
}

// GET /api/route-points/:id
func (h Handler) GetRoutePoint(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, err := h.routePoints(c).Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route_point": v})
}

// POST /api/admin/route-points (multipart)
func (h Handler) CreateRoutePoint(c *gin.Context) {
	in, done, err := routePointForm(c)
	defer done()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	v, err := h.routePoints(c).Create(c.Request.Context(), middleware.GetIdentity(c), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "route point created", "route_point": v})
}

// POST|PATCH /api/admin/route-points/:id (multipart)
func (h Handler) UpdateRoutePoint(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	in, done, err := routePointForm(c)
	defer done()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	v, err := h.routePoints(c).Update(c.Request.Context(), middleware.GetIdentity(c), id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "route point updated", "route_point": v})
}

// DELETE /api/admin/route-points/:id
func (h Handler) DeleteRoutePoint(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.routePoints(c).Delete(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "route point deleted"})
}
