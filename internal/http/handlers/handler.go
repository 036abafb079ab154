package handlers

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"tourbackend/internal/http/middleware"
	"tourbackend/internal/services"
)

// Handler holds the configured services. Each request works on a copy tagged
// with its request id.
type Handler struct {
	DB          *sql.DB
	Engine      *gin.Engine
	Auth        services.AuthService
	Bookings    services.BookingService
	Excursions  services.ExcursionService
	Routes      services.RouteService
	RoutePoints services.RoutePointService
	Docs        services.DocsService
}

func (h Handler) auth(c *gin.Context) services.AuthService {
	s := h.Auth
	s.RequestID = middleware.GetRequestID(c)
	return s
}

func (h Handler) bookings(c *gin.Context) services.BookingService {
	s := h.Bookings
	s.RequestID = middleware.GetRequestID(c)
	return s
}

func (h Handler) excursions(c *gin.Context) services.ExcursionService {
	s := h.Excursions
	s.RequestID = middleware.GetRequestID(c)
	return s
}

func (h Handler) routes(c *gin.Context) services.RouteService {
	s := h.Routes
	s.RequestID = middleware.GetRequestID(c)
	return s
}

func (h Handler) routePoints(c *gin.Context) services.RoutePointService {
	s := h.RoutePoints
	s.RequestID = middleware.GetRequestID(c)
	return s
}

func (h Handler) docs(c *gin.Context) services.DocsService {
	s := h.Docs
	s.RequestID = middleware.GetRequestID(c)
	s.Bookings = h.bookings(c)
	return s
}
