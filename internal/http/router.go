package api

import (
	"log"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"

	intconfig "tourbackend/internal/config"
	h "tourbackend/internal/http/handlers"
	"tourbackend/internal/http/middleware"
)

func NewRouter(env intconfig.Env, hd h.Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}
	r.MaxMultipartMemory = 8 << 20

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	if env.UploadDir != "" {
		r.Static("/storage", env.UploadDir)
	}

	hd.Engine = r
	limiter := middleware.NewIPRateLimiter(env.RateLimitRPS, env.RateLimitBurst)
	limit := middleware.RateLimit(limiter)
	auth := middleware.Auth(hd.Auth)

	api := r.Group("/api")
	{
		api.GET("/health", hd.Health)
		api.GET("/db-check", hd.DBCheck)
		api.GET("/endpoints", hd.Endpoints)

		// Auth
		api.POST("/register", limit, hd.Register)
		api.POST("/login", limit, hd.Login)
		api.GET("/user", auth, hd.Me)

		// Catalogue
		api.GET("/excursions", hd.ListExcursions)
		api.GET("/excursions/search", hd.SearchExcursions)
		api.GET("/excursions/:id", hd.GetExcursion)
		api.GET("/excursions/:id/quote", hd.QuoteExcursion)

		api.GET("/routes", hd.ListRoutes)
		api.GET("/routes/search", hd.SearchRoutes)
		api.GET("/routes/:id", hd.GetRoute)

		api.GET("/route-points", hd.ListRoutePoints)
		api.GET("/route-points/:id", hd.GetRoutePoint)

		// Bookings
		api.POST("/excursions/:id/book", auth, limit, hd.BookExcursion)
		api.PATCH("/excursions/:id/cancel", auth, limit, hd.CancelExcursion)

		bookings := api.Group("/bookings", auth)
		bookings.GET("", hd.ListBookings)
		bookings.GET("/:excursionId/ticket", hd.BookingTicket)

		// Admin
		admin := api.Group("/admin", auth, middleware.RequireAdmin())
		admin.POST("/excursions", hd.CreateExcursion)
		admin.PUT("/excursions/:id", hd.UpdateExcursion)
		admin.PATCH("/excursions/:id", hd.UpdateExcursion)
		admin.DELETE("/excursions/:id", hd.DeleteExcursion)

		admin.POST("/routes", hd.CreateRoute)
		admin.PUT("/routes/:id", hd.UpdateRoute)
		admin.PATCH("/routes/:id", hd.UpdateRoute)
		admin.DELETE("/routes/:id", hd.DeleteRoute)

		admin.POST("/route-points", hd.CreateRoutePoint)
		admin.POST("/route-points/:id", hd.UpdateRoutePoint)
		admin.PATCH("/route-points/:id", hd.UpdateRoutePoint)
		admin.DELETE("/route-points/:id", hd.DeleteRoutePoint)
	}

	return r
}
