package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tourbackend/internal/cache"
	intconfig "tourbackend/internal/config"
	intdb "tourbackend/internal/db"
	router "tourbackend/internal/http"
	"tourbackend/internal/http/handlers"
	"tourbackend/internal/repositories"
	"tourbackend/internal/services"
	"tourbackend/internal/storage"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	db := intconfig.ConnectDB(env)
	defer intconfig.CloseDB()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := intdb.EnsureSchema(schemaCtx, db); err != nil {
		log.Fatalf("[CONFIG] failed to ensure schema: %v", err)
	}
	cancelSchema()

	var listing cache.ListingCache = cache.Nop{}
	if env.RedisAddr != "" {
		rc := cache.NewRedis(env.RedisAddr, env.RedisPassword, env.ListingCacheTTL)
		defer rc.Close()
		listing = rc
		log.Printf("[CONFIG] listing cache enabled at %s ttl=%s", env.RedisAddr, env.ListingCacheTTL)
	}

	store := repositories.Store{DB: db}
	photos := storage.LocalDisk{Root: env.UploadDir, BaseURL: env.PublicBaseURL}

	bookings := services.BookingService{
		Store:      store,
		Excursions: repositories.ExcursionRepo{},
		Bookings:   repositories.BookingRepo{},
		Listing:    listing,
		Window:     services.CancelWindow{Enabled: env.CancelWindowEnabled, Days: env.CancelWindowDays},
	}

	r := router.NewRouter(env, handlers.Handler{
		DB: db,
		Auth: services.AuthService{
			Store:  store,
			Users:  repositories.UserRepo{},
			Secret: env.JWTSecret,
			TTL:    env.JWTTTL,
		},
		Bookings: bookings,
		Excursions: services.ExcursionService{
			Store:      store,
			Excursions: repositories.ExcursionRepo{},
			Bookings:   repositories.BookingRepo{},
			Routes:     repositories.RouteRepo{},
			Cache:      listing,
			PhotoURL:   photos.URL,
		},
		Routes: services.RouteService{
			Store:       store,
			Routes:      repositories.RouteRepo{},
			RoutePoints: repositories.RoutePointRepo{},
			Listing:     listing,
			PhotoURL:    photos.URL,
		},
		RoutePoints: services.RoutePointService{
			Store:       store,
			RoutePoints: repositories.RoutePointRepo{},
			Photos:      photos,
			Listing:     listing,
		},
		Docs: services.DocsService{
			Bookings: bookings,
			Users:    repositories.UserRepo{},
		},
	})

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped cleanly.")
}
