package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Env struct {
	AppAddr string
	GinMode string

	DBUser     string
	DBPassword string
	DBHost     string
	DBName     string

	JWTSecret []byte
	JWTTTL    time.Duration

	CancelWindowEnabled bool
	CancelWindowDays    int

	RedisAddr       string
	RedisPassword   string
	ListingCacheTTL time.Duration

	UploadDir     string
	PublicBaseURL string

	CORSOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int
}

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// LoadEnv reads settings from the environment, loading .env first when present.
func LoadEnv() Env {
	if err := godotenv.Load(); err != nil {
		log.Println("[CONFIG] no .env file found; using system environment")
	}
	return envFrom(os.Getenv)
}

func envFrom(get func(string) string) Env {
	str := func(key, def string) string {
		if v := strings.TrimSpace(get(key)); v != "" {
			return v
		}
		return def
	}
	num := func(key string, def int) int {
		v := strings.TrimSpace(get(key))
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("[CONFIG] invalid %s=%q, using %d", key, v, def)
			return def
		}
		return n
	}
	flag := func(key string, def bool) bool {
		v := strings.TrimSpace(get(key))
		if v == "" {
			return def
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("[CONFIG] invalid %s=%q, using %v", key, v, def)
			return def
		}
		return b
	}

	origins := defaultCORSOrigins
	if raw := strings.TrimSpace(get("CORS_ALLOWED_ORIGINS")); raw != "" {
		origins = nil
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	rps, err := strconv.ParseFloat(str("RATE_LIMIT_RPS", "5"), 64)
	if err != nil || rps <= 0 {
		rps = 5
	}

	return Env{
		AppAddr: str("APP_ADDR", ":8080"),
		GinMode: strings.TrimSpace(get("GIN_MODE")),

		DBUser:     str("DB_USER", "root"),
		DBPassword: get("DB_PASSWORD"),
		DBHost:     str("DB_HOST", "127.0.0.1:3306"),
		DBName:     str("DB_NAME", "excursions"),

		JWTSecret: []byte(str("JWT_SECRET", "dev-secret-change-me")),
		JWTTTL:    time.Duration(num("JWT_TTL_HOURS", 24)) * time.Hour,

		CancelWindowEnabled: flag("CANCEL_WINDOW_ENABLED", true),
		CancelWindowDays:    num("CANCEL_WINDOW_DAYS", 7),

		RedisAddr:       strings.TrimSpace(get("REDIS_ADDR")),
		RedisPassword:   get("REDIS_PASSWORD"),
		ListingCacheTTL: time.Duration(num("LISTING_CACHE_TTL_SECONDS", 30)) * time.Second,

		UploadDir:     str("UPLOAD_DIR", "./storage"),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(get("PUBLIC_BASE_URL")), "/"),

		CORSOrigins: origins,

		RateLimitRPS:   rps,
		RateLimitBurst: num("RATE_LIMIT_BURST", 10),
	}
}
