package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CatalogBase string
	CatalogKey  string
	// MinDeposit is the completed-settlement threshold (minor units) for
	// confirming a reservation; 1 means any positive payment.
	MinDeposit int64
	// OverpayTolerance is how far completed settlements may exceed the
	// reservation total (minor units) before being rejected.
	OverpayTolerance int64
	SweepWorkers     int
	CacheTTL         time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:           env("APP_ENV", "prod"),
		HTTPAddr:         env("HTTP_ADDR", ":8080"),
		MetricsAddr:      env("METRICS_ADDR", ":9100"),
		MySQLDSN:         env("MYSQL_DSN", "root:root@tcp(localhost:3306)/stayhub?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:        env("REDIS_ADDR", "localhost:6379"),
		RedisDB:          atoi("REDIS_DB", 0),
		RedisPass:        env("REDIS_PASSWORD", ""),
		CatalogBase:      env("CATALOG_BASE_URL", "http://localhost:8090"),
		CatalogKey:       env("CATALOG_API_KEY", ""),
		MinDeposit:       int64(atoi("MIN_DEPOSIT_CENTS", 1)),
		OverpayTolerance: int64(atoi("OVERPAY_TOLERANCE_CENTS", 0)),
		SweepWorkers:     atoi("SWEEP_WORKERS", 8),
		CacheTTL:         time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
	}
	if c.CatalogKey == "" {
		log.Warn().Msg("CATALOG_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
