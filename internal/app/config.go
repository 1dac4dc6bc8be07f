package app

import (
	"strings"
	"time"

	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"github.com/verdelo/carbonledger-backend/internal/utils"
)

type Config struct {
	Environment string
	Port        string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	CORSOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int

	MetricsAddr string
}

func LoadConfig(log *logger.Logger) Config {
	environment := utils.GetEnv("ENVIRONMENT", "development", log)
	port := utils.GetEnv("PORT", "8080", log)
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	corsOrigins := utils.GetEnv("CORS_ORIGINS", "", log)
	rateLimitRPS := utils.GetEnvAsInt("RATE_LIMIT_RPS", 10, log)
	rateLimitBurst := utils.GetEnvAsInt("RATE_LIMIT_BURST", 20, log)
	metricsAddr := utils.GetEnv("METRICS_ADDR", "", log)

	return Config{
		Environment:    environment,
		Port:           port,
		JWTSecretKey:   jwtSecretKey,
		AccessTokenTTL: time.Duration(accessTokenTTLSeconds) * time.Second,
		CORSOrigins:    splitOrigins(corsOrigins),
		RateLimitRPS:   float64(rateLimitRPS),
		RateLimitBurst: rateLimitBurst,
		MetricsAddr:    metricsAddr,
	}
}

func (c Config) IsDev() bool {
	return c.Environment != "production"
}

func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
