package config

import (
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "rating"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "gateway"
	c.Auth.JWTAudience = "rating"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected default access ttl, got %s", c.Auth.AccessTokenTTL)
	}
	if c.Rating.DefaultPageSize != 20 || c.Rating.MaxPageSize != 100 {
		t.Fatalf("unexpected page defaults: %+v", c.Rating)
	}
	if c.Rating.LookupConcurrency != 50 || c.Rating.LookupCapTTL != 30*time.Second {
		t.Fatalf("unexpected lookup cap defaults: %+v", c.Rating)
	}
}

func TestValidate_RejectsDefaultPageAboveMax(t *testing.T) {
	c := validLocal()
	c.Rating.DefaultPageSize = 500
	c.Rating.MaxPageSize = 100
	if err := c.Validate(); err == nil {
		t.Fatalf("expected page size error")
	}
}

func TestLoad_ReadsEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "rating")
	t.Setenv("DB_NAME", "rating")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("RATING_LOOKUP_CONCURRENCY", "7")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPAddr() != ":9000" || !c.DB.AutoMigrate || c.Rating.LookupConcurrency != 7 {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.RedisAddr() != "redis:6379" {
		t.Fatalf("unexpected redis addr %q", c.RedisAddr())
	}
}
