package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("learnhub")
	require.NoError(t, err)

	assert.Equal(t, "learnhub", cfg.ServiceName)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Equal(t, "learnhub", cfg.DB.DBName)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, 10, cfg.DB.MaxIdleConns)
	assert.Equal(t, 100, cfg.DB.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, gormlogger.Warn, cfg.DB.LogLevel)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)

	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiration)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshExpiration)
	assert.NotEqual(t, cfg.JWT.AccessSigningKey, cfg.JWT.RefreshSigningKey)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "learnhub", cfg.Metrics.Prefix)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "learnhub_test")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30m")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("JWT_ACCESS_EXPIRATION", "5m")
	t.Setenv("JWT_REFRESH_EXPIRATION", "24h")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load("learnhub")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "learnhub_test", cfg.DB.DBName)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, gormlogger.Silent, cfg.DB.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessExpiration)
	assert.Equal(t, 24*time.Hour, cfg.JWT.RefreshExpiration)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoadMalformedValuesFallBack(t *testing.T) {
	t.Setenv("DB_MAX_IDLE_CONNS", "not-a-number")
	t.Setenv("JWT_ACCESS_EXPIRATION", "soon")
	t.Setenv("DB_LOG_LEVEL", "verbose")

	cfg, err := Load("learnhub")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.DB.MaxIdleConns)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiration)
	assert.Equal(t, gormlogger.Warn, cfg.DB.LogLevel)
}

func TestGetDSN(t *testing.T) {
	db := DBConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "secret",
		DBName:   "learnhub",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=learnhub sslmode=disable",
		db.GetDSN())
}
