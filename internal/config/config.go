// Пакет config — загрузка и валидация конфигурации Car Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Допустимые backend'ы хранения изображений.
const (
	BlobBackendLocal = "local"
	BlobBackendS3    = "s3"
)

// Config содержит все параметры конфигурации Car Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (по умолчанию 8040)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- JWT ---

	// URL JWKS endpoint IdP (RS256). При наличии обоих используется JWKS.
	JWTJWKSURL string
	// Общий секрет HS256 (используется, если JWKS URL не задан)
	JWTSecret string
	// Ожидаемый issuer (пустой — не проверяется)
	JWTIssuer string
	// Путь к CA-сертификату для JWKS endpoint (опционально)
	JWTCACertPath string
	// Таймаут HTTP-клиента JWKS (по умолчанию 10s)
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей (по умолчанию 15m)
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT (по умолчанию 5s)
	JWTLeeway time.Duration

	// --- Хранилище изображений ---

	// Backend: local или s3
	BlobBackend string
	// Корневая директория для local backend
	UploadDir string
	// Параметры S3/MinIO для s3 backend
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3UseSSL    bool

	// --- Ограничения загрузки ---

	// Максимальный размер одного изображения в байтах (по умолчанию 5 MiB)
	MaxImageSize int64
	// Максимальный размер тела multipart-запроса (по умолчанию 64 MiB)
	MaxRequestSize int64
	// Количество параллельных удалений при освобождении изображений
	BlobCleanupConcurrency int

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
//
//nolint:cyclop,funlen // линейная загрузка переменных
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = getEnvInt("CM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("CM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CM_PORT: порт %d вне диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CM_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("CM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("CM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("CM_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("CM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("CM_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("CM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CM_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("CM_DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.DBUser, err = getEnvRequired("CM_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("CM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("CM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- JWT ---

	cfg.JWTJWKSURL = os.Getenv("CM_JWT_JWKS_URL")
	cfg.JWTSecret = os.Getenv("CM_JWT_SECRET")
	if cfg.JWTJWKSURL == "" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("CM_JWT_JWKS_URL / CM_JWT_SECRET: должна быть задана хотя бы одна переменная")
	}
	cfg.JWTIssuer = os.Getenv("CM_JWT_ISSUER")
	cfg.JWTCACertPath = os.Getenv("CM_JWT_CA_CERT_PATH")

	cfg.JWKSClientTimeout, err = getEnvDuration("CM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("CM_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWTLeeway, err = getEnvDuration("CM_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_JWT_LEEWAY: %w", err)
	}

	// --- Хранилище изображений ---

	cfg.BlobBackend = strings.ToLower(getEnvDefault("CM_BLOB_BACKEND", BlobBackendLocal))
	switch cfg.BlobBackend {
	case BlobBackendLocal:
		cfg.UploadDir = getEnvDefault("CM_UPLOAD_DIR", "./uploads")
	case BlobBackendS3:
		if err := loadS3(cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("CM_BLOB_BACKEND: недопустимое значение %q, допустимые: local, s3", cfg.BlobBackend)
	}

	// --- Ограничения загрузки ---

	cfg.MaxImageSize, err = getEnvInt64("CM_MAX_IMAGE_SIZE", 5<<20)
	if err != nil {
		return nil, fmt.Errorf("CM_MAX_IMAGE_SIZE: %w", err)
	}
	if cfg.MaxImageSize <= 0 {
		return nil, fmt.Errorf("CM_MAX_IMAGE_SIZE: значение должно быть > 0")
	}
	cfg.MaxRequestSize, err = getEnvInt64("CM_MAX_REQUEST_SIZE", 64<<20)
	if err != nil {
		return nil, fmt.Errorf("CM_MAX_REQUEST_SIZE: %w", err)
	}
	if cfg.MaxRequestSize < cfg.MaxImageSize {
		return nil, fmt.Errorf("CM_MAX_REQUEST_SIZE: значение %d меньше CM_MAX_IMAGE_SIZE (%d)", cfg.MaxRequestSize, cfg.MaxImageSize)
	}
	cfg.BlobCleanupConcurrency, err = getEnvInt("CM_BLOB_CLEANUP_CONCURRENCY", 4)
	if err != nil {
		return nil, fmt.Errorf("CM_BLOB_CLEANUP_CONCURRENCY: %w", err)
	}
	if cfg.BlobCleanupConcurrency < 1 {
		return nil, fmt.Errorf("CM_BLOB_CLEANUP_CONCURRENCY: значение должно быть >= 1")
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("CM_DEPHEALTH_GROUP", "car-management")
	cfg.DephealthCheckInterval, err = getEnvDuration("CM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("CM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadS3 загружает параметры S3/MinIO backend.
func loadS3(cfg *Config) error {
	var err error
	if cfg.S3Endpoint, err = getEnvRequired("CM_S3_ENDPOINT"); err != nil {
		return err
	}
	if cfg.S3AccessKey, err = getEnvRequired("CM_S3_ACCESS_KEY"); err != nil {
		return err
	}
	if cfg.S3SecretKey, err = getEnvRequired("CM_S3_SECRET_KEY"); err != nil {
		return err
	}
	cfg.S3Bucket = getEnvDefault("CM_S3_BUCKET", "car-images")
	cfg.S3Prefix = os.Getenv("CM_S3_PREFIX")
	cfg.S3Region = os.Getenv("CM_S3_REGION")
	cfg.S3UseSSL, err = getEnvBool("CM_S3_USE_SSL", false)
	if err != nil {
		return fmt.Errorf("CM_S3_USE_SSL: %w", err)
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL.
// Используется topologymetrics для лейблов (host/port), не для подключения.
func (c *Config) DatabaseURL() string {
	return c.dbURL("postgres")
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return c.dbURL("pgx5")
}

func (c *Config) dbURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// S3URL возвращает URL S3 endpoint для мониторинга зависимостей.
// Пустая строка, если используется локальное хранилище.
func (c *Config) S3URL() string {
	if c.BlobBackend != BlobBackendS3 {
		return ""
	}
	scheme := "http"
	if c.S3UseSSL {
		scheme = "https"
	}
	return scheme + "://" + c.S3Endpoint
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 — как getEnvInt, но для размеров в байтах.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
