// Точка входа Car Module — backend объявлений о продаже автомобилей.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// инициализирует хранилище изображений (локальный каталог или S3),
// сервисный слой, JWT middleware, topologymetrics и HTTP-сервер
// с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Atishay264/Car-Management-App/internal/api/handlers"
	"github.com/Atishay264/Car-Management-App/internal/api/middleware"
	"github.com/Atishay264/Car-Management-App/internal/config"
	"github.com/Atishay264/Car-Management-App/internal/database"
	"github.com/Atishay264/Car-Management-App/internal/repository"
	"github.com/Atishay264/Car-Management-App/internal/server"
	"github.com/Atishay264/Car-Management-App/internal/service"
	"github.com/Atishay264/Car-Management-App/internal/storage/blob"
	"github.com/Atishay264/Car-Management-App/internal/storage/filestore"
	"github.com/Atishay264/Car-Management-App/internal/storage/s3store"
)

const serviceID = "car-module"

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Car Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("blob_backend", cfg.BlobBackend),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("Car Module завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Car Module остановлен")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// 3. Миграции БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		return err
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Хранилище изображений
	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// 6. Repository и сервисы
	carRepo := repository.NewCarRepository(pool)
	cleaner := service.NewBlobCleaner(blobs, cfg.BlobCleanupConcurrency, logger)
	carSvc := service.NewCarService(carRepo, blobs, cleaner, logger)

	// 7. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
		JWKSURL:             cfg.JWTJWKSURL,
		Secret:              cfg.JWTSecret,
		Issuer:              cfg.JWTIssuer,
		CACertPath:          cfg.JWTCACertPath,
		JWKSClientTimeout:   cfg.JWKSClientTimeout,
		JWKSRefreshInterval: cfg.JWKSRefreshInterval,
		Leeway:              cfg.JWTLeeway,
	}, logger)
	if err != nil {
		return err
	}
	logger.Info("JWT middleware инициализирован",
		slog.Bool("jwks", cfg.JWTJWKSURL != ""),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 8. Readiness checkers (PostgreSQL + JWKS, если настроен)
	var idpChecker handlers.ReadinessChecker
	if cfg.JWTJWKSURL != "" {
		idpChecker, err = middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, cfg.JWTCACertPath, cfg.JWKSClientTimeout)
		if err != nil {
			return err
		}
	}
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), idpChecker)

	// 9. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, carSvc, blobs, handlers.Limits{
		MaxImageSize:   cfg.MaxImageSize,
		MaxRequestSize: cfg.MaxRequestSize,
	}, logger)

	// 10. topologymetrics — мониторинг зависимостей (PostgreSQL + S3)
	dephealthSvc, err := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     serviceID,
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PgConnURL:     cfg.DatabaseURL(),
		S3URL:         cfg.S3URL(),
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 11. HTTP-сервер (блокирующий вызов)
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	runErr := srv.Run(ctx)

	// 12. Завершение фоновых задач
	logger.Info("Ожидание завершения освобождения изображений...")
	cleaner.Wait()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	return runErr
}

// newBlobStore создаёт хранилище изображений по CM_BLOB_BACKEND.
func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blob.Store, error) {
	if cfg.BlobBackend == config.BlobBackendS3 {
		return s3store.New(ctx, s3store.Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		}, logger)
	}

	fs, err := filestore.New(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	logger.Info("Локальное хранилище изображений", slog.String("dir", fs.Dir()))
	return fs, nil
}
