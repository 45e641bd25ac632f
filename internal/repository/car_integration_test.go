package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Atishay264/Car-Management-App/internal/config"
	"github.com/Atishay264/Car-Management-App/internal/database"
	"github.com/Atishay264/Car-Management-App/internal/domain/model"
)

// setupTestRepo поднимает PostgreSQL, применяет миграции и возвращает репозиторий.
func setupTestRepo(t *testing.T) CarRepository {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("cars_test"),
		postgres.WithUsername("cars"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("CM_DB_HOST", host)
	t.Setenv("CM_DB_PORT", port.Port())
	t.Setenv("CM_DB_NAME", "cars_test")
	t.Setenv("CM_DB_USER", "cars")
	t.Setenv("CM_DB_PASSWORD", "test-password")
	t.Setenv("CM_JWT_SECRET", "test-secret")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}

	var pool *pgxpool.Pool
	pool, err = database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	t.Cleanup(pool.Close)

	return NewCarRepository(pool)
}

func insertCar(t *testing.T, repo CarRepository, owner, title string, tags model.Tags, images ...string) *model.Car {
	t.Helper()
	if len(images) == 0 {
		images = []string{"/uploads/a.jpg"}
	}
	car := &model.Car{
		OwnerID:     owner,
		Title:       title,
		Description: "Описание объявления " + title,
		Images:      images,
		Tags:        tags,
	}
	if err := repo.Insert(context.Background(), car); err != nil {
		t.Fatalf("Insert() вернул ошибку: %v", err)
	}
	return car
}

// TestCarRepository_Integration проверяет CRUD, поиск и статистику на реальной БД.
func TestCarRepository_Integration(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	ford1 := insertCar(t, repo, "alice", "Ford Focus", model.Tags{"carType": "Hatchback", "company": "Ford", "dealer": "North"},
		"/uploads/1.jpg", "/uploads/2.jpg", "/uploads/3.jpg")
	insertCar(t, repo, "alice", "Ford Kuga", model.Tags{"carType": "SUV", "company": "Ford", "dealer": "South"})
	kia := insertCar(t, repo, "alice", "Kia Rio", model.Tags{"carType": "Sedan", "company": "Kia", "dealer": "toyota-center"})
	insertCar(t, repo, "bob", "Toyota Camry", model.Tags{"carType": "Sedan", "company": "Toyota", "dealer": "East"})

	t.Run("Insert", func(t *testing.T) {
		if len(ford1.ID) != 24 {
			t.Errorf("ID = %q, ожидалось 24 символа", ford1.ID)
		}
		if ford1.CreatedAt.IsZero() || ford1.UpdatedAt.IsZero() {
			t.Error("временные метки не назначены")
		}
		got, err := repo.GetByID(ctx, ford1.ID, "alice")
		if err != nil {
			t.Fatalf("GetByID() вернул ошибку: %v", err)
		}
		if len(got.Images) != 3 {
			t.Errorf("len(Images) = %d, ожидалось 3", len(got.Images))
		}
		if got.Tags["dealer"] != "North" {
			t.Errorf("tags.dealer = %q", got.Tags["dealer"])
		}
	})

	t.Run("Ownership", func(t *testing.T) {
		if _, err := repo.GetByID(ctx, ford1.ID, "bob"); !errors.Is(err, ErrNotFound) {
			t.Errorf("чужое объявление: ожидалась ErrNotFound, получено %v", err)
		}
		if _, err := repo.Update(ctx, ford1.ID, "bob", CarPatch{}); !errors.Is(err, ErrNotFound) {
			t.Errorf("чужое обновление: ожидалась ErrNotFound, получено %v", err)
		}
		if _, err := repo.Delete(ctx, ford1.ID, "bob"); !errors.Is(err, ErrNotFound) {
			t.Errorf("чужое удаление: ожидалась ErrNotFound, получено %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		cars, err := repo.List(ctx, "alice", "")
		if err != nil {
			t.Fatalf("List() вернул ошибку: %v", err)
		}
		if len(cars) != 3 {
			t.Fatalf("len = %d, ожидалось 3", len(cars))
		}
		for i := 1; i < len(cars); i++ {
			if cars[i].CreatedAt.After(cars[i-1].CreatedAt) {
				t.Error("список должен быть отсортирован по убыванию created_at")
			}
		}

		cars, err = repo.List(ctx, "alice", "kuga rio")
		if err != nil {
			t.Fatalf("List(search) вернул ошибку: %v", err)
		}
		if len(cars) != 2 {
			t.Errorf("len = %d, ожидалось 2 (kuga OR rio)", len(cars))
		}
	})

	t.Run("Search", func(t *testing.T) {
		cars, err := repo.Search(ctx, "alice", "TOYOTA")
		if err != nil {
			t.Fatalf("Search() вернул ошибку: %v", err)
		}
		if len(cars) != 1 || cars[0].ID != kia.ID {
			t.Errorf("ожидалось только объявление Kia (dealer toyota-center), получено %d", len(cars))
		}

		cars, err = repo.Search(ctx, "alice", "%")
		if err != nil {
			t.Fatalf("Search() вернул ошибку: %v", err)
		}
		if len(cars) != 0 {
			t.Errorf("%% должен искаться буквально, получено %d", len(cars))
		}
	})

	t.Run("Stats", func(t *testing.T) {
		total, err := repo.Count(ctx, "alice")
		if err != nil || total != 3 {
			t.Fatalf("Count() = %d, %v; ожидалось 3", total, err)
		}
		groups, err := repo.CountByGroup(ctx, "alice", GroupByCompany)
		if err != nil {
			t.Fatalf("CountByGroup() вернул ошибку: %v", err)
		}
		got := map[string]int{}
		for _, g := range groups {
			if g.Value == nil {
				t.Fatal("неожиданная группа без значения")
			}
			got[*g.Value] = g.Count
		}
		if got["Ford"] != 2 || got["Kia"] != 1 || len(got) != 2 {
			t.Errorf("группы = %v, ожидалось Ford:2 Kia:1", got)
		}
	})

	t.Run("Update", func(t *testing.T) {
		title := "Ford Focus ST"
		updated, err := repo.Update(ctx, ford1.ID, "alice", CarPatch{Title: &title})
		if err != nil {
			t.Fatalf("Update() вернул ошибку: %v", err)
		}
		if updated.Title != title {
			t.Errorf("Title = %q", updated.Title)
		}
		if updated.Description != ford1.Description {
			t.Errorf("Description изменён: %q", updated.Description)
		}
		if len(updated.Images) != 3 || updated.Tags["company"] != "Ford" {
			t.Error("незаданные поля должны сохраниться")
		}
		if !updated.UpdatedAt.After(ford1.UpdatedAt) && !updated.UpdatedAt.Equal(ford1.UpdatedAt) {
			t.Error("updated_at не должен уменьшаться")
		}

		images := []string{"/uploads/new.png"}
		updated, err = repo.Update(ctx, ford1.ID, "alice", CarPatch{Images: &images})
		if err != nil {
			t.Fatalf("Update(images) вернул ошибку: %v", err)
		}
		if len(updated.Images) != 1 || updated.Images[0] != "/uploads/new.png" {
			t.Errorf("Images = %v", updated.Images)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, kia.ID, "alice")
		if err != nil {
			t.Fatalf("Delete() вернул ошибку: %v", err)
		}
		if deleted.ID != kia.ID || len(deleted.Images) != 1 {
			t.Errorf("удалённая запись = %+v", deleted)
		}
		if _, err := repo.GetByID(ctx, kia.ID, "alice"); !errors.Is(err, ErrNotFound) {
			t.Errorf("после удаления ожидалась ErrNotFound, получено %v", err)
		}
	})
}
