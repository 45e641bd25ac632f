// cars.go — бизнес-логика объявлений: создание, чтение, обновление,
// удаление, поиск и статистика. Все операции ограничены владельцем.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Atishay264/Car-Management-App/internal/domain/model"
	"github.com/Atishay264/Car-Management-App/internal/repository"
	"github.com/Atishay264/Car-Management-App/internal/storage/blob"
)

// Prometheus метрики объявлений
var (
	carsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_cars_created_total",
		Help: "Количество созданных объявлений",
	})
	carsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_cars_deleted_total",
		Help: "Количество удалённых объявлений",
	})
	blobsStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_blobs_stored_total",
		Help: "Количество сохранённых изображений",
	})
)

// ImageUpload — загруженное изображение.
type ImageUpload struct {
	Filename string
	// Size — размер в байтах (-1, если неизвестен)
	Size int64
	// Open открывает содержимое. Вызывающий код закрывает reader.
	Open func() (io.ReadCloser, error)
}

// CreateCarParams — параметры создания объявления.
type CreateCarParams struct {
	Title       string
	Description string
	// TagsJSON — JSON-объект тегов
	TagsJSON string
	Images   []ImageUpload
}

// UpdateCarParams — параметры обновления. Пустая строка или пустой
// список изображений означает «не изменять».
type UpdateCarParams struct {
	Title       string
	Description string
	TagsJSON    string
	Images      []ImageUpload
}

// CarService — сервис объявлений.
type CarService struct {
	repo    repository.CarRepository
	store   blob.Store
	cleaner *BlobCleaner
	logger  *slog.Logger
}

// NewCarService создаёт сервис объявлений.
func NewCarService(repo repository.CarRepository, store blob.Store, cleaner *BlobCleaner, logger *slog.Logger) *CarService {
	return &CarService{
		repo:    repo,
		store:   store,
		cleaner: cleaner,
		logger:  logger.With(slog.String("component", "car_service")),
	}
}

// Create сохраняет изображения и создаёт объявление владельца.
// При ошибке записи в БД уже сохранённые изображения освобождаются.
func (s *CarService) Create(ctx context.Context, id model.Identity, p CreateCarParams) (*model.Car, error) {
	if id.OwnerID == "" {
		return nil, ErrUnauthenticated
	}
	if n := len(p.Images); n < 1 || n > model.MaxImages {
		return nil, newValidationError(fmt.Sprintf("необходимо загрузить от 1 до %d изображений", model.MaxImages))
	}
	tags, err := model.ParseTags(p.TagsJSON)
	if err != nil {
		return nil, newValidationError("некорректный формат тегов")
	}

	refs, err := s.storeImages(ctx, p.Images)
	if err != nil {
		return nil, err
	}

	car := &model.Car{
		OwnerID:     id.OwnerID,
		Title:       strings.TrimSpace(p.Title),
		Description: p.Description,
		Images:      refs,
		Tags:        tags,
	}
	if err := s.repo.Insert(ctx, car); err != nil {
		s.cleaner.Release(refs...)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	carsCreatedTotal.Inc()
	s.logger.Info("Объявление создано",
		slog.String("car_id", car.ID),
		slog.String("owner_id", car.OwnerID),
		slog.Int("images", len(car.Images)),
	)
	return car, nil
}

// List возвращает объявления владельца, новые первыми.
// Непустой search применяет полнотекстовый поиск.
func (s *CarService) List(ctx context.Context, id model.Identity, search string) ([]*model.Car, error) {
	if id.OwnerID == "" {
		return nil, ErrUnauthenticated
	}
	cars, err := s.repo.List(ctx, id.OwnerID, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return cars, nil
}

// Get возвращает объявление владельца.
func (s *CarService) Get(ctx context.Context, id model.Identity, carID string) (*model.Car, error) {
	if id.OwnerID == "" {
		return nil, ErrUnauthenticated
	}
	car, err := s.repo.GetByID(ctx, carID, id.OwnerID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return car, nil
}

// Update применяет переданные поля. Новые изображения заменяют текущие
// целиком, заменённые изображения освобождаются после успешной записи.
func (s *CarService) Update(ctx context.Context, id model.Identity, carID string, p UpdateCarParams) (*model.Car, error) {
	if id.OwnerID == "" {
		return nil, ErrUnauthenticated
	}
	if len(p.Images) > model.MaxImages {
		return nil, newValidationError(fmt.Sprintf("можно загрузить не более %d изображений", model.MaxImages))
	}

	var patch repository.CarPatch
	if p.Title != "" {
		title := strings.TrimSpace(p.Title)
		patch.Title = &title
	}
	if p.Description != "" {
		desc := p.Description
		patch.Description = &desc
	}
	if p.TagsJSON != "" {
		tags, err := model.ParseTags(p.TagsJSON)
		if err != nil {
			return nil, newValidationError("некорректный формат тегов")
		}
		patch.Tags = &tags
	}

	existing, err := s.repo.GetByID(ctx, carID, id.OwnerID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	var newRefs []string
	if len(p.Images) > 0 {
		newRefs, err = s.storeImages(ctx, p.Images)
		if err != nil {
			return nil, err
		}
		patch.Images = &newRefs
	}

	updated, err := s.repo.Update(ctx, carID, id.OwnerID, patch)
	if err != nil {
		s.cleaner.Release(newRefs...)
		return nil, mapRepoError(err)
	}

	if newRefs != nil {
		s.cleaner.Release(unreferenced(existing.Images, updated.Images)...)
	}

	s.logger.Info("Объявление обновлено",
		slog.String("car_id", updated.ID),
		slog.String("owner_id", updated.OwnerID),
		slog.Bool("images_replaced", newRefs != nil),
	)
	return updated, nil
}

// Delete удаляет объявление владельца и освобождает его изображения.
func (s *CarService) Delete(ctx context.Context, id model.Identity, carID string) error {
	if id.OwnerID == "" {
		return ErrUnauthenticated
	}
	deleted, err := s.repo.Delete(ctx, carID, id.OwnerID)
	if err != nil {
		return mapRepoError(err)
	}

	s.cleaner.Release(deleted.Images...)

	carsDeletedTotal.Inc()
	s.logger.Info("Объявление удалено",
		slog.String("car_id", deleted.ID),
		slog.String("owner_id", deleted.OwnerID),
	)
	return nil
}

// Search ищет подстроку keyword (без учёта регистра) в заголовке,
// описании и тегах carType, company, dealer.
func (s *CarService) Search(ctx context.Context, id model.Identity, keyword string) ([]*model.Car, error) {
	if id.OwnerID == "" {
		return nil, ErrUnauthenticated
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, newValidationError("ключевое слово обязательно")
	}
	cars, err := s.repo.Search(ctx, id.OwnerID, keyword)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return cars, nil
}

// Stats возвращает общее количество объявлений владельца
// и распределение по company и carType.
func (s *CarService) Stats(ctx context.Context, id model.Identity) (*model.CarStats, error) {
	if id.OwnerID == "" {
		return nil, ErrUnauthenticated
	}

	total, err := s.repo.Count(ctx, id.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	byCompany, err := s.repo.CountByGroup(ctx, id.OwnerID, repository.GroupByCompany)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	byType, err := s.repo.CountByGroup(ctx, id.OwnerID, repository.GroupByCarType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &model.CarStats{
		Total:     total,
		ByCompany: byCompany,
		ByType:    byType,
	}, nil
}

// storeImages сохраняет изображения по порядку. При ошибке уже
// сохранённые изображения освобождаются.
func (s *CarService) storeImages(ctx context.Context, images []ImageUpload) ([]string, error) {
	refs := make([]string, 0, len(images))
	for _, img := range images {
		ref, err := s.storeImage(ctx, img)
		if err != nil {
			s.cleaner.Release(refs...)
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		refs = append(refs, ref)
	}
	blobsStoredTotal.Add(float64(len(refs)))
	return refs, nil
}

func (s *CarService) storeImage(ctx context.Context, img ImageUpload) (string, error) {
	rc, err := img.Open()
	if err != nil {
		return "", fmt.Errorf("ошибка открытия файла %s: %w", img.Filename, err)
	}
	defer rc.Close()

	return s.store.Store(ctx, rc, img.Size, img.Filename)
}

// mapRepoError преобразует ошибки репозитория в ошибки сервиса.
func mapRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// unreferenced возвращает ссылки из old, отсутствующие в current.
func unreferenced(old, current []string) []string {
	keep := make(map[string]struct{}, len(current))
	for _, ref := range current {
		keep[ref] = struct{}{}
	}
	var result []string
	for _, ref := range old {
		if _, ok := keep[ref]; !ok {
			result = append(result, ref)
		}
	}
	return result
}
