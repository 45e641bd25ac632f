// Пакет handlers — HTTP-обработчики API объявлений, раздачи изображений
// и health endpoints. Бизнес-логика делегируется в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/Atishay264/Car-Management-App/internal/api/errors"
	"github.com/Atishay264/Car-Management-App/internal/api/middleware"
	"github.com/Atishay264/Car-Management-App/internal/domain/model"
	"github.com/Atishay264/Car-Management-App/internal/service"
	"github.com/Atishay264/Car-Management-App/internal/storage/blob"
)

// CarService — операции с объявлениями, используемые обработчиками.
type CarService interface {
	Create(ctx context.Context, id model.Identity, p service.CreateCarParams) (*model.Car, error)
	List(ctx context.Context, id model.Identity, search string) ([]*model.Car, error)
	Get(ctx context.Context, id model.Identity, carID string) (*model.Car, error)
	Update(ctx context.Context, id model.Identity, carID string, p service.UpdateCarParams) (*model.Car, error)
	Delete(ctx context.Context, id model.Identity, carID string) error
	Search(ctx context.Context, id model.Identity, keyword string) ([]*model.Car, error)
	Stats(ctx context.Context, id model.Identity) (*model.CarStats, error)
}

// Limits — ограничения размеров входящих запросов.
type Limits struct {
	// MaxImageSize — максимальный размер одного изображения
	MaxImageSize int64
	// MaxRequestSize — максимальный размер тела multipart-запроса
	MaxRequestSize int64
}

// APIHandler — основной обработчик API.
type APIHandler struct {
	health *HealthHandler
	cars   CarService
	blobs  blob.Store
	limits Limits
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	cars CarService,
	blobs blob.Store,
	limits Limits,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health: health,
		cars:   cars,
		blobs:  blobs,
		limits: limits,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// identity извлекает владельца из контекста; при отсутствии отвечает 401.
func identity(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
	}
	return id, ok
}

// handleServiceError преобразует ошибку сервисного слоя в HTTP-ответ.
// Детали внутренних ошибок пишутся только в лог.
func (h *APIHandler) handleServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		apierrors.WriteValidation(w, verr.Violations)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, apierrors.MsgNotFound)
	case errors.Is(err, service.ErrUnauthenticated):
		apierrors.Unauthorized(w, "Требуется аутентификация")
	default:
		h.logger.ErrorContext(r.Context(), "Ошибка обработки запроса",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w)
	}
}
