// uploads.go — публичная раздача сохранённых изображений по ссылке
// /uploads/{name}. Поддерживает Range и условные запросы.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Atishay264/Car-Management-App/internal/api/errors"
	"github.com/Atishay264/Car-Management-App/internal/storage/blob"
)

// uploadCacheControl — имена объектов уникальны, содержимое не меняется.
const uploadCacheControl = "public, max-age=31536000, immutable"

// ServeUpload — GET /uploads/{name}.
func (h *APIHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := blob.ValidName(name); err != nil {
		apierrors.NotFound(w, "Файл не найден")
		return
	}

	rc, info, err := h.blobs.Open(r.Context(), blob.Ref(name))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidRef) {
			apierrors.NotFound(w, "Файл не найден")
			return
		}
		h.logger.ErrorContext(r.Context(), "Ошибка чтения изображения",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Cache-Control", uploadCacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, info.Name, info.ModTime, rc)
}
