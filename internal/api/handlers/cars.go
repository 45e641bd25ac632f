// cars.go — обработчики CRUD, поиска и статистики объявлений.
// Создание и обновление принимают multipart/form-data: поля title,
// description, tags (JSON-объект) и файлы images.
package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Atishay264/Car-Management-App/internal/api/errors"
	"github.com/Atishay264/Car-Management-App/internal/api/validation"
	"github.com/Atishay264/Car-Management-App/internal/domain/model"
	"github.com/Atishay264/Car-Management-App/internal/service"
	"github.com/Atishay264/Car-Management-App/internal/storage/blob"
)

// multipartMemory — объём multipart-данных в памяти; остальное во временных файлах.
const multipartMemory = 8 << 20

const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldTags        = "tags"
	fieldImages      = "images"
)

// ListCars — GET /cars. Необязательный параметр search.
func (h *APIHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	cars, err := h.cars.List(r.Context(), id, r.URL.Query().Get("search"))
	if err != nil {
		h.handleServiceError(w, r, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilCars(cars))
}

// SearchCars — GET /cars/search?keyword=...
func (h *APIHandler) SearchCars(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	cars, err := h.cars.Search(r.Context(), id, r.URL.Query().Get("keyword"))
	if err != nil {
		h.handleServiceError(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilCars(cars))
}

// CarStats — GET /cars/stats.
func (h *APIHandler) CarStats(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	stats, err := h.cars.Stats(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetCar — GET /cars/{id}.
func (h *APIHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	carID, ok := carIDParam(w, r)
	if !ok {
		return
	}

	car, err := h.cars.Get(r.Context(), id, carID)
	if err != nil {
		h.handleServiceError(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

// CreateCar — POST /cars. Ответ 201 с созданным объявлением.
func (h *APIHandler) CreateCar(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	form, ok := h.parseCarForm(w, r)
	if !ok {
		return
	}
	defer form.cleanup()

	if violations := validation.ValidateCarCreate(form.input, h.limits.MaxImageSize); len(violations) > 0 {
		apierrors.WriteValidation(w, violations)
		return
	}

	car, err := h.cars.Create(r.Context(), id, service.CreateCarParams{
		Title:       form.input.Title,
		Description: form.input.Description,
		TagsJSON:    form.input.Tags,
		Images:      form.uploads,
	})
	if err != nil {
		h.handleServiceError(w, r, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

// UpdateCar — PUT /cars/{id}. Изменяются только переданные поля;
// новые изображения заменяют прежние целиком.
func (h *APIHandler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	carID, ok := carIDParam(w, r)
	if !ok {
		return
	}

	form, ok := h.parseCarForm(w, r)
	if !ok {
		return
	}
	defer form.cleanup()

	if violations := validation.ValidateCarUpdate(form.input, h.limits.MaxImageSize); len(violations) > 0 {
		apierrors.WriteValidation(w, violations)
		return
	}

	car, err := h.cars.Update(r.Context(), id, carID, service.UpdateCarParams{
		Title:       form.input.Title,
		Description: form.input.Description,
		TagsJSON:    form.input.Tags,
		Images:      form.uploads,
	})
	if err != nil {
		h.handleServiceError(w, r, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

// DeleteCar — DELETE /cars/{id}.
func (h *APIHandler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	carID, ok := carIDParam(w, r)
	if !ok {
		return
	}

	if err := h.cars.Delete(r.Context(), id, carID); err != nil {
		h.handleServiceError(w, r, "delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Объявление удалено"})
}

// carIDParam извлекает и проверяет {id}; при ошибке отвечает 400.
func carIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	carID := chi.URLParam(r, "id")
	if !validation.ValidID(carID) {
		apierrors.BadRequest(w, "Некорректный идентификатор объявления")
		return "", false
	}
	return strings.ToLower(carID), true
}

// carForm — разобранный multipart-запрос объявления.
type carForm struct {
	input   validation.CarInput
	uploads []service.ImageUpload
	form    *multipart.Form
}

func (f *carForm) cleanup() {
	if f.form != nil {
		_ = f.form.RemoveAll()
	}
}

// parseCarForm разбирает multipart-запрос с ограничением размера тела.
// Превышение лимита — 413, не-multipart тело — 400.
func (h *APIHandler) parseCarForm(w http.ResponseWriter, r *http.Request) (*carForm, bool) {
	if h.limits.MaxRequestSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxRequestSize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.TooLarge(w, "Превышен допустимый размер запроса")
			return nil, false
		}
		apierrors.BadRequest(w, "Ожидается multipart/form-data")
		return nil, false
	}

	f := &carForm{
		form: r.MultipartForm,
		input: validation.CarInput{
			Title:       r.PostFormValue(fieldTitle),
			Description: r.PostFormValue(fieldDescription),
			Tags:        r.PostFormValue(fieldTags),
		},
	}

	for _, fh := range r.MultipartForm.File[fieldImages] {
		f.input.Images = append(f.input.Images, validation.Image{
			Filename:    fh.Filename,
			Size:        fh.Size,
			ContentType: partContentType(fh),
		})
		f.uploads = append(f.uploads, service.ImageUpload{
			Filename: fh.Filename,
			Size:     fh.Size,
			Open:     openPart(fh),
		})
	}

	return f, true
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

// partContentType — Content-Type части; для пустого или
// application/octet-stream определяется по расширению имени файла.
func partContentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		return blob.ContentTypeByName(fh.Filename)
	}
	return ct
}

func nonNilCars(cars []*model.Car) []*model.Car {
	if cars == nil {
		return []*model.Car{}
	}
	return cars
}
