// Пакет errors — запись ошибок API в едином JSON-формате.
// Одиночная ошибка: {"error": "..."}; список нарушений валидации:
// {"errors": ["...", ...]}.
package errors

import (
	"encoding/json"
	"net/http"
)

// Сообщения для ответов, не раскрывающих внутренние детали.
const (
	MsgInternal = "Внутренняя ошибка сервера"
	MsgNotFound = "Объявление не найдено"
)

type errorBody struct {
	Error string `json:"error"`
}

type validationBody struct {
	Errors []string `json:"errors"`
}

// WriteError записывает ответ {"error": message} с указанным статусом.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorBody{Error: message})
}

// WriteValidation записывает 400 со списком нарушений.
func WriteValidation(w http.ResponseWriter, violations []string) {
	if violations == nil {
		violations = []string{}
	}
	writeJSON(w, http.StatusBadRequest, validationBody{Errors: violations})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// BadRequest — 400 некорректный запрос.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// TooLarge — 413 превышен размер тела запроса.
func TooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, MsgInternal)
}
