// Пакет validation — проверка входных данных запросов.
// Функции не прерываются на первой ошибке: возвращаются все нарушения,
// пустой список означает корректный ввод.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Atishay264/Car-Management-App/internal/domain/model"
)

// MaxImages — максимальное количество изображений объявления.
const MaxImages = model.MaxImages

// Минимальные длины полей (после обрезки пробелов).
const (
	minTitleLen       = 3
	minDescriptionLen = 10
	minPasswordLen    = 6
	minNameLen        = 2
)

var (
	idPattern    = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Image — метаданные загруженного изображения.
type Image struct {
	Filename    string
	Size        int64
	ContentType string
}

// CarInput — сырые поля запроса создания или обновления объявления.
type CarInput struct {
	Title       string
	Description string
	// Tags — JSON-объект тегов в виде строки
	Tags   string
	Images []Image
}

// UserInput — поля запросов регистрации и входа.
type UserInput struct {
	Email    string
	Password string
	Name     string
}

// ValidID проверяет формат идентификатора объявления (24 hex-символа).
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ValidateCarCreate проверяет запрос создания: все поля обязательны,
// изображений от 1 до MaxImages.
func ValidateCarCreate(in CarInput, maxImageSize int64) []string {
	var errs []string

	errs = append(errs, checkTitle(in.Title)...)
	errs = append(errs, checkDescription(in.Description)...)
	errs = append(errs, checkTags(in.Tags)...)

	if n := len(in.Images); n < 1 || n > MaxImages {
		errs = append(errs, fmt.Sprintf("необходимо загрузить от 1 до %d изображений", MaxImages))
	}
	errs = append(errs, checkImages(in.Images, maxImageSize)...)

	return errs
}

// ValidateCarUpdate проверяет запрос обновления: проверяются только
// переданные поля. 0 изображений означает сохранение текущих.
func ValidateCarUpdate(in CarInput, maxImageSize int64) []string {
	var errs []string

	if in.Title != "" {
		errs = append(errs, checkTitle(in.Title)...)
	}
	if in.Description != "" {
		errs = append(errs, checkDescription(in.Description)...)
	}
	if in.Tags != "" {
		errs = append(errs, checkTags(in.Tags)...)
	}

	if len(in.Images) > MaxImages {
		errs = append(errs, fmt.Sprintf("можно загрузить не более %d изображений", MaxImages))
	}
	errs = append(errs, checkImages(in.Images, maxImageSize)...)

	return errs
}

// ValidateUserInput проверяет данные регистрации (signup == true) или входа.
func ValidateUserInput(in UserInput, signup bool) []string {
	var errs []string

	if signup && utf8.RuneCountInString(strings.TrimSpace(in.Name)) < minNameLen {
		errs = append(errs, fmt.Sprintf("имя обязательно и должно содержать не менее %d символов", minNameLen))
	}
	if !emailPattern.MatchString(in.Email) {
		errs = append(errs, "требуется корректный email")
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLen {
		errs = append(errs, fmt.Sprintf("пароль должен содержать не менее %d символов", minPasswordLen))
	}

	return errs
}

func checkTitle(title string) []string {
	if utf8.RuneCountInString(strings.TrimSpace(title)) < minTitleLen {
		return []string{fmt.Sprintf("заголовок обязателен и должен содержать не менее %d символов", minTitleLen)}
	}
	return nil
}

func checkDescription(desc string) []string {
	if utf8.RuneCountInString(strings.TrimSpace(desc)) < minDescriptionLen {
		return []string{fmt.Sprintf("описание обязательно и должно содержать не менее %d символов", minDescriptionLen)}
	}
	return nil
}

// checkTags проверяет формат тегов и наличие carType и company.
func checkTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"теги обязательны"}
	}
	tags, err := model.ParseTags(raw)
	if err != nil {
		return []string{"некорректный формат тегов"}
	}

	var errs []string
	if strings.TrimSpace(tags[model.TagCarType]) == "" {
		errs = append(errs, "тег carType обязателен")
	}
	if strings.TrimSpace(tags[model.TagCompany]) == "" {
		errs = append(errs, "тег company обязателен")
	}
	return errs
}

// checkImages проверяет тип и размер каждого изображения.
func checkImages(images []Image, maxSize int64) []string {
	var errs []string
	for _, img := range images {
		if !strings.HasPrefix(strings.ToLower(img.ContentType), "image/") {
			errs = append(errs, fmt.Sprintf("файл %q не является изображением", img.Filename))
		}
		if maxSize > 0 && img.Size > maxSize {
			errs = append(errs, fmt.Sprintf("файл %q превышает допустимый размер %d байт", img.Filename, maxSize))
		}
	}
	return errs
}
