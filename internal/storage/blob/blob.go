// Пакет blob — контракт хранилища изображений объявлений и формат ссылок.
// Ссылка на изображение имеет вид /uploads/<name>, где name — UUIDv4
// с расширением исходного файла.
package blob

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RefPrefix — префикс ссылки на изображение.
const RefPrefix = "/uploads/"

// Ошибки хранилища.
var (
	// ErrNotFound — объект отсутствует в хранилище.
	ErrNotFound = errors.New("объект не найден")
	// ErrInvalidRef — ссылка не соответствует формату /uploads/<name>.
	ErrInvalidRef = errors.New("некорректная ссылка на объект")
)

// Info — метаданные сохранённого объекта.
type Info struct {
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Store — хранилище изображений.
type Store interface {
	// Store сохраняет данные под новым уникальным именем и возвращает ссылку.
	Store(ctx context.Context, r io.Reader, size int64, originalName string) (string, error)
	// Open открывает объект по ссылке. Вызывающий код обязан закрыть reader.
	Open(ctx context.Context, ref string) (io.ReadSeekCloser, Info, error)
	// Delete удаляет объект. Отсутствующий объект ошибкой не считается.
	Delete(ctx context.Context, ref string) error
}

// NewName генерирует имя объекта: UUIDv4 + расширение исходного файла
// в нижнем регистре.
func NewName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(path.Base(strings.ReplaceAll(originalName, "\\", "/"))))
	if !validExt(ext) {
		ext = ""
	}
	return uuid.New().String() + ext
}

// Ref возвращает ссылку для имени объекта.
func Ref(name string) string {
	return RefPrefix + name
}

// NameFromRef извлекает имя объекта из ссылки.
// Допускается только один сегмент пути после /uploads/.
func NameFromRef(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, RefPrefix)
	if !ok {
		return "", ErrInvalidRef
	}
	if err := ValidName(name); err != nil {
		return "", err
	}
	return name, nil
}

// ValidName проверяет имя объекта: непустое, без разделителей пути,
// не "." и не "..".
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\") || strings.ContainsRune(name, 0) {
		return ErrInvalidRef
	}
	return nil
}

// ContentTypeByName определяет MIME-тип по расширению имени.
func ContentTypeByName(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// validExt — расширение из букв и цифр длиной до 10 символов (включая точку).
func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 10 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
