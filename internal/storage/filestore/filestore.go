// Пакет filestore — локальный backend хранилища изображений.
// Объекты хранятся плоско в корневой директории (CM_UPLOAD_DIR)
// под именами, сгенерированными blob.NewName.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Atishay264/Car-Management-App/internal/storage/blob"
)

// FileStore — хранилище изображений на локальном диске.
type FileStore struct {
	// dir — корневая директория хранения (CM_UPLOAD_DIR)
	dir string
}

var _ blob.Store = (*FileStore)(nil)

// New создаёт новый FileStore. Создаёт корневую директорию,
// если она не существует. Повторный вызов для той же директории безопасен.
func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию загрузок %s: %w", dir, err)
	}

	return &FileStore{dir: dir}, nil
}

// Store записывает данные из r на диск под новым уникальным именем.
// size не используется: локальная запись потоковая.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (fs *FileStore) Store(ctx context.Context, r io.Reader, _ int64, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := blob.NewName(originalName)
	fullPath := filepath.Join(fs.dir, name)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return blob.Ref(name), nil
}

// Open открывает файл по ссылке. Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(_ context.Context, ref string) (io.ReadSeekCloser, blob.Info, error) {
	name, err := blob.NameFromRef(ref)
	if err != nil {
		return nil, blob.Info{}, err
	}

	f, err := os.Open(filepath.Join(fs.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, blob.Info{}, blob.ErrNotFound
		}
		return nil, blob.Info{}, fmt.Errorf("ошибка открытия файла %s: %w", name, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, blob.Info{}, fmt.Errorf("ошибка получения информации о файле %s: %w", name, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, blob.Info{}, blob.ErrNotFound
	}

	return f, blob.Info{
		Name:        name,
		Size:        st.Size(),
		ModTime:     st.ModTime(),
		ContentType: blob.ContentTypeByName(name),
	}, nil
}

// Delete удаляет файл с диска.
// Возвращает nil, если файл уже не существует.
func (fs *FileStore) Delete(_ context.Context, ref string) error {
	name, err := blob.NameFromRef(ref)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(fs.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления файла %s: %w", name, err)
	}
	return nil
}

// Dir возвращает путь к корневой директории.
func (fs *FileStore) Dir() string {
	return fs.dir
}
