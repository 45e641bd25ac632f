// Пакет s3store — backend хранилища изображений на S3-совместимом
// объектном хранилище (MinIO, AWS S3) через minio-go.
package s3store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Atishay264/Car-Management-App/internal/storage/blob"
)

// Options — параметры подключения к S3.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// Prefix — префикс ключей объектов (опционально)
	Prefix string
	Region string
	UseSSL bool
}

// Store — хранилище изображений в бакете S3.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ blob.Store = (*Store)(nil)

// New создаёт клиент minio и проверяет наличие бакета, создавая его
// при отсутствии. Повторный вызов для существующего бакета безопасен.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания S3-клиента: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки бакета %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			// Бакет мог создать параллельно запущенный экземпляр
			if code := minio.ToErrorResponse(err).Code; code != "BucketAlreadyOwnedByYou" && code != "BucketAlreadyExists" {
				return nil, fmt.Errorf("ошибка создания бакета %s: %w", opts.Bucket, err)
			}
		}
		logger.Info("S3-бакет создан", slog.String("bucket", opts.Bucket))
	}

	return NewWithClient(client, opts.Bucket, opts.Prefix), nil
}

// NewWithClient создаёт Store поверх готового клиента без проверки бакета.
func NewWithClient(client *minio.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Store загружает объект под новым уникальным именем.
// size == -1 допускается (потоковая multipart-загрузка).
func (s *Store) Store(ctx context.Context, r io.Reader, size int64, originalName string) (string, error) {
	name := blob.NewName(originalName)

	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), r, size, minio.PutObjectOptions{
		ContentType: blob.ContentTypeByName(name),
	})
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки объекта %s: %w", name, err)
	}

	return blob.Ref(name), nil
}

// Open возвращает объект для чтения. *minio.Object поддерживает Seek,
// поэтому результат можно отдавать через http.ServeContent.
func (s *Store) Open(ctx context.Context, ref string) (io.ReadSeekCloser, blob.Info, error) {
	name, err := blob.NameFromRef(ref)
	if err != nil {
		return nil, blob.Info{}, err
	}
	key := s.key(name)

	st, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, blob.Info{}, blob.ErrNotFound
		}
		return nil, blob.Info{}, fmt.Errorf("ошибка получения информации об объекте %s: %w", name, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, blob.Info{}, fmt.Errorf("ошибка чтения объекта %s: %w", name, err)
	}

	ct := st.ContentType
	if ct == "" {
		ct = blob.ContentTypeByName(name)
	}

	return obj, blob.Info{
		Name:        name,
		Size:        st.Size,
		ModTime:     st.LastModified,
		ContentType: ct,
	}, nil
}

// Delete удаляет объект. Отсутствующий объект ошибкой не считается.
func (s *Store) Delete(ctx context.Context, ref string) error {
	name, err := blob.NameFromRef(ref)
	if err != nil {
		return err
	}

	err = s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("ошибка удаления объекта %s: %w", name, err)
	}
	return nil
}

// isNotFound определяет ответ S3 об отсутствии объекта.
func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
