// cleanup.go — фоновое освобождение изображений, на которые больше
// не ссылается ни одно объявление.
//
// Удаление выполняется best-effort: ошибки логируются и учитываются
// в метрике cm_blob_release_failures_total, но не возвращаются вызывающему.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/Atishay264/Car-Management-App/internal/storage/blob"
)

var (
	blobsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_blobs_released_total",
		Help: "Количество удалённых изображений",
	})
	blobReleaseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_blob_release_failures_total",
		Help: "Количество ошибок удаления изображений",
	})
)

// releaseTimeout — таймаут удаления одного объекта.
const releaseTimeout = 30 * time.Second

// BlobCleaner — асинхронное удаление изображений с ограничением параллелизма.
type BlobCleaner struct {
	store   blob.Store
	logger  *slog.Logger
	pending sync.WaitGroup
	workers errgroup.Group
}

// NewBlobCleaner создаёт BlobCleaner. concurrency — максимальное число
// одновременных удалений (минимум 1).
func NewBlobCleaner(store blob.Store, concurrency int, logger *slog.Logger) *BlobCleaner {
	if concurrency < 1 {
		concurrency = 1
	}
	c := &BlobCleaner{
		store:  store,
		logger: logger.With(slog.String("component", "blob_cleaner")),
	}
	c.workers.SetLimit(concurrency)
	return c
}

// Release ставит ссылки в очередь на удаление и сразу возвращает управление.
func (c *BlobCleaner) Release(refs ...string) {
	if len(refs) == 0 {
		return
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		for _, ref := range refs {
			c.workers.Go(func() error {
				c.release(ref)
				return nil
			})
		}
	}()
}

// Wait дожидается завершения всех поставленных удалений.
func (c *BlobCleaner) Wait() {
	c.pending.Wait()
	_ = c.workers.Wait()
}

func (c *BlobCleaner) release(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := c.store.Delete(ctx, ref); err != nil {
		blobReleaseFailuresTotal.Inc()
		c.logger.Warn("Не удалось удалить изображение",
			slog.String("ref", ref),
			slog.String("error", err.Error()),
		)
		return
	}
	blobsReleasedTotal.Inc()
	c.logger.Debug("Изображение удалено", slog.String("ref", ref))
}
