package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Atishay264/Car-Management-App/internal/domain/model"
)

// carColumns — список столбцов таблицы cars для SELECT/RETURNING.
const carColumns = `id, owner_id, title, description, images, tags, created_at, updated_at`

// GroupField — поле группировки для статистики (whitelist).
type GroupField int

const (
	// GroupByCompany — группировка по tags.company.
	GroupByCompany GroupField = iota
	// GroupByCarType — группировка по tags.carType.
	GroupByCarType
)

// expr возвращает SQL-выражение поля группировки.
func (f GroupField) expr() (string, error) {
	switch f {
	case GroupByCompany:
		return "tags->>'" + model.TagCompany + "'", nil
	case GroupByCarType:
		return "tags->>'" + model.TagCarType + "'", nil
	default:
		return "", fmt.Errorf("недопустимое поле группировки: %d", f)
	}
}

// CarPatch — частичное обновление объявления.
// nil = поле не изменяется.
type CarPatch struct {
	Title       *string
	Description *string
	Tags        *model.Tags
	// Images — новый список изображений, заменяет текущий целиком
	Images *[]string
}

// CarRepository — интерфейс доступа к объявлениям.
// Все операции ограничены владельцем.
type CarRepository interface {
	// Insert сохраняет новое объявление. Назначает ID, CreatedAt, UpdatedAt.
	Insert(ctx context.Context, car *model.Car) error
	// List возвращает объявления владельца, новые первыми.
	// Непустой search ограничивает выборку полнотекстовым совпадением.
	List(ctx context.Context, ownerID, search string) ([]*model.Car, error)
	// Search — регистронезависимый поиск подстроки по заголовку, описанию
	// и тегам carType, company, dealer.
	Search(ctx context.Context, ownerID, keyword string) ([]*model.Car, error)
	// GetByID возвращает объявление владельца или ErrNotFound.
	GetByID(ctx context.Context, id, ownerID string) (*model.Car, error)
	// Update применяет непустые поля patch и возвращает обновлённое объявление.
	Update(ctx context.Context, id, ownerID string, patch CarPatch) (*model.Car, error)
	// Delete удаляет объявление и возвращает его последнее состояние.
	Delete(ctx context.Context, id, ownerID string) (*model.Car, error)
	// Count возвращает количество объявлений владельца.
	Count(ctx context.Context, ownerID string) (int, error)
	// CountByGroup возвращает количество объявлений по значениям тега.
	CountByGroup(ctx context.Context, ownerID string, field GroupField) ([]model.GroupCount, error)
}

// carRepo — реализация CarRepository через pgx.
type carRepo struct {
	db DBTX
}

// NewCarRepository создаёт репозиторий объявлений.
func NewCarRepository(db DBTX) CarRepository {
	return &carRepo{db: db}
}

// Insert сохраняет объявление. ID генерируется здесь, временные метки — в БД.
func (r *carRepo) Insert(ctx context.Context, car *model.Car) error {
	tags, err := json.Marshal(nonNilTags(car.Tags))
	if err != nil {
		return fmt.Errorf("ошибка сериализации тегов: %w", err)
	}

	id := model.NewCarID()
	query := `
		INSERT INTO cars (id, owner_id, title, description, images, tags)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		id, car.OwnerID, car.Title, car.Description, car.Images, tags,
	).Scan(&car.CreatedAt, &car.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания объявления: %w", err)
	}
	car.ID = id
	return nil
}

// List возвращает объявления владельца по убыванию created_at.
func (r *carRepo) List(ctx context.Context, ownerID, search string) ([]*model.Car, error) {
	where, args := buildListWhere(ownerID, search)
	query := fmt.Sprintf(`SELECT %s FROM cars %s ORDER BY created_at DESC, id DESC`, carColumns, where)

	return r.queryCars(ctx, query, args...)
}

// Search выполняет поиск подстроки (ILIKE) по пяти полям.
func (r *carRepo) Search(ctx context.Context, ownerID, keyword string) ([]*model.Car, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM cars
		WHERE owner_id = $1 AND (
			title ILIKE $2
			OR description ILIKE $2
			OR tags->>'carType' ILIKE $2
			OR tags->>'company' ILIKE $2
			OR tags->>'dealer' ILIKE $2
		)
		ORDER BY created_at DESC, id DESC`, carColumns)

	return r.queryCars(ctx, query, ownerID, likePattern(keyword))
}

// GetByID возвращает объявление владельца или ErrNotFound.
func (r *carRepo) GetByID(ctx context.Context, id, ownerID string) (*model.Car, error) {
	query := fmt.Sprintf(`SELECT %s FROM cars WHERE id = $1 AND owner_id = $2`, carColumns)

	car, err := scanCar(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения объявления: %w", err)
	}
	return car, nil
}

// Update обновляет только заданные поля (COALESCE) и updated_at.
func (r *carRepo) Update(ctx context.Context, id, ownerID string, patch CarPatch) (*model.Car, error) {
	var tags, images any
	if patch.Tags != nil {
		raw, err := json.Marshal(nonNilTags(*patch.Tags))
		if err != nil {
			return nil, fmt.Errorf("ошибка сериализации тегов: %w", err)
		}
		tags = string(raw)
	}
	if patch.Images != nil {
		images = *patch.Images
	}

	query := fmt.Sprintf(`
		UPDATE cars SET
			title       = COALESCE($3::text, title),
			description = COALESCE($4::text, description),
			tags        = COALESCE($5::jsonb, tags),
			images      = COALESCE($6::text[], images),
			updated_at  = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING %s`, carColumns)

	car, err := scanCar(r.db.QueryRow(ctx, query,
		id, ownerID, patch.Title, patch.Description, tags, images,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления объявления: %w", err)
	}
	return car, nil
}

// Delete удаляет объявление владельца и возвращает удалённую запись.
func (r *carRepo) Delete(ctx context.Context, id, ownerID string) (*model.Car, error) {
	query := fmt.Sprintf(`DELETE FROM cars WHERE id = $1 AND owner_id = $2 RETURNING %s`, carColumns)

	car, err := scanCar(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка удаления объявления: %w", err)
	}
	return car, nil
}

// Count возвращает количество объявлений владельца.
func (r *carRepo) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cars WHERE owner_id = $1`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта объявлений: %w", err)
	}
	return n, nil
}

// CountByGroup группирует объявления владельца по значению тега.
// Группа объявлений без тега возвращается с Value == nil.
func (r *carRepo) CountByGroup(ctx context.Context, ownerID string, field GroupField) ([]model.GroupCount, error) {
	expr, err := field.expr()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %[1]s AS value, COUNT(*) AS cnt
		FROM cars
		WHERE owner_id = $1
		GROUP BY %[1]s
		ORDER BY cnt DESC, value`, expr)

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка группировки объявлений: %w", err)
	}
	defer rows.Close()

	result := []model.GroupCount{}
	for rows.Next() {
		var gc model.GroupCount
		if err := rows.Scan(&gc.Value, &gc.Count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования группы: %w", err)
		}
		result = append(result, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// queryCars выполняет SELECT и сканирует список объявлений.
func (r *carRepo) queryCars(ctx context.Context, query string, args ...any) ([]*model.Car, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки объявлений: %w", err)
	}
	defer rows.Close()

	result := []*model.Car{}
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования объявления: %w", err)
		}
		result = append(result, car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// scanCar сканирует строку в порядке carColumns.
func scanCar(row pgx.Row) (*model.Car, error) {
	c := &model.Car{}
	var tags []byte
	if err := row.Scan(
		&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.Images, &tags,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Tags = model.Tags{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &c.Tags); err != nil {
			return nil, fmt.Errorf("некорректные теги объявления %s: %w", c.ID, err)
		}
	}
	return c, nil
}

// buildListWhere строит WHERE для List. Слова поискового запроса
// объединяются через OR, как в текстовом поиске документных БД.
func buildListWhere(ownerID, search string) (whereClause string, args []any) {
	args = []any{ownerID}
	whereClause = "WHERE owner_id = $1"

	words := strings.Fields(search)
	if len(words) == 0 {
		return whereClause, args
	}

	whereClause += " AND search_vector @@ websearch_to_tsquery('english', $2)"
	args = append(args, strings.Join(words, " or "))
	return whereClause, args
}

// likePattern экранирует спецсимволы LIKE и оборачивает строку в %...%.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func nonNilTags(t model.Tags) model.Tags {
	if t == nil {
		return model.Tags{}
	}
	return t
}
