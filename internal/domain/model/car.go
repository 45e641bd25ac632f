// Пакет model — доменные модели Car Module.
// Car — маппинг таблицы cars.
package model

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Ключи тегов объявления.
const (
	TagCarType = "carType"
	TagCompany = "company"
	TagDealer  = "dealer"
)

// MaxImages — максимальное количество изображений объявления.
const MaxImages = 10

// ErrInvalidTags — теги не являются JSON-объектом со строковыми значениями.
var ErrInvalidTags = errors.New("некорректный формат тегов")

// Tags — теги объявления: carType, company, dealer и произвольные
// дополнительные ключи. Все значения — строки.
type Tags map[string]string

// Car — объявление о продаже автомобиля.
type Car struct {
	// ID — 24-символьный hex-идентификатор (назначается при вставке)
	ID string `json:"id"`
	// Title — заголовок (без ведущих и завершающих пробелов)
	Title string `json:"title"`
	// Description — описание
	Description string `json:"description"`
	// Images — упорядоченный список ссылок на изображения (/uploads/<name>), 1..10
	Images []string `json:"images"`
	// Tags — теги объявления
	Tags Tags `json:"tags"`
	// OwnerID — идентификатор владельца (sub из JWT), не изменяется
	OwnerID string `json:"ownerId"`
	// CreatedAt — время создания записи
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity — аутентифицированный владелец запроса.
type Identity struct {
	// OwnerID — sub из JWT
	OwnerID string
}

// GroupCount — количество объявлений в группе по значению тега.
// Value == nil, если у объявлений группы тег отсутствует.
type GroupCount struct {
	Value *string `json:"_id"`
	Count int     `json:"count"`
}

// CarStats — статистика объявлений владельца.
type CarStats struct {
	Total     int          `json:"totalCars"`
	ByCompany []GroupCount `json:"carsByCompany"`
	ByType    []GroupCount `json:"carsByType"`
}

// NewCarID генерирует идентификатор объявления:
// 4 байта unix-времени (big-endian) + 8 случайных байт, в hex (24 символа).
func NewCarID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[:4], uint32(time.Now().Unix()))
	u := uuid.New()
	copy(b[4:], u[:8])
	return hex.EncodeToString(b[:])
}

// ParseTags разбирает JSON-объект тегов.
// Возвращает ErrInvalidTags, если JSON некорректен, не является объектом
// или содержит нестроковые значения.
func ParseTags(raw string) (Tags, error) {
	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil || generic == nil {
		return nil, ErrInvalidTags
	}
	tags := make(Tags, len(generic))
	for k, v := range generic {
		s, ok := v.(string)
		if !ok {
			return nil, ErrInvalidTags
		}
		tags[k] = s
	}
	return tags, nil
}
