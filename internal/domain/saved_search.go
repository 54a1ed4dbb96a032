package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SavedSearch — сохранённый поиск пользователя. lastNotifiedAt монотонно
// не убывает и продвигается только после рассылки хотя бы с одной успешной
// доставкой.
type SavedSearch struct {
	ID             int64
	UserID         int64
	Name           string
	Query          string
	CategoryIDs    []int64
	Brands         []string
	Colors         []string
	Materials      []string
	Sizes          []string
	Condition      string
	PriceMin       *decimal.Decimal
	PriceMax       *decimal.Decimal
	NotifyNewItems bool
	LastNotifiedAt time.Time
	CreatedAt      time.Time
}

// Matches проверяет товар по всем фильтрам сохранённого поиска в памяти.
// Товар должен быть предварительно нормализован (см. Product.Normalize).
// Хранилище фильтрует кандидатов только самым селективным предикатом,
// остальные применяются здесь.
func (s *SavedSearch) Matches(p *Product) bool {
	return s.matchesQuery(p) &&
		s.matchesPrice(p) &&
		s.matchesSet(s.Brands, p.Brands) &&
		s.matchesColors(p) &&
		s.matchesSet(s.Materials, p.Materials) &&
		s.matchesSize(p) &&
		s.matchesCondition(p)
}

// matchesQuery — подстрочное совпадение запроса в названии, описании или бренде.
func (s *SavedSearch) matchesQuery(p *Product) bool {
	query := strings.ToLower(strings.TrimSpace(s.Query))
	if query == "" {
		return true
	}

	if strings.Contains(strings.ToLower(p.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Description), query) {
		return true
	}
	for _, brand := range p.Brands {
		if strings.Contains(strings.ToLower(brand), query) {
			return true
		}
	}

	return false
}

func (s *SavedSearch) matchesPrice(p *Product) bool {
	if s.PriceMin != nil && p.Price.LessThan(*s.PriceMin) {
		return false
	}
	if s.PriceMax != nil && p.Price.GreaterThan(*s.PriceMax) {
		return false
	}

	return true
}

// matchesSet — пересечение множества значений фильтра со значениями товара
// (без учёта регистра). Пустой фильтр пропускает всё.
func (s *SavedSearch) matchesSet(want, have []string) bool {
	if len(want) == 0 {
		return true
	}

	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}

	return false
}

// matchesColors сравнивает цвета с расширением синонимов: логический цвет
// фильтра совпадает с любым из его алиасов, включая локализованные названия.
func (s *SavedSearch) matchesColors(p *Product) bool {
	if len(s.Colors) == 0 {
		return true
	}

	for _, want := range s.Colors {
		aliases := ColorAliases(want)
		for _, have := range p.Colors {
			have = strings.ToLower(strings.TrimSpace(have))
			for _, alias := range aliases {
				if have == alias {
					return true
				}
			}
		}
	}

	return false
}

func (s *SavedSearch) matchesSize(p *Product) bool {
	if len(s.Sizes) == 0 {
		return true
	}

	for _, size := range s.Sizes {
		if strings.EqualFold(size, p.Size) {
			return true
		}
	}

	return false
}

func (s *SavedSearch) matchesCondition(p *Product) bool {
	if s.Condition == "" {
		return true
	}

	return strings.EqualFold(s.Condition, p.Condition)
}

// DisplayName возвращает имя поиска для текста уведомления.
func (s *SavedSearch) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}

	return s.Query
}
