package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SearchDocument — денормализованная проекция товара для поискового индекса,
// ключ — ID товара. Инвариант: документ существует тогда и только тогда,
// когда исходный товар активен, одобрен модерацией и не удалён.
// Пишется исключительно проектором индекса, для остальных — read-only.
type SearchDocument struct {
	ProductID   int64
	Title       string
	Description string
	Brands      []string
	CategoryIDs []int64
	Size        string
	Condition   string
	Price       decimal.Decimal
	City        string
	Geohash     string
	ImageURL    string
	Keywords    []string // нормализованный набор ключевых слов, отсортирован
	Popularity  float64
	IsSold      bool
	CreatedAt   time.Time
}
