package domain

import "time"

// ProductEventType — тип события изменения товара.
type ProductEventType string

const (
	ProductCreated ProductEventType = "product.created"
	ProductUpdated ProductEventType = "product.updated"
	ProductDeleted ProductEventType = "product.deleted"
)

// ProductEvent — событие изменения товара из каталожного сервиса.
// Доставляется at-least-once; порядок гарантирован в пределах одного товара
// (партиционирование по ID), но не между товарами.
type ProductEvent struct {
	EventID    string
	Type       ProductEventType
	ProductID  int64
	Before     *Product
	After      *Product
	OccurredAt time.Time
}
