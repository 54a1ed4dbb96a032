package kafka

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
)

// productEventModel — JSON-представление события изменения товара в топике.
// Партиционирование по product_id гарантирует порядок в пределах товара.
type productEventModel struct {
	EventID    string        `json:"event_id"`
	Type       string        `json:"type"`
	ProductID  int64         `json:"product_id"`
	Before     *productModel `json:"before,omitempty"`
	After      *productModel `json:"after,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

type productModel struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	CategoryIDs []int64           `json:"category_ids,omitempty"`
	Brand       string            `json:"brand,omitempty"`
	Brands      []string          `json:"brands,omitempty"`
	Color       string            `json:"color,omitempty"`
	Colors      []string          `json:"colors,omitempty"`
	Material    string            `json:"material,omitempty"`
	Materials   []string          `json:"materials,omitempty"`
	Size        string            `json:"size,omitempty"`
	Condition   string            `json:"condition,omitempty"`
	Price       decimal.Decimal   `json:"price"`
	Images      []imageModel      `json:"images,omitempty"`
	Location    *locationModel    `json:"location,omitempty"`
	Geohash     string            `json:"geohash,omitempty"`
	Views       int64             `json:"views"`
	Likes       int64             `json:"likes"`
	IsActive    bool              `json:"is_active"`
	IsApproved  bool              `json:"is_approved"`
	IsSold      bool              `json:"is_sold"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
}

type imageModel struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type locationModel struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	City string  `json:"city,omitempty"`
}

// decodeProductEvent разбирает сообщение топика в доменное событие.
func decodeProductEvent(data []byte) (*domain.ProductEvent, error) {
	const op = "kafka.decodeProductEvent"

	var model productEventModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, e.Wrap(op, err)
	}

	eventType := domain.ProductEventType(model.Type)
	switch eventType {
	case domain.ProductCreated, domain.ProductUpdated, domain.ProductDeleted:
	default:
		return nil, e.Wrap(op, e.ErrUnknownEventType)
	}

	return &domain.ProductEvent{
		EventID:    model.EventID,
		Type:       eventType,
		ProductID:  model.ProductID,
		Before:     toProduct(model.Before),
		After:      toProduct(model.After),
		OccurredAt: model.OccurredAt,
	}, nil
}

func toProduct(m *productModel) *domain.Product {
	if m == nil {
		return nil
	}

	images := make([]domain.ProductImage, 0, len(m.Images))
	for _, img := range m.Images {
		images = append(images, domain.ProductImage{URL: img.URL, Position: img.Position})
	}

	var location *domain.GeoPoint
	if m.Location != nil {
		location = &domain.GeoPoint{
			Lat:  m.Location.Lat,
			Lon:  m.Location.Lon,
			City: m.Location.City,
		}
	}

	return &domain.Product{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		CategoryIDs: m.CategoryIDs,
		Brand:       m.Brand,
		Brands:      m.Brands,
		Color:       m.Color,
		Colors:      m.Colors,
		Material:    m.Material,
		Materials:   m.Materials,
		Size:        m.Size,
		Condition:   m.Condition,
		Price:       m.Price,
		Images:      images,
		Location:    location,
		Geohash:     m.Geohash,
		Views:       m.Views,
		Likes:       m.Likes,
		IsActive:    m.IsActive,
		IsApproved:  m.IsApproved,
		IsSold:      m.IsSold,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
