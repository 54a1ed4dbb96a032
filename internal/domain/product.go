package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает товар каталога. Товар создаётся и редактируется
// каталожным сервисом; пайплайн только читает его и дописывает вычисленный
// geohash.
type Product struct {
	ID          int64
	Title       string
	Description string
	CategoryIDs []int64

	// Legacy: старые записи хранят единственное значение вместо массива.
	// До нормализации могут быть заполнены оба поля — массив имеет приоритет.
	Brand     string
	Brands    []string
	Color     string
	Colors    []string
	Material  string
	Materials []string

	Size      string
	Condition string
	Price     decimal.Decimal
	Images    []ProductImage
	Location  *GeoPoint
	Geohash   string
	Views     int64
	Likes     int64

	IsActive   bool
	IsApproved bool
	IsSold     bool

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// ProductImage — изображение товара; порядок в списке значим,
// первый элемент считается главным.
type ProductImage struct {
	URL      string
	Position int
}

// GeoPoint описывает геопозицию товара.
type GeoPoint struct {
	Lat  float64
	Lon  float64
	City string
}

// Normalize приводит legacy-поля brand/color/material к массивной форме.
// Правило приоритета: если заполнен массив, он побеждает; единственное
// значение оборачивается в одноэлементный массив только при пустом массиве.
// Нормализация выполняется один раз на границе пайплайна, потребители
// дальше работают только с массивами.
func (p *Product) Normalize() {
	if len(p.Brands) == 0 && p.Brand != "" {
		p.Brands = []string{p.Brand}
	}
	if len(p.Colors) == 0 && p.Color != "" {
		p.Colors = []string{p.Color}
	}
	if len(p.Materials) == 0 && p.Material != "" {
		p.Materials = []string{p.Material}
	}
}

// Indexable сообщает, должен ли товар присутствовать в поисковом индексе.
func (p *Product) Indexable() bool {
	return p.IsActive && p.IsApproved
}

// PrimaryImageURL возвращает URL главного изображения или пустую строку.
func (p *Product) PrimaryImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}

	primary := p.Images[0]
	for _, img := range p.Images[1:] {
		if img.Position < primary.Position {
			primary = img
		}
	}

	return primary.URL
}
