package converter

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
)

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
// Написан вручную: NUMERIC ходит текстом, изображения — JSONB.
type ProductConverter struct{}

func NewProductConverter() ProductConverter {
	return ProductConverter{}
}

func (ProductConverter) ToEntity(model *ProductModel) (*domain.Product, error) {
	const op = "converter.ProductConverter.ToEntity"

	price, err := decimal.NewFromString(model.Price)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var images []domain.ProductImage
	if len(model.Images) > 0 {
		var imageModels []ProductImageModel
		if err := json.Unmarshal(model.Images, &imageModels); err != nil {
			return nil, e.Wrap(op, err)
		}
		images = make([]domain.ProductImage, 0, len(imageModels))
		for _, img := range imageModels {
			images = append(images, domain.ProductImage{URL: img.URL, Position: img.Position})
		}
	}

	var location *domain.GeoPoint
	if model.Lat != nil && model.Lon != nil {
		location = &domain.GeoPoint{
			Lat:  *model.Lat,
			Lon:  *model.Lon,
			City: stringOrEmpty(model.City),
		}
	}

	return &domain.Product{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		CategoryIDs: model.CategoryIDs,
		Brand:       stringOrEmpty(model.Brand),
		Brands:      model.Brands,
		Color:       stringOrEmpty(model.Color),
		Colors:      model.Colors,
		Material:    stringOrEmpty(model.Material),
		Materials:   model.Materials,
		Size:        stringOrEmpty(model.Size),
		Condition:   stringOrEmpty(model.Condition),
		Price:       price,
		Images:      images,
		Location:    location,
		Geohash:     stringOrEmpty(model.Geohash),
		Views:       model.Views,
		Likes:       model.Likes,
		IsActive:    model.IsActive,
		IsApproved:  model.IsApproved,
		IsSold:      model.IsSold,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}, nil
}

// SavedSearchConverter преобразует сущности SavedSearch между domain и моделью PostgreSQL.
type SavedSearchConverter struct{}

func NewSavedSearchConverter() SavedSearchConverter {
	return SavedSearchConverter{}
}

func (SavedSearchConverter) ToEntity(model *SavedSearchModel) (*domain.SavedSearch, error) {
	const op = "converter.SavedSearchConverter.ToEntity"

	priceMin, err := decimalOrNil(model.PriceMin)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	priceMax, err := decimalOrNil(model.PriceMax)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &domain.SavedSearch{
		ID:             model.ID,
		UserID:         model.UserID,
		Name:           model.Name,
		Query:          model.Query,
		CategoryIDs:    model.CategoryIDs,
		Brands:         model.Brands,
		Colors:         model.Colors,
		Materials:      model.Materials,
		Sizes:          model.Sizes,
		Condition:      stringOrEmpty(model.Condition),
		PriceMin:       priceMin,
		PriceMax:       priceMax,
		NotifyNewItems: model.NotifyNewItems,
		LastNotifiedAt: model.LastNotifiedAt,
		CreatedAt:      model.CreatedAt,
	}, nil
}

// SearchDocumentConverter преобразует сущности SearchDocument между domain и моделью PostgreSQL.
type SearchDocumentConverter struct{}

func NewSearchDocumentConverter() SearchDocumentConverter {
	return SearchDocumentConverter{}
}

func (SearchDocumentConverter) ToModel(doc *domain.SearchDocument) *SearchDocumentModel {
	return &SearchDocumentModel{
		ProductID:   doc.ProductID,
		Title:       doc.Title,
		Description: doc.Description,
		Brands:      doc.Brands,
		CategoryIDs: doc.CategoryIDs,
		Size:        doc.Size,
		Condition:   doc.Condition,
		Price:       doc.Price.String(),
		City:        doc.City,
		Geohash:     doc.Geohash,
		ImageURL:    doc.ImageURL,
		Keywords:    doc.Keywords,
		Popularity:  doc.Popularity,
		IsSold:      doc.IsSold,
		CreatedAt:   doc.CreatedAt,
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func decimalOrNil(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}

	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}

	return &d, nil
}
