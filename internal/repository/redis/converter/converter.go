package converter

import (
	"github.com/shopspring/decimal"

	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
)

// SearchDocumentConverter преобразует документы индекса между domain и
// JSON-моделью кэша. Написан вручную: цена ходит строкой.
type SearchDocumentConverter struct{}

func NewSearchDocumentConverter() SearchDocumentConverter {
	return SearchDocumentConverter{}
}

func (SearchDocumentConverter) ToRedisModel(doc *domain.SearchDocument) *SearchDocumentRedisModel {
	return &SearchDocumentRedisModel{
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

func (SearchDocumentConverter) ToEntity(model *SearchDocumentRedisModel) (*domain.SearchDocument, error) {
	const op = "converter.SearchDocumentConverter.ToEntity"

	price, err := decimal.NewFromString(model.Price)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &domain.SearchDocument{
		ProductID:   model.ProductID,
		Title:       model.Title,
		Description: model.Description,
		Brands:      model.Brands,
		CategoryIDs: model.CategoryIDs,
		Size:        model.Size,
		Condition:   model.Condition,
		Price:       price,
		City:        model.City,
		Geohash:     model.Geohash,
		ImageURL:    model.ImageURL,
		Keywords:    model.Keywords,
		Popularity:  model.Popularity,
		IsSold:      model.IsSold,
		CreatedAt:   model.CreatedAt,
	}, nil
}
