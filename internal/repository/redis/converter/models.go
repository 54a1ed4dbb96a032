package converter

import "time"

// SearchDocumentRedisModel — JSON-представление документа поискового
// индекса в кэше последних записанных версий.
type SearchDocumentRedisModel struct {
	ProductID   int64     `json:"product_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Brands      []string  `json:"brands,omitempty"`
	CategoryIDs []int64   `json:"category_ids,omitempty"`
	Size        string    `json:"size,omitempty"`
	Condition   string    `json:"condition,omitempty"`
	Price       string    `json:"price"`
	City        string    `json:"city,omitempty"`
	Geohash     string    `json:"geohash,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	Popularity  float64   `json:"popularity"`
	IsSold      bool      `json:"is_sold"`
	CreatedAt   time.Time `json:"created_at"`
}
