package converter

import "time"

// ProductModel представляет запись таблицы products в PostgreSQL.
// Цена хранится как NUMERIC и сканируется текстом, изображения — JSONB.
type ProductModel struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	CategoryIDs []int64    `db:"category_ids"`
	Brand       *string    `db:"brand"`
	Brands      []string   `db:"brands"`
	Color       *string    `db:"color"`
	Colors      []string   `db:"colors"`
	Material    *string    `db:"material"`
	Materials   []string   `db:"materials"`
	Size        *string    `db:"size"`
	Condition   *string    `db:"condition"`
	Price       string     `db:"price"`
	Images      []byte     `db:"images"`
	Lat         *float64   `db:"lat"`
	Lon         *float64   `db:"lon"`
	City        *string    `db:"city"`
	Geohash     *string    `db:"geohash"`
	Views       int64      `db:"views"`
	Likes       int64      `db:"likes"`
	IsActive    bool       `db:"is_active"`
	IsApproved  bool       `db:"is_approved"`
	IsSold      bool       `db:"is_sold"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}

// ProductImageModel — элемент JSONB-массива images.
type ProductImageModel struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// SavedSearchModel представляет запись таблицы saved_searches в PostgreSQL.
type SavedSearchModel struct {
	ID             int64     `db:"id"`
	UserID         int64     `db:"user_id"`
	Name           string    `db:"name"`
	Query          string    `db:"query"`
	CategoryIDs    []int64   `db:"category_ids"`
	Brands         []string  `db:"brands"`
	Colors         []string  `db:"colors"`
	Materials      []string  `db:"materials"`
	Sizes          []string  `db:"sizes"`
	Condition      *string   `db:"condition"`
	PriceMin       *string   `db:"price_min"`
	PriceMax       *string   `db:"price_max"`
	NotifyNewItems bool      `db:"notify_new_items"`
	LastNotifiedAt time.Time `db:"last_notified_at"`
	CreatedAt      time.Time `db:"created_at"`
}

// SearchDocumentModel представляет запись таблицы search_index_documents.
type SearchDocumentModel struct {
	ProductID   int64     `db:"product_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Brands      []string  `db:"brands"`
	CategoryIDs []int64   `db:"category_ids"`
	Size        string    `db:"size"`
	Condition   string    `db:"condition"`
	Price       string    `db:"price"`
	City        string    `db:"city"`
	Geohash     string    `db:"geohash"`
	ImageURL    string    `db:"image_url"`
	Keywords    []string  `db:"keywords"`
	Popularity  float64   `db:"popularity"`
	IsSold      bool      `db:"is_sold"`
	CreatedAt   time.Time `db:"created_at"`
}
