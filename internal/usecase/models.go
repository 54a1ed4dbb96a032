package usecase

import (
	"time"

	"github.com/google/uuid"
)

// REPOSITORIES

// NewProductsQuery — запрос кандидатов для окна сохранённого поиска.
// Хранилище не умеет эффективно комбинировать много фильтров сразу,
// поэтому передаётся один самый селективный предикат: CategoryIDs, если
// заданы, иначе Brands. Остальные фильтры применяются в памяти.
type NewProductsQuery struct {
	Since       time.Time
	Until       time.Time
	CategoryIDs []int64
	Brands      []string
}

// DispatchLogEntry — запись аудита одной рассылки по сохранённому поиску.
type DispatchLogEntry struct {
	ID            string
	SearchID      int64
	UserID        int64
	NewItemsCount int
	Succeeded     int
	Failed        int
	SentAt        time.Time
}

// INFRASTRUCTURE

// EmbedImageReq — запрос векторизации одного изображения.
type EmbedImageReq struct {
	Data []byte
}

// EmbedImageRes — результат векторизации.
type EmbedImageRes struct {
	Vector       []float32
	ModelVersion string
}

// SendPushReq — запрос fan-out отправки одного логического уведомления
// на несколько устройств.
type SendPushReq struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
	Badge  int
}

// TokenResult — исход доставки на один токен. Invalid означает
// подтверждённую провайдером постоянную невалидность токена —
// единственный случай, когда вызывающая сторона удаляет токен.
type TokenResult struct {
	Token   string
	OK      bool
	Invalid bool
	Err     error
}

// SendPushRes — агрегированный результат батча.
type SendPushRes struct {
	Results   []TokenResult
	Succeeded int
	Failed    int
}

// InvalidTokens возвращает токены с подтверждённой постоянной ошибкой.
func (r *SendPushRes) InvalidTokens() []string {
	var tokens []string
	for _, res := range r.Results {
		if res.Invalid {
			tokens = append(tokens, res.Token)
		}
	}

	return tokens
}

// MAPPERS

func NewEmbedImageReq(data []byte) *EmbedImageReq {
	return &EmbedImageReq{Data: data}
}

func NewEmbedImageRes(vector []float32, modelVersion string) *EmbedImageRes {
	return &EmbedImageRes{
		Vector:       vector,
		ModelVersion: modelVersion,
	}
}

func NewDispatchLogEntry(searchID, userID int64, newItems, succeeded, failed int, sentAt time.Time) *DispatchLogEntry {
	return &DispatchLogEntry{
		ID:            uuid.NewString(),
		SearchID:      searchID,
		UserID:        userID,
		NewItemsCount: newItems,
		Succeeded:     succeeded,
		Failed:        failed,
		SentAt:        sentAt,
	}
}
