package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Внутренние ошибки с векторами
	ErrEmptyVector             = fmt.Errorf("empty vector")
	ErrVectorDimensionMismatch = fmt.Errorf("vector dimension mismatch")

	// Ошибки пайплайна индексации
	ErrProductSnapshotMissing = fmt.Errorf("product snapshot missing in event")
	ErrUnknownEventType       = fmt.Errorf("unknown product event type")

	// Ошибки геокодека
	ErrInvalidGeohash     = fmt.Errorf("invalid geohash")
	ErrInvalidCoordinates = fmt.Errorf("invalid coordinates")

	// Ошибки загрузки изображений
	ErrEmptyImageURL    = fmt.Errorf("empty image url")
	ErrImageTooLarge    = fmt.Errorf("image exceeds size limit")
	ErrUnexpectedStatus = fmt.Errorf("unexpected http status")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect env variable")
	ErrBucketNotFound       = fmt.Errorf("bucket not found")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
