package usecase

import (
	"context"
	"time"
)

type InferenceInfra interface {
	EmbedImage(ctx context.Context, req *EmbedImageReq) (*EmbedImageRes, error)
}

type ImageSourceInfra interface {
	// FetchImage разрешает URL изображения в байты: прямое чтение из
	// объектного хранилища, если URL указывает на него, иначе HTTP-загрузка.
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

type PushInfra interface {
	// Send отправляет батч сообщений и возвращает результат по каждому токену.
	Send(ctx context.Context, req *SendPushReq) (*SendPushRes, error)
}

// Debouncer коалесцирует всплески обновлений одного ключа в одну запись.
type Debouncer interface {
	Schedule(key string, delay time.Duration, fn func())
	Cancel(key string)
}
