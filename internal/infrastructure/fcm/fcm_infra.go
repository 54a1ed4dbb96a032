package fcm

import (
	"context"

	"firebase.google.com/go/v4/messaging"

	"github.com/sellora-tech/catalog-pipeline/internal/usecase"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

// Infra отправляет push-уведомления через FCM. Результат раскладывается
// по токенам: постоянные ошибки регистрации помечаются как Invalid, чтобы
// вызывающая сторона удалила мёртвые токены; временные — нет.
type Infra struct {
	client *messaging.Client
	logger logger.Logger
}

func NewInfra(client *messaging.Client, logger logger.Logger) *Infra {
	return &Infra{
		client: client,
		logger: logger,
	}
}

func (i *Infra) Send(ctx context.Context, req *usecase.SendPushReq) (*usecase.SendPushRes, error) {
	const op = "fcm.Infra.Send"

	message := &messaging.MulticastMessage{
		Tokens: req.Tokens,
		Notification: &messaging.Notification{
			Title: req.Title,
			Body:  req.Body,
		},
		Data: req.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Badge: &req.Badge,
					Sound: "default",
				},
			},
		},
	}

	batch, err := i.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res := &usecase.SendPushRes{
		Results:   make([]usecase.TokenResult, 0, len(batch.Responses)),
		Succeeded: batch.SuccessCount,
		Failed:    batch.FailureCount,
	}

	for idx, resp := range batch.Responses {
		result := usecase.TokenResult{
			Token: req.Tokens[idx],
			OK:    resp.Success,
			Err:   resp.Error,
		}
		if resp.Error != nil && isInvalidToken(resp.Error) {
			result.Invalid = true
		}

		res.Results = append(res.Results, result)
	}

	i.logger.Debugf("%s: sent to %d tokens, succeeded %d, failed %d",
		op, len(req.Tokens), res.Succeeded, res.Failed)

	return res, nil
}

// isInvalidToken распознаёт подтверждённо постоянные ошибки доставки.
func isInvalidToken(err error) bool {
	return messaging.IsRegistrationTokenNotRegistered(err) ||
		messaging.IsSenderIDMismatch(err)
}
