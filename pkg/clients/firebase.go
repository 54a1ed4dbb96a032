package clients

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/jimlawless/whereami"
	"google.golang.org/api/option"

	config "github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
)

// NewMessagingClient создаёт FCM-клиент по файлу сервисного аккаунта.
func NewMessagingClient(ctx context.Context, cfg *config.FCMCfg) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return client, nil
}
