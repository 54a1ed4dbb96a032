package domain

// User — получатель push-уведомлений. DeviceTokens — непрозрачные
// push-креденшалы устройств; токен удаляется только по подтверждённой
// провайдером постоянной ошибке, никогда по временной.
type User struct {
	ID           int64
	DeviceTokens []string
}
