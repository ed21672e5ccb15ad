package calendar

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("event not found")
	ErrUnauthorized = errors.New("bad credentials")
)

// Credentials - непрозрачный токен пользователя и id календаря.
// получаются отдельно, oauth вне нашей зоны
type Credentials struct {
	Token      string
	CalendarID string
}

type Event struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// Client - внешний календарь: создать/обновить/удалить событие.
// любая ошибка тут best-effort, локальные данные важнее
type Client interface {
	CreateEvent(ctx context.Context, creds Credentials, ev Event) (string, error)
	UpdateEvent(ctx context.Context, creds Credentials, eventID string, ev Event) error
	DeleteEvent(ctx context.Context, creds Credentials, eventID string) error
}
