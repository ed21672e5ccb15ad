package models

import (
	"time"

	"github.com/google/uuid"
)

type RegisterUser struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type UserID = uuid.UUID

// CalendarSettings - токен и id календаря пользователя.
// токен получаем извне (oauth не наша забота)
type CalendarSettings struct {
	Token      string `json:"token"`
	CalendarID string `json:"calendar_id"`
}

func (c CalendarSettings) Connected() bool {
	return c.Token != "" && c.CalendarID != ""
}

type NotificationType string

const (
	NotificationCritical NotificationType = "CRITICAL"
	NotificationWarning  NotificationType = "WARNING"
	NotificationSuccess  NotificationType = "SUCCESS"
	NotificationInfo     NotificationType = "INFO"
)

type ReminderCategory string

const (
	ReminderGeneral         ReminderCategory = "GENERAL"
	ReminderDelivery        ReminderCategory = "DELIVERY"
	ReminderReviewRating    ReminderCategory = "REVIEW_RATING"
	ReminderRefundForm      ReminderCategory = "REFUND_FORM"
	ReminderMediatorPayment ReminderCategory = "MEDIATOR_PAYMENT"
)

type NotificationID = uuid.UUID

type Notification struct {
	ID         NotificationID   `json:"id"`
	OrderID    *OrderID         `json:"order_id,omitempty"`
	UserID     UserID           `json:"-"`
	Type       NotificationType `json:"type"`
	Category   ReminderCategory `json:"category"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	IsRead     bool             `json:"is_read"`
	CreateTime time.Time        `json:"created_at"`
}
type Notifications []Notification

type ActivityType string

const (
	ActivityOrderCreated         ActivityType = "ORDER_CREATED"
	ActivityStatusChanged        ActivityType = "STATUS_CHANGED"
	ActivityOrderUpdated         ActivityType = "ORDER_UPDATED"
	ActivityDatesModified        ActivityType = "DATES_MODIFIED"
	ActivityCalendarEventCreated ActivityType = "CALENDAR_EVENT_CREATED"
	ActivityCalendarEventUpdated ActivityType = "CALENDAR_EVENT_UPDATED"
	ActivityCalendarEventDeleted ActivityType = "CALENDAR_EVENT_DELETED"
)

const (
	TriggeredByUser   = "User"
	TriggeredBySystem = "System"
)

// ActivityLogEntry - запись в журнале, только append
type ActivityLogEntry struct {
	OrderID      OrderID      `json:"order_id"`
	ActivityType ActivityType `json:"activity_type"`
	Description  string       `json:"description"`
	OldValue     string       `json:"old_value,omitempty"`
	NewValue     string       `json:"new_value,omitempty"`
	TriggeredBy  string       `json:"triggered_by"`
}

// DashboardStats - агрегаты для главной страницы
type DashboardStats struct {
	ByStatus          map[OrderStatus]int `json:"by_status"`
	OpenOrders        int                 `json:"open_orders"`
	TotalOrderAmount  int64               `json:"total_order_amount"`
	TotalRefunded     int64               `json:"total_refunded"`
	OutstandingRefund int64               `json:"outstanding_refund"`
}
