package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderOrdered               OrderStatus = "ORDERED"
	OrderDelivered             OrderStatus = "DELIVERED"
	OrderDeliverablesDone      OrderStatus = "DELIVERABLES_DONE"
	OrderRefundFormDone        OrderStatus = "REFUND_FORM_DONE"
	OrderOverdueRefundForm     OrderStatus = "OVERDUE_REFUND_FORM"
	OrderRemindMediatorPayment OrderStatus = "REMIND_MEDIATOR_PAYMENT"
	OrderRefunded              OrderStatus = "REFUNDED"
	OrderCancelled             OrderStatus = "CANCELLED"
)

func (s OrderStatus) Terminal() bool {
	return s == OrderRefunded || s == OrderCancelled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderOrdered, OrderDelivered, OrderDeliverablesDone, OrderRefundFormDone,
		OrderOverdueRefundForm, OrderRemindMediatorPayment, OrderRefunded, OrderCancelled:
		return true
	}
	return false
}

type OrderID = uuid.UUID

// CalendarEventIDs - id событий во внешнем календаре.
// запись есть только для вехи у которой еще стоит дата
type CalendarEventIDs struct {
	Delivery   string `json:"delivery,omitempty"`
	Review     string `json:"review,omitempty"`
	RefundForm string `json:"refund_form,omitempty"`
}

func (c CalendarEventIDs) Empty() bool {
	return c.Delivery == "" && c.Review == "" && c.RefundForm == ""
}

// суммы в копейках/центах
type OrderItem struct {
	OrderID          OrderID          `json:"id"`
	UserID           UserID           `json:"-"`
	Title            string           `json:"title"`
	Shop             string           `json:"shop,omitempty"`
	Mediator         string           `json:"mediator,omitempty"`
	Status           OrderStatus      `json:"status"`
	OrderDate        time.Time        `json:"order_date"`
	DeliveryDate     *time.Time       `json:"delivery_date,omitempty"`
	RefundFormDate   *time.Time       `json:"refund_form_date,omitempty"`
	RemindRefundDate *time.Time       `json:"remind_refund_date,omitempty"`
	OrderAmount      int64            `json:"order_amount"`
	RefundAmount     int64            `json:"refund_amount"`
	CalendarEventIDs CalendarEventIDs `json:"calendar_event_ids"`
	UploadTime       time.Time        `json:"uploaded_at"`
}
type Orders []OrderItem
