package engine

import (
	"fmt"
	"time"

	"github.com/serg2014/refundtrack/internal/app/models"
)

// NotificationFilter - по каким полям искать уже существующее уведомление
type NotificationFilter struct {
	OrderID  models.OrderID
	Type     *models.NotificationType
	Category *models.ReminderCategory
}

// DedupPolicy решает какой ключ гасит повторные уведомления.
// историческое поведение - по severity, см. DedupBySeverity
type DedupPolicy func(n models.Notification) NotificationFilter

// DedupBySeverity грубый ключ (order, type): второй warning по другой причине
// тоже будет подавлен. оставлено как есть, для замены есть DedupByCategory
func DedupBySeverity(n models.Notification) NotificationFilter {
	t := n.Type
	return NotificationFilter{OrderID: *n.OrderID, Type: &t}
}

// DedupByCategory точный ключ (order, category)
func DedupByCategory(n models.Notification) NotificationFilter {
	c := n.Category
	return NotificationFilter{OrderID: *n.OrderID, Category: &c}
}

const approachingDays = 3

// alertsFor считает какие напоминания положены заказу прямо сейчас.
// чистая функция, дедупликация выше по стеку
func alertsFor(order *models.OrderItem, now time.Time, loc *time.Location) []models.Notification {
	var res []models.Notification

	if order.DeliveryDate != nil && order.DeliveryDate.After(now) {
		d := daysUntil(now, *order.DeliveryDate, loc)
		if d <= approachingDays {
			msg := fmt.Sprintf("order %q will be delivered in %d day(s), on %s",
				order.Title, d, order.DeliveryDate.In(loc).Format("2006-01-02"))
			if d <= 1 {
				msg = fmt.Sprintf("order %q delivery is imminent: %s. Prepare to confirm the delivery",
					order.Title, order.DeliveryDate.In(loc).Format("2006-01-02"))
			}
			res = append(res, newAlert(order, models.NotificationWarning, models.ReminderDelivery,
				"Delivery approaching", msg))
		}
	}

	if order.RefundFormDate != nil {
		if order.RefundFormDate.After(now) {
			if daysUntil(now, *order.RefundFormDate, loc) <= approachingDays {
				res = append(res, newAlert(order, models.NotificationWarning, models.ReminderRefundForm,
					"Refund form due soon",
					fmt.Sprintf("refund form for order %q is due on %s",
						order.Title, order.RefundFormDate.In(loc).Format("2006-01-02"))))
			}
		} else {
			res = append(res, newAlert(order, models.NotificationCritical, models.ReminderRefundForm,
				"Refund form overdue",
				fmt.Sprintf("refund form deadline %s for order %q was missed",
					order.RefundFormDate.In(loc).Format("2006-01-02"), order.Title)))
		}
	}

	if order.Status == models.OrderDelivered &&
		order.DeliveryDate != nil &&
		daysUntil(now, *order.DeliveryDate, loc) <= -approachingDays {
		res = append(res, newAlert(order, models.NotificationCritical, models.ReminderReviewRating,
			"Review overdue",
			fmt.Sprintf("order %q was delivered on %s and still has no review",
				order.Title, order.DeliveryDate.In(loc).Format("2006-01-02"))))
	}

	return res
}

func newAlert(order *models.OrderItem, t models.NotificationType, c models.ReminderCategory, title, msg string) models.Notification {
	id := order.OrderID
	return models.Notification{
		OrderID:  &id,
		UserID:   order.UserID,
		Type:     t,
		Category: c,
		Title:    title,
		Message:  msg,
	}
}

// EchoNotification - разовое уведомление о смене статуса.
// используется и движком и ручной сменой статуса в crud
func EchoNotification(order *models.OrderItem, status models.OrderStatus) (models.Notification, bool) {
	switch status {
	case models.OrderDelivered:
		return newAlert(order, models.NotificationInfo, models.ReminderDelivery,
			"Order delivered",
			fmt.Sprintf("order %q is marked as delivered", order.Title)), true
	case models.OrderOverdueRefundForm:
		return newAlert(order, models.NotificationCritical, models.ReminderRefundForm,
			"Refund form overdue",
			fmt.Sprintf("order %q moved to overdue: the refund form was not filed in time", order.Title)), true
	case models.OrderRemindMediatorPayment:
		return newAlert(order, models.NotificationWarning, models.ReminderMediatorPayment,
			"Waiting for mediator payment",
			fmt.Sprintf("order %q is waiting for the mediator to pay out the refund", order.Title)), true
	case models.OrderRefunded:
		return newAlert(order, models.NotificationSuccess, models.ReminderGeneral,
			"Order refunded",
			fmt.Sprintf("order %q is fully refunded", order.Title)), true
	}
	return models.Notification{}, false
}
