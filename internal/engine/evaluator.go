package engine

import (
	"fmt"
	"time"

	"github.com/serg2014/refundtrack/internal/app/models"
)

// NextStatus чистая функция: заказ + "сейчас" -> новый статус.
// правила проверяются по порядку, первое совпавшее побеждает.
// все остальные переходы делает пользователь руками
func NextStatus(order *models.OrderItem, now time.Time, loc *time.Location) (models.OrderStatus, string, bool) {
	// доставка сегодня
	if order.Status == models.OrderOrdered &&
		order.DeliveryDate != nil &&
		sameDay(now, *order.DeliveryDate, loc) {
		return models.OrderDelivered,
			fmt.Sprintf("delivery date %s reached", order.DeliveryDate.In(loc).Format("2006-01-02")),
			true
	}

	// срок формы возврата прошел
	if (order.Status == models.OrderDelivered || order.Status == models.OrderDeliverablesDone) &&
		order.RefundFormDate != nil &&
		order.RefundFormDate.Before(startOfDay(now, loc)) {
		return models.OrderOverdueRefundForm,
			fmt.Sprintf("refund form deadline %s missed", order.RefundFormDate.In(loc).Format("2006-01-02")),
			true
	}

	return order.Status, "", false
}
