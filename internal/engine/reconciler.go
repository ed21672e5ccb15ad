package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serg2014/refundtrack/internal/app/models"
	"github.com/serg2014/refundtrack/internal/calendar"
	"github.com/serg2014/refundtrack/internal/logger"
	"go.uber.org/zap"
)

type ReconcileAction string

const (
	ActionUpsert ReconcileAction = "upsert"
	ActionDelete ReconcileAction = "delete"
)

// окна событий, все от даты доставки
const (
	deliveryEventHour   = 10
	reviewEventHour     = 14
	refundFormEventHour = 15
	reviewOffsetDays    = 2
)

// ReconcileCalendar приводит события во внешнем календаре к датам заказа
// и сохраняет новые id локально. календарь - производная проекция,
// ошибки удаленных вызовов наружу не поднимаются, наружу уходят только
// ошибки хранилища
func (e *Engine) ReconcileCalendar(ctx context.Context, order *models.OrderItem, action ReconcileAction) error {
	creds, err := e.repo.CalendarSettings(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("failed CalendarSettings: %w", err)
	}
	if !creds.Connected() {
		return nil
	}
	cc := calendar.Credentials{Token: creds.Token, CalendarID: creds.CalendarID}
	ids := order.CalendarEventIDs

	// удаление заказа или очищенная дата доставки - сносим все события
	if action == ActionDelete || order.DeliveryDate == nil {
		if ids.Empty() {
			return nil
		}
		e.deleteEvent(ctx, cc, ids.Delivery)
		e.deleteEvent(ctx, cc, ids.Review)
		e.deleteEvent(ctx, cc, ids.RefundForm)
		order.CalendarEventIDs = models.CalendarEventIDs{}
		if err := e.repo.UpdateCalendarEventIDs(ctx, order.OrderID, order.CalendarEventIDs); err != nil {
			return fmt.Errorf("failed UpdateCalendarEventIDs: %w", err)
		}
		return e.repo.AppendActivityLog(ctx, models.ActivityLogEntry{
			OrderID:      order.OrderID,
			ActivityType: models.ActivityCalendarEventDeleted,
			Description:  "calendar events removed",
			TriggeredBy:  models.TriggeredBySystem,
		})
	}

	var created, updated int

	ids.Delivery = e.upsertEvent(ctx, cc, ids.Delivery,
		e.eventAt(*order.DeliveryDate, 0, deliveryEventHour, fmt.Sprintf("Delivery: %s", order.Title), order),
		&created, &updated)
	ids.Review = e.upsertEvent(ctx, cc, ids.Review,
		e.eventAt(*order.DeliveryDate, reviewOffsetDays, reviewEventHour, fmt.Sprintf("Write review: %s", order.Title), order),
		&created, &updated)

	if order.RefundFormDate != nil {
		ids.RefundForm = e.upsertEvent(ctx, cc, ids.RefundForm,
			e.eventAt(*order.RefundFormDate, 0, refundFormEventHour, fmt.Sprintf("Refund form: %s", order.Title), order),
			&created, &updated)
	} else if ids.RefundForm != "" {
		// дату формы убрали - событие больше не нужно
		e.deleteEvent(ctx, cc, ids.RefundForm)
		ids.RefundForm = ""
	}

	if ids == order.CalendarEventIDs && created == 0 && updated == 0 {
		return nil
	}
	order.CalendarEventIDs = ids
	if err := e.repo.UpdateCalendarEventIDs(ctx, order.OrderID, ids); err != nil {
		return fmt.Errorf("failed UpdateCalendarEventIDs: %w", err)
	}

	activity := models.ActivityCalendarEventUpdated
	if created > 0 {
		activity = models.ActivityCalendarEventCreated
	}
	return e.repo.AppendActivityLog(ctx, models.ActivityLogEntry{
		OrderID:      order.OrderID,
		ActivityType: activity,
		Description:  fmt.Sprintf("calendar sync: %d created, %d updated", created, updated),
		TriggeredBy:  models.TriggeredBySystem,
	})
}

func (e *Engine) eventAt(date time.Time, offsetDays, hour int, title string, order *models.OrderItem) calendar.Event {
	loc := e.clock.Location()
	day := startOfDay(date, loc).AddDate(0, 0, offsetDays)
	desc := fmt.Sprintf("shop: %s, mediator: %s", order.Shop, order.Mediator)
	return calendar.Event{
		Title:       title,
		Description: desc,
		Start:       day.Add(time.Duration(hour) * time.Hour),
		End:         day.Add(time.Duration(hour+1) * time.Hour),
	}
}

// upsertEvent - update если id уже есть, иначе create.
// каждая попытка независима, ошибка только логируется
func (e *Engine) upsertEvent(ctx context.Context, cc calendar.Credentials, eventID string, ev calendar.Event, created, updated *int) string {
	if eventID != "" {
		err := e.cal.UpdateEvent(ctx, cc, eventID, ev)
		if err == nil {
			*updated++
			return eventID
		}
		if !errors.Is(err, calendar.ErrNotFound) {
			logger.Log.Error("failed UpdateEvent",
				zap.String("event_id", eventID), zap.Error(err))
			return eventID
		}
		// событие удалили на той стороне, создаем заново
	}
	newID, err := e.cal.CreateEvent(ctx, cc, ev)
	if err != nil {
		logger.Log.Error("failed CreateEvent", zap.String("title", ev.Title), zap.Error(err))
		return ""
	}
	*created++
	return newID
}

// deleteEvent - "уже нет" считаем успехом
func (e *Engine) deleteEvent(ctx context.Context, cc calendar.Credentials, eventID string) {
	if eventID == "" {
		return
	}
	err := e.cal.DeleteEvent(ctx, cc, eventID)
	if err != nil && !errors.Is(err, calendar.ErrNotFound) {
		logger.Log.Error("failed DeleteEvent", zap.String("event_id", eventID), zap.Error(err))
	}
}
