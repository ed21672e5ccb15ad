package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/serg2014/refundtrack/internal/app/models"
	"github.com/serg2014/refundtrack/internal/calendar"
	"github.com/serg2014/refundtrack/internal/logger"
	"go.uber.org/zap"
)

// Repository - все что движку нужно от хранилища
type Repository interface {
	OrdersForProcessing(ctx context.Context) (models.Orders, error)
	UpdateOrderStatus(ctx context.Context, orderID models.OrderID, status models.OrderStatus) error
	UpdateCalendarEventIDs(ctx context.Context, orderID models.OrderID, ids models.CalendarEventIDs) error
	AppendActivityLog(ctx context.Context, entry models.ActivityLogEntry) error
	NotificationExists(ctx context.Context, f NotificationFilter) (bool, error)
	InsertNotification(ctx context.Context, n models.Notification) error
	CalendarSettings(ctx context.Context, userID models.UserID) (models.CalendarSettings, error)
}

// PassSummary - итог одного прохода, для лога и тестов
type PassSummary struct {
	Processed    int
	Transitioned int
	Notified     int
	Failed       int
}

type Engine struct {
	repo  Repository
	cal   calendar.Client
	clock Clock
	dedup DedupPolicy
}

// TODO timeout в конфиг
const orderTimeout = 30 * time.Second

func New(repo Repository, cal calendar.Client, clock Clock, dedup DedupPolicy) *Engine {
	if dedup == nil {
		dedup = DedupBySeverity
	}
	return &Engine{repo: repo, cal: cal, clock: clock, dedup: dedup}
}

// RunAlerting частый проход: только напоминания, статусы не трогаем
func (e *Engine) RunAlerting(ctx context.Context) (PassSummary, error) {
	var sum PassSummary
	orders, err := e.repo.OrdersForProcessing(ctx)
	if err != nil {
		// без хранилища продолжать нельзя, ждем следующий запуск
		return sum, fmt.Errorf("failed OrdersForProcessing: %w", err)
	}

	for i := range orders {
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		default:
		}
		octx, cancel := context.WithTimeout(context.Background(), orderTimeout)
		err := e.processAlerts(octx, &orders[i], &sum)
		cancel()
		if err != nil {
			sum.Failed++
			logger.Log.Error("failed order alerts",
				zap.String("order_id", orders[i].OrderID.String()), zap.Error(err))
		}
		sum.Processed++
	}
	return sum, nil
}

// RunDaily редкий проход: переходы статусов + напоминания + синхронизация календаря
func (e *Engine) RunDaily(ctx context.Context) (PassSummary, error) {
	var sum PassSummary
	orders, err := e.repo.OrdersForProcessing(ctx)
	if err != nil {
		return sum, fmt.Errorf("failed OrdersForProcessing: %w", err)
	}

	for i := range orders {
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		default:
		}
		// заказ дорабатывает на своем контексте, shutdown его не прерывает
		octx, cancel := context.WithTimeout(context.Background(), orderTimeout)
		err := e.processOrder(octx, &orders[i], &sum)
		cancel()
		if err != nil {
			sum.Failed++
			logger.Log.Error("failed order processing",
				zap.String("order_id", orders[i].OrderID.String()), zap.Error(err))
		}
		sum.Processed++
	}
	return sum, nil
}

// processOrder: сначала статус, потом уведомления, потом календарь.
// порядок важен - эхо-уведомление читает новый статус
func (e *Engine) processOrder(ctx context.Context, order *models.OrderItem, sum *PassSummary) error {
	now := e.clock.Now()

	newStatus, reason, changed := NextStatus(order, now, e.clock.Location())
	if changed {
		if err := e.repo.UpdateOrderStatus(ctx, order.OrderID, newStatus); err != nil {
			return fmt.Errorf("failed UpdateOrderStatus: %w", err)
		}
		entry := models.ActivityLogEntry{
			OrderID:      order.OrderID,
			ActivityType: models.ActivityStatusChanged,
			Description:  reason,
			OldValue:     string(order.Status),
			NewValue:     string(newStatus),
			TriggeredBy:  models.TriggeredBySystem,
		}
		if err := e.repo.AppendActivityLog(ctx, entry); err != nil {
			return fmt.Errorf("failed AppendActivityLog: %w", err)
		}
		order.Status = newStatus
		sum.Transitioned++

		if echo, ok := EchoNotification(order, newStatus); ok {
			inserted, err := e.maybeNotify(ctx, echo)
			if err != nil {
				return err
			}
			if inserted {
				sum.Notified++
			}
		}
	}

	if err := e.processAlerts(ctx, order, sum); err != nil {
		return err
	}

	// чинить календарь есть смысл только если события уже заводили
	if !order.CalendarEventIDs.Empty() {
		if err := e.ReconcileCalendar(ctx, order, ActionUpsert); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) processAlerts(ctx context.Context, order *models.OrderItem, sum *PassSummary) error {
	now := e.clock.Now()
	for _, n := range alertsFor(order, now, e.clock.Location()) {
		inserted, err := e.maybeNotify(ctx, n)
		if err != nil {
			return err
		}
		if inserted {
			sum.Notified++
		}
	}
	return nil
}

// NotifyStatusChange - эхо-уведомление о ручной смене статуса,
// тот же дедуп что и у автоматических переходов
func (e *Engine) NotifyStatusChange(ctx context.Context, order *models.OrderItem, status models.OrderStatus) error {
	echo, ok := EchoNotification(order, status)
	if !ok {
		return nil
	}
	_, err := e.maybeNotify(ctx, echo)
	return err
}

// maybeNotify вставляет уведомление если дедупликация не против
func (e *Engine) maybeNotify(ctx context.Context, n models.Notification) (bool, error) {
	exists, err := e.repo.NotificationExists(ctx, e.dedup(n))
	if err != nil {
		return false, fmt.Errorf("failed NotificationExists: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := e.repo.InsertNotification(ctx, n); err != nil {
		return false, fmt.Errorf("failed InsertNotification: %w", err)
	}
	return true, nil
}
