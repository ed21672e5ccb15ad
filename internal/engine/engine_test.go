package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serg2014/refundtrack/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyPassDeliveryToday(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)

	order := testOrder(models.OrderOrdered)
	order.DeliveryDate = datePtr(time.Date(2025, 3, 7, 0, 0, 0, 0, loc))

	repo := newFakeRepo(order)
	cal := newFakeCalendar()
	e := New(repo, cal, clockAt(now, loc), nil)

	sum, err := e.RunDaily(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Transitioned)
	assert.Equal(t, models.OrderDelivered, repo.statuses[order.OrderID])

	changes := repo.logsOfType(models.ActivityStatusChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, string(models.OrderOrdered), changes[0].OldValue)
	assert.Equal(t, string(models.OrderDelivered), changes[0].NewValue)
	assert.Equal(t, models.TriggeredBySystem, changes[0].TriggeredBy)

	require.Len(t, repo.notifications, 1)
	assert.Equal(t, models.ReminderDelivery, repo.notifications[0].Category)
	assert.Equal(t, models.NotificationInfo, repo.notifications[0].Type)
}

func TestDailyPassOverdueRefundForm(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)

	order := testOrder(models.OrderDelivered)
	order.RefundFormDate = datePtr(now.AddDate(0, 0, -1))

	repo := newFakeRepo(order)
	cal := newFakeCalendar()
	e := New(repo, cal, clockAt(now, loc), nil)

	sum, err := e.RunDaily(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Transitioned)
	assert.Equal(t, models.OrderOverdueRefundForm, repo.statuses[order.OrderID])

	// эхо и напоминание оба Critical, дедуп по severity оставляет одно
	require.Len(t, repo.notifications, 1)
	assert.Equal(t, models.NotificationCritical, repo.notifications[0].Type)

	// событий не было - календарь не трогаем
	creates, updates, deletes := cal.calls()
	assert.Zero(t, creates+updates+deletes)
}

func TestDailyPassRepairsCalendar(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)

	// частично заведенные события дозаводятся дневным проходом
	order := testOrder(models.OrderOrdered)
	order.DeliveryDate = datePtr(now.AddDate(0, 0, 5))
	order.CalendarEventIDs = models.CalendarEventIDs{Delivery: "a"}

	repo := connectedRepo(order)
	cal := newFakeCalendar()
	e := New(repo, cal, clockAt(now, loc), nil)

	_, err := e.RunDaily(context.Background())
	require.NoError(t, err)

	creates, updates, _ := cal.calls()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, updates)
	assert.NotEmpty(t, repo.eventIDs[order.OrderID].Review)
}

func TestAlertingPassDoesNotTransition(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)

	order := testOrder(models.OrderOrdered)
	order.DeliveryDate = datePtr(time.Date(2025, 3, 7, 18, 0, 0, 0, loc))

	repo := newFakeRepo(order)
	e := New(repo, newFakeCalendar(), clockAt(now, loc), nil)

	sum, err := e.RunAlerting(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sum.Transitioned)
	assert.Empty(t, repo.statuses)
	assert.Empty(t, repo.logsOfType(models.ActivityStatusChanged))
	// а напоминание о скорой доставке есть
	require.Len(t, repo.notifications, 1)
	assert.Equal(t, models.ReminderDelivery, repo.notifications[0].Category)
}

func TestPassIsolatesOrderFailures(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)
	today := time.Date(2025, 3, 7, 0, 0, 0, 0, loc)

	bad := testOrder(models.OrderOrdered)
	bad.DeliveryDate = datePtr(today)
	good := testOrder(models.OrderOrdered)
	good.DeliveryDate = datePtr(today)

	repo := newFakeRepo(bad, good)
	repo.failUpdateStatus = map[models.OrderID]error{bad.OrderID: errors.New("boom")}
	e := New(repo, newFakeCalendar(), clockAt(now, loc), nil)

	sum, err := e.RunDaily(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Transitioned)
	assert.Equal(t, models.OrderDelivered, repo.statuses[good.OrderID])
}

func TestPassAbortsWithoutStorage(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)

	repo := newFakeRepo()
	repo.failLoad = errors.New("db unavailable")
	e := New(repo, newFakeCalendar(), clockAt(now, loc), nil)

	_, err := e.RunAlerting(context.Background())
	assert.Error(t, err)
	_, err = e.RunDaily(context.Background())
	assert.Error(t, err)
}

func TestPassStopsOnCancel(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)

	orders := make([]models.OrderItem, 3)
	for i := range orders {
		orders[i] = testOrder(models.OrderOrdered)
	}
	repo := newFakeRepo(orders...)
	e := New(repo, newFakeCalendar(), clockAt(now, loc), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.RunDaily(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
