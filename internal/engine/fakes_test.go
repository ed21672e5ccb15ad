package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/serg2014/refundtrack/internal/app/models"
	"github.com/serg2014/refundtrack/internal/calendar"
)

type fakeClock struct {
	now time.Time
	loc *time.Location
}

func (c fakeClock) Now() time.Time           { return c.now.In(c.loc) }
func (c fakeClock) Location() *time.Location { return c.loc }

func clockAt(t time.Time, loc *time.Location) fakeClock {
	return fakeClock{now: t, loc: loc}
}

type fakeRepo struct {
	orders        models.Orders
	notifications []models.Notification
	logs          []models.ActivityLogEntry
	statuses      map[models.OrderID]models.OrderStatus
	eventIDs      map[models.OrderID]models.CalendarEventIDs
	settings      map[models.UserID]models.CalendarSettings

	failLoad         error
	failUpdateStatus map[models.OrderID]error
}

func newFakeRepo(orders ...models.OrderItem) *fakeRepo {
	return &fakeRepo{
		orders:   orders,
		statuses: make(map[models.OrderID]models.OrderStatus),
		eventIDs: make(map[models.OrderID]models.CalendarEventIDs),
		settings: make(map[models.UserID]models.CalendarSettings),
	}
}

func (r *fakeRepo) OrdersForProcessing(ctx context.Context) (models.Orders, error) {
	if r.failLoad != nil {
		return nil, r.failLoad
	}
	orders := make(models.Orders, len(r.orders))
	copy(orders, r.orders)
	return orders, nil
}

func (r *fakeRepo) UpdateOrderStatus(ctx context.Context, orderID models.OrderID, status models.OrderStatus) error {
	if err := r.failUpdateStatus[orderID]; err != nil {
		return err
	}
	r.statuses[orderID] = status
	return nil
}

func (r *fakeRepo) UpdateCalendarEventIDs(ctx context.Context, orderID models.OrderID, ids models.CalendarEventIDs) error {
	r.eventIDs[orderID] = ids
	return nil
}

func (r *fakeRepo) AppendActivityLog(ctx context.Context, entry models.ActivityLogEntry) error {
	r.logs = append(r.logs, entry)
	return nil
}

func (r *fakeRepo) NotificationExists(ctx context.Context, f NotificationFilter) (bool, error) {
	for _, n := range r.notifications {
		if n.OrderID == nil || *n.OrderID != f.OrderID {
			continue
		}
		if f.Type != nil && n.Type != *f.Type {
			continue
		}
		if f.Category != nil && n.Category != *f.Category {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (r *fakeRepo) InsertNotification(ctx context.Context, n models.Notification) error {
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *fakeRepo) CalendarSettings(ctx context.Context, userID models.UserID) (models.CalendarSettings, error) {
	return r.settings[userID], nil
}

func (r *fakeRepo) logsOfType(t models.ActivityType) []models.ActivityLogEntry {
	var res []models.ActivityLogEntry
	for _, l := range r.logs {
		if l.ActivityType == t {
			res = append(res, l)
		}
	}
	return res
}

type fakeCalendar struct {
	nextID  int
	events  map[string]calendar.Event
	creates int
	updates int
	deletes int

	failCreateTitle string
	failErr         error
	missing         map[string]bool
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		events:  make(map[string]calendar.Event),
		missing: make(map[string]bool),
	}
}

func (c *fakeCalendar) CreateEvent(ctx context.Context, creds calendar.Credentials, ev calendar.Event) (string, error) {
	c.creates++
	if c.failCreateTitle != "" && ev.Title == c.failCreateTitle {
		return "", c.failErr
	}
	c.nextID++
	id := fmt.Sprintf("ev-%d", c.nextID)
	c.events[id] = ev
	return id, nil
}

func (c *fakeCalendar) UpdateEvent(ctx context.Context, creds calendar.Credentials, eventID string, ev calendar.Event) error {
	c.updates++
	if c.missing[eventID] {
		return calendar.ErrNotFound
	}
	c.events[eventID] = ev
	return nil
}

func (c *fakeCalendar) DeleteEvent(ctx context.Context, creds calendar.Credentials, eventID string) error {
	c.deletes++
	if c.missing[eventID] {
		return calendar.ErrNotFound
	}
	delete(c.events, eventID)
	return nil
}

func (c *fakeCalendar) calls() (int, int, int) {
	return c.creates, c.updates, c.deletes
}
