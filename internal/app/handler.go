package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/serg2014/refundtrack/internal/app/auth"
	usercontext "github.com/serg2014/refundtrack/internal/app/context"
	"github.com/serg2014/refundtrack/internal/app/models"
	"github.com/serg2014/refundtrack/internal/app/storage"
	"github.com/serg2014/refundtrack/internal/engine"
	"github.com/serg2014/refundtrack/internal/logger"
	"go.uber.org/zap"
)

func (a *App) setRoute() {
	r := a.GetRouter()
	r.Use(auth.WithUserMiddleware)
	r.Use(logger.WithLogging)
	r.Use(gzipMiddleware)
	r.Post("/api/user/register", a.registerUser())
	r.Post("/api/user/login", a.authUser())

	r.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware)

		r.Route("/api/user", func(r chi.Router) {
			r.Post("/orders", a.createOrder())
			r.Get("/orders", a.getOrders())
			r.Get("/orders/export", a.exportOrders())
			r.Post("/orders/import", a.importOrders())
			r.Get("/orders/{orderID}", a.getOrder())
			r.Put("/orders/{orderID}", a.updateOrder())
			r.Delete("/orders/{orderID}", a.deleteOrder())

			r.Get("/notifications", a.getNotifications())
			r.Post("/notifications/{notificationID}/read", a.readNotification())
			r.Get("/dashboard", a.dashboard())
			r.Put("/calendar", a.setCalendar())
		})

		// ручной запуск проходов движка, тот же код что и по расписанию
		r.Route("/api/system/run", func(r chi.Router) {
			r.Post("/alerting", a.runPass(a.sched.TriggerAlerting))
			r.Post("/daily", a.runPass(a.sched.TriggerDaily))
			r.Post("/all", a.runAll())
		})
	})
}

func simpleError(w http.ResponseWriter, code int) {
	http.Error(w, http.StatusText(code), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	// порядок важен
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		logger.Log.Error("error encoding response", zap.Error(err))
	}
}

func (a *App) registerUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterUser
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			logger.Log.Debug("cannot decode request JSON body", zap.Error(err))
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Login == "" || req.Password == "" {
			http.Error(w, "empty login or password", http.StatusBadRequest)
			return
		}
		hashPassword := auth.SignPassword(req.Password)
		userIDPtr, err := a.store.CreateUser(r.Context(), req.Login, hashPassword)
		if err != nil {
			if errors.Is(err, storage.ErrUserExists) {
				http.Error(w, "user exists", http.StatusConflict)
				return
			}
			simpleError(w, http.StatusInternalServerError)
			return
		}
		setAuthCookie(*userIDPtr, w)
	}
}

func (a *App) authUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterUser
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			logger.Log.Debug("cannot decode request JSON body", zap.Error(err))
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Login == "" || req.Password == "" {
			http.Error(w, "empty login or password", http.StatusBadRequest)
			return
		}
		hashPassword := auth.SignPassword(req.Password)
		userIDPtr, err := a.store.GetUser(r.Context(), req.Login, hashPassword)
		if err != nil {
			if errors.Is(err, storage.ErrUserOrPassword) {
				simpleError(w, http.StatusUnauthorized)
				return
			}
			simpleError(w, http.StatusInternalServerError)
			return
		}
		setAuthCookie(*userIDPtr, w)
	}
}

func setAuthCookie(userID models.UserID, w http.ResponseWriter) {
	cookie := auth.CreateAuthCookie(userID)
	http.SetCookie(w, cookie)
}

type orderRequest struct {
	Title            string             `json:"title"`
	Shop             string             `json:"shop"`
	Mediator         string             `json:"mediator"`
	Status           models.OrderStatus `json:"status"`
	OrderDate        *time.Time         `json:"order_date"`
	DeliveryDate     *time.Time         `json:"delivery_date"`
	RefundFormDate   *time.Time         `json:"refund_form_date"`
	RemindRefundDate *time.Time         `json:"remind_refund_date"`
	OrderAmount      int64              `json:"order_amount"`
	RefundAmount     int64              `json:"refund_amount"`
}

func (a *App) createOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := usercontext.GetUserID(r.Context())
		if err != nil {
			simpleError(w, http.StatusUnauthorized)
			return
		}

		var req orderRequest
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			http.Error(w, "empty title", http.StatusBadRequest)
			return
		}
		if req.Status == "" {
			req.Status = models.OrderOrdered
		}
		if !req.Status.Valid() {
			http.Error(w, "bad status", http.StatusUnprocessableEntity)
			return
		}
		orderDate := a.clock.Now()
		if req.OrderDate != nil {
			orderDate = *req.OrderDate
		}

		order := &models.OrderItem{
			OrderID:          uuid.New(),
			UserID:           *userID,
			Title:            req.Title,
			Shop:             req.Shop,
			Mediator:         req.Mediator,
			Status:           req.Status,
			OrderDate:        orderDate,
			DeliveryDate:     req.DeliveryDate,
			RefundFormDate:   req.RefundFormDate,
			RemindRefundDate: req.RemindRefundDate,
			OrderAmount:      req.OrderAmount,
			RefundAmount:     req.RefundAmount,
			UploadTime:       a.clock.Now(),
		}
		if err := a.store.CreateOrder(r.Context(), order); err != nil {
			logger.Log.Error("failed CreateOrder", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
			return
		}
		a.appendLog(r.Context(), models.ActivityLogEntry{
			OrderID:      order.OrderID,
			ActivityType: models.ActivityOrderCreated,
			Description:  "order created",
			NewValue:     string(order.Status),
			TriggeredBy:  models.TriggeredByUser,
		})

		// календарь best-effort, ошибка не мешает созданию заказа
		if order.DeliveryDate != nil {
			if err := a.engine.ReconcileCalendar(r.Context(), order, engine.ActionUpsert); err != nil {
				logger.Log.Error("failed calendar sync",
					zap.String("order_id", order.OrderID.String()), zap.Error(err))
			}
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

func (a *App) getOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := usercontext.GetUserID(r.Context())
		if err != nil {
			simpleError(w, http.StatusUnauthorized)
			return
		}
		orders, err := a.store.GetUserOrders(r.Context(), *userID)
		if err != nil {
			logger.Log.Error("can not get orders", zap.Error(err), zap.String("user_id", userID.String()))
			simpleError(w, http.StatusInternalServerError)
			return
		}
		if len(orders) == 0 {
			simpleError(w, http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

func (a *App) orderFromRequest(r *http.Request) (*models.OrderItem, int) {
	userID, err := usercontext.GetUserID(r.Context())
	if err != nil {
		return nil, http.StatusUnauthorized
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		return nil, http.StatusBadRequest
	}
	order, err := a.store.GetOrder(r.Context(), *userID, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, http.StatusNotFound
		}
		logger.Log.Error("failed GetOrder", zap.Error(err))
		return nil, http.StatusInternalServerError
	}
	return order, 0
}

func (a *App) getOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, code := a.orderFromRequest(r)
		if code != 0 {
			simpleError(w, code)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (a *App) updateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, code := a.orderFromRequest(r)
		if code != 0 {
			simpleError(w, code)
			return
		}

		var req orderRequest
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Status != "" && !req.Status.Valid() {
			http.Error(w, "bad status", http.StatusUnprocessableEntity)
			return
		}

		oldStatus := order.Status
		datesChanged := !sameDate(order.DeliveryDate, req.DeliveryDate) ||
			!sameDate(order.RefundFormDate, req.RefundFormDate) ||
			!sameDate(order.RemindRefundDate, req.RemindRefundDate)

		if req.Title != "" {
			order.Title = req.Title
		}
		order.Shop = req.Shop
		order.Mediator = req.Mediator
		if req.Status != "" {
			order.Status = req.Status
		}
		if req.OrderDate != nil {
			order.OrderDate = *req.OrderDate
		}
		order.DeliveryDate = req.DeliveryDate
		order.RefundFormDate = req.RefundFormDate
		order.RemindRefundDate = req.RemindRefundDate
		order.OrderAmount = req.OrderAmount
		order.RefundAmount = req.RefundAmount

		if err := a.store.UpdateOrder(r.Context(), order); err != nil {
			logger.Log.Error("failed UpdateOrder", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
			return
		}

		switch {
		case order.Status != oldStatus:
			a.appendLog(r.Context(), models.ActivityLogEntry{
				OrderID:      order.OrderID,
				ActivityType: models.ActivityStatusChanged,
				Description:  "status changed by user",
				OldValue:     string(oldStatus),
				NewValue:     string(order.Status),
				TriggeredBy:  models.TriggeredByUser,
			})
		case datesChanged:
			a.appendLog(r.Context(), models.ActivityLogEntry{
				OrderID:      order.OrderID,
				ActivityType: models.ActivityDatesModified,
				Description:  "milestone dates changed",
				TriggeredBy:  models.TriggeredByUser,
			})
		default:
			a.appendLog(r.Context(), models.ActivityLogEntry{
				OrderID:      order.OrderID,
				ActivityType: models.ActivityOrderUpdated,
				Description:  "order updated",
				TriggeredBy:  models.TriggeredByUser,
			})
		}

		if order.Status != oldStatus {
			if err := a.engine.NotifyStatusChange(r.Context(), order, order.Status); err != nil {
				logger.Log.Error("failed status notification", zap.Error(err))
			}
		}

		// даты поменялись - двигаем события в календаре, best-effort.
		// очищенная дата доставки внутри превращается в удаление событий
		if datesChanged {
			if err := a.engine.ReconcileCalendar(r.Context(), order, engine.ActionUpsert); err != nil {
				logger.Log.Error("failed calendar sync",
					zap.String("order_id", order.OrderID.String()), zap.Error(err))
			}
		}

		writeJSON(w, http.StatusOK, order)
	}
}

func (a *App) deleteOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, code := a.orderFromRequest(r)
		if code != 0 {
			simpleError(w, code)
			return
		}

		// сначала каскад во внешний календарь, потом локальное удаление
		if err := a.engine.ReconcileCalendar(r.Context(), order, engine.ActionDelete); err != nil {
			logger.Log.Error("failed calendar cleanup",
				zap.String("order_id", order.OrderID.String()), zap.Error(err))
		}
		if err := a.store.DeleteOrder(r.Context(), order.UserID, order.OrderID); err != nil {
			logger.Log.Error("failed DeleteOrder", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *App) getNotifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := usercontext.GetUserID(r.Context())
		if err != nil {
			simpleError(w, http.StatusUnauthorized)
			return
		}
		notifications, err := a.store.GetNotifications(r.Context(), *userID)
		if err != nil {
			logger.Log.Error("failed GetNotifications", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, notifications)
	}
}

func (a *App) readNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := usercontext.GetUserID(r.Context())
		if err != nil {
			simpleError(w, http.StatusUnauthorized)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "notificationID"))
		if err != nil {
			simpleError(w, http.StatusBadRequest)
			return
		}
		err = a.store.MarkNotificationRead(r.Context(), *userID, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotificationNotFound) {
				simpleError(w, http.StatusNotFound)
				return
			}
			logger.Log.Error("failed MarkNotificationRead", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
			return
		}
	}
}

func (a *App) dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := usercontext.GetUserID(r.Context())
		if err != nil {
			simpleError(w, http.StatusUnauthorized)
			return
		}
		stats, err := a.store.DashboardStats(r.Context(), *userID)
		if err != nil {
			logger.Log.Error("failed DashboardStats", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (a *App) setCalendar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := usercontext.GetUserID(r.Context())
		if err != nil {
			simpleError(w, http.StatusUnauthorized)
			return
		}
		var req models.CalendarSettings
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := a.store.SetCalendarSettings(r.Context(), *userID, req); err != nil {
			logger.Log.Error("failed SetCalendarSettings", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
			return
		}
	}
}

func (a *App) runPass(trigger func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := trigger(r.Context())
		if err != nil {
			if errors.Is(err, engine.ErrPassRunning) {
				simpleError(w, http.StatusConflict)
				return
			}
			simpleError(w, http.StatusInternalServerError)
			return
		}
	}
}

func (a *App) runAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, trigger := range []func(ctx context.Context) error{
			a.sched.TriggerAlerting,
			a.sched.TriggerDaily,
		} {
			err := trigger(r.Context())
			if err != nil {
				if errors.Is(err, engine.ErrPassRunning) {
					simpleError(w, http.StatusConflict)
					return
				}
				simpleError(w, http.StatusInternalServerError)
				return
			}
		}
	}
}

// журнал не должен ронять основное действие
func (a *App) appendLog(ctx context.Context, entry models.ActivityLogEntry) {
	if err := a.store.AppendActivityLog(ctx, entry); err != nil {
		logger.Log.Error("failed AppendActivityLog",
			zap.String("order_id", entry.OrderID.String()), zap.Error(err))
	}
}
