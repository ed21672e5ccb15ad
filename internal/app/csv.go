package app

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	usercontext "github.com/serg2014/refundtrack/internal/app/context"
	"github.com/serg2014/refundtrack/internal/app/models"
	"github.com/serg2014/refundtrack/internal/logger"
	"go.uber.org/zap"
)

const csvDateFormat = "2006-01-02"

var csvHeader = []string{
	"title", "shop", "mediator", "status", "order_date",
	"delivery_date", "refund_form_date", "remind_refund_date",
	"order_amount", "refund_amount",
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(csvDateFormat)
}

func parseDate(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(csvDateFormat, s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (a *App) exportOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := usercontext.GetUserID(r.Context())
		if err != nil {
			simpleError(w, http.StatusUnauthorized)
			return
		}
		orders, err := a.store.GetUserOrders(r.Context(), *userID)
		if err != nil {
			logger.Log.Error("failed GetUserOrders", zap.Error(err))
			simpleError(w, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			logger.Log.Error("failed csv write", zap.Error(err))
			return
		}
		for _, o := range orders {
			record := []string{
				o.Title, o.Shop, o.Mediator, string(o.Status),
				o.OrderDate.Format(csvDateFormat),
				formatDate(o.DeliveryDate),
				formatDate(o.RefundFormDate),
				formatDate(o.RemindRefundDate),
				strconv.FormatInt(o.OrderAmount, 10),
				strconv.FormatInt(o.RefundAmount, 10),
			}
			if err := cw.Write(record); err != nil {
				logger.Log.Error("failed csv write", zap.Error(err))
				return
			}
		}
		cw.Flush()
	}
}

// importOrders принимает csv в том же формате что и экспорт.
// календарь при импорте не трогаем, события появятся при правке заказа
func (a *App) importOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := usercontext.GetUserID(r.Context())
		if err != nil {
			simpleError(w, http.StatusUnauthorized)
			return
		}

		cr := csv.NewReader(r.Body)
		cr.FieldsPerRecord = len(csvHeader)
		records, err := cr.ReadAll()
		if err != nil {
			http.Error(w, fmt.Sprintf("bad csv: %v", err), http.StatusBadRequest)
			return
		}
		if len(records) > 0 && records[0][0] == csvHeader[0] {
			records = records[1:]
		}

		loc := a.clock.Location()
		imported := 0
		for i, record := range records {
			order, err := a.orderFromRecord(record, *userID, loc)
			if err != nil {
				http.Error(w, fmt.Sprintf("bad record %d: %v", i+1, err), http.StatusUnprocessableEntity)
				return
			}
			if err := a.store.CreateOrder(r.Context(), order); err != nil {
				logger.Log.Error("failed CreateOrder on import", zap.Error(err))
				simpleError(w, http.StatusInternalServerError)
				return
			}
			a.appendLog(r.Context(), models.ActivityLogEntry{
				OrderID:      order.OrderID,
				ActivityType: models.ActivityOrderCreated,
				Description:  "order imported from csv",
				NewValue:     string(order.Status),
				TriggeredBy:  models.TriggeredByUser,
			})
			imported++
		}

		writeJSON(w, http.StatusOK, map[string]int{"imported": imported})
	}
}

func (a *App) orderFromRecord(record []string, userID models.UserID, loc *time.Location) (*models.OrderItem, error) {
	status := models.OrderStatus(record[3])
	if status == "" {
		status = models.OrderOrdered
	}
	if !status.Valid() {
		return nil, fmt.Errorf("bad status %q", record[3])
	}

	orderDate := a.clock.Now()
	if d, err := parseDate(record[4], loc); err != nil {
		return nil, fmt.Errorf("bad order_date: %w", err)
	} else if d != nil {
		orderDate = *d
	}
	deliveryDate, err := parseDate(record[5], loc)
	if err != nil {
		return nil, fmt.Errorf("bad delivery_date: %w", err)
	}
	refundFormDate, err := parseDate(record[6], loc)
	if err != nil {
		return nil, fmt.Errorf("bad refund_form_date: %w", err)
	}
	remindRefundDate, err := parseDate(record[7], loc)
	if err != nil {
		return nil, fmt.Errorf("bad remind_refund_date: %w", err)
	}

	orderAmount, err := strconv.ParseInt(record[8], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad order_amount: %w", err)
	}
	refundAmount, err := strconv.ParseInt(record[9], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad refund_amount: %w", err)
	}

	if record[0] == "" {
		return nil, fmt.Errorf("empty title")
	}
	return &models.OrderItem{
		OrderID:          uuid.New(),
		UserID:           userID,
		Title:            record[0],
		Shop:             record[1],
		Mediator:         record[2],
		Status:           status,
		OrderDate:        orderDate,
		DeliveryDate:     deliveryDate,
		RefundFormDate:   refundFormDate,
		RemindRefundDate: remindRefundDate,
		OrderAmount:      orderAmount,
		RefundAmount:     refundAmount,
		UploadTime:       a.clock.Now(),
	}, nil
}
