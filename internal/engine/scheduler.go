package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/serg2014/refundtrack/internal/config"
	"github.com/serg2014/refundtrack/internal/logger"
	"go.uber.org/zap"
)

var ErrPassRunning = errors.New("pass already running")

// стартовый проход через несколько секунд после запуска,
// только напоминания - чтобы рестарт-петля не щелкала статусами
const startupDelay = 5 * time.Second

// Scheduler владеет расписанием и флагами "проход уже идет".
// конструируется один раз при старте, зависимости через New
type Scheduler struct {
	engine        *Engine
	alertInterval time.Duration
	dailyAt       config.DayTime
	clock         Clock

	alertRunning atomic.Bool
	dailyRunning atomic.Bool
}

func NewScheduler(e *Engine, alertInterval time.Duration, dailyAt config.DayTime, clock Clock) *Scheduler {
	return &Scheduler{
		engine:        e,
		alertInterval: alertInterval,
		dailyAt:       dailyAt,
		clock:         clock,
	}
}

// Run блокируется до отмены контекста
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-time.After(startupDelay):
			s.triggerAlerting(ctx)
		case <-ctx.Done():
			return
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.alertInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.triggerAlerting(ctx)
			case <-ctx.Done():
				logger.Log.Info("stop alerting schedule")
				return
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			wait := time.Until(s.nextDaily())
			select {
			case <-time.After(wait):
				s.triggerDaily(ctx)
			case <-ctx.Done():
				logger.Log.Info("stop daily schedule")
				return
			}
		}
	}()

	wg.Wait()
}

// nextDaily - ближайшее наступление dailyAt в таймзоне приложения
func (s *Scheduler) nextDaily() time.Time {
	now := s.clock.Now()
	loc := s.clock.Location()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.dailyAt.Hour, s.dailyAt.Minute, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// TriggerAlerting запускает частый проход. ErrPassRunning если он уже идет
// (новый запуск пропускается, не ставится в очередь)
func (s *Scheduler) TriggerAlerting(ctx context.Context) error {
	if !s.alertRunning.CompareAndSwap(false, true) {
		return ErrPassRunning
	}
	defer s.alertRunning.Store(false)
	defer recoverPass("alerting")

	sum, err := s.engine.RunAlerting(ctx)
	logSummary("alerting", sum, err)
	return err
}

// TriggerDaily запускает дневной проход
func (s *Scheduler) TriggerDaily(ctx context.Context) error {
	if !s.dailyRunning.CompareAndSwap(false, true) {
		return ErrPassRunning
	}
	defer s.dailyRunning.Store(false)
	defer recoverPass("daily")

	sum, err := s.engine.RunDaily(ctx)
	logSummary("daily", sum, err)
	return err
}

func (s *Scheduler) triggerAlerting(ctx context.Context) {
	if err := s.TriggerAlerting(ctx); errors.Is(err, ErrPassRunning) {
		logger.Log.Warn("alerting pass still running, skip trigger")
	}
}

func (s *Scheduler) triggerDaily(ctx context.Context) {
	if err := s.TriggerDaily(ctx); errors.Is(err, ErrPassRunning) {
		logger.Log.Warn("daily pass still running, skip trigger")
	}
}

// последняя линия обороны, планировщик не должен умирать
func recoverPass(name string) {
	if r := recover(); r != nil {
		logger.Log.Error("panic in pass", zap.String("pass", name), zap.Any("panic", r))
	}
}

func logSummary(name string, sum PassSummary, err error) {
	if err != nil {
		logger.Log.Error("pass failed", zap.String("pass", name), zap.Error(err))
		return
	}
	logger.Log.Info("pass done",
		zap.String("pass", name),
		zap.Int("processed", sum.Processed),
		zap.Int("transitioned", sum.Transitioned),
		zap.Int("notified", sum.Notified),
		zap.Int("failed", sum.Failed),
	)
}
