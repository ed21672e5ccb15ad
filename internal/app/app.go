package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/serg2014/refundtrack/internal/app/storage"
	"github.com/serg2014/refundtrack/internal/calendar"
	"github.com/serg2014/refundtrack/internal/config"
	"github.com/serg2014/refundtrack/internal/engine"
)

type App struct {
	config *config.Config
	router *chi.Mux
	store  storage.Storager
	engine *engine.Engine
	sched  *engine.Scheduler
	clock  engine.Clock
}

func NewApp(cnf *config.Config) (*App, error) {
	s, err := storage.NewStorage(context.Background(), cnf.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create NewStorage: %w", err)
	}

	loc, err := time.LoadLocation(cnf.Timezone)
	if err != nil {
		return nil, fmt.Errorf("bad timezone: %w", err)
	}
	dailyAt, err := config.ParseDayTime(cnf.DailyPassTime)
	if err != nil {
		return nil, err
	}

	clock := engine.NewClock(loc)
	cal := calendar.NewHTTPClient(cnf.CalendarAPIURL, cnf.Timezone)
	eng := engine.New(s, cal, clock, engine.DedupBySeverity)
	sched := engine.NewScheduler(eng, cnf.AlertInterval, dailyAt, clock)

	return newApp(cnf, s, eng, sched, clock), nil
}

// newApp собирает App из готовых зависимостей, в тестах хранилище фейковое
func newApp(cnf *config.Config, s storage.Storager, eng *engine.Engine, sched *engine.Scheduler, clock engine.Clock) *App {
	app := &App{
		config: cnf,
		router: chi.NewRouter(),
		store:  s,
		engine: eng,
		sched:  sched,
		clock:  clock,
	}
	app.setRoute()
	return app
}

func (a *App) Address() string {
	return a.config.Address
}

func (a *App) GetRouter() *chi.Mux {
	return a.router
}

// RunScheduler блокируется до отмены контекста
func (a *App) RunScheduler(ctx context.Context) {
	a.sched.Run(ctx)
}
