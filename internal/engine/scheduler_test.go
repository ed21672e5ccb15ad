package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serg2014/refundtrack/internal/app/models"
	"github.com/serg2014/refundtrack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingRepo держит проход внутри пока не закроют release
type blockingRepo struct {
	*fakeRepo
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingRepo) OrdersForProcessing(ctx context.Context) (models.Orders, error) {
	r.once.Do(func() { close(r.entered) })
	<-r.release
	return r.fakeRepo.OrdersForProcessing(ctx)
}

func TestSchedulerSkipsOverlappingPass(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)

	repo := &blockingRepo{
		fakeRepo: newFakeRepo(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	e := New(repo, newFakeCalendar(), clockAt(now, loc), nil)
	s := NewScheduler(e, time.Hour, config.DayTime{Hour: 8}, clockAt(now, loc))

	done := make(chan error)
	go func() {
		done <- s.TriggerAlerting(context.Background())
	}()
	<-repo.entered

	// второй запуск пока идет первый - пропускается, не ставится в очередь
	err := s.TriggerAlerting(context.Background())
	assert.ErrorIs(t, err, ErrPassRunning)

	// дневной проход держит свой флаг отдельно
	close(repo.release)
	require.NoError(t, <-done)
	require.NoError(t, s.TriggerDaily(context.Background()))

	// после завершения можно запускать снова
	require.NoError(t, s.TriggerAlerting(context.Background()))
}

func TestSchedulerNextDaily(t *testing.T) {
	loc := berlin(t)
	e := New(newFakeRepo(), newFakeCalendar(), clockAt(time.Now(), loc), nil)

	t.Run("today if still ahead", func(t *testing.T) {
		now := time.Date(2025, 3, 7, 6, 30, 0, 0, loc)
		s := NewScheduler(e, time.Hour, config.DayTime{Hour: 8}, clockAt(now, loc))
		assert.Equal(t, time.Date(2025, 3, 7, 8, 0, 0, 0, loc), s.nextDaily())
	})

	t.Run("tomorrow if already passed", func(t *testing.T) {
		now := time.Date(2025, 3, 7, 10, 0, 0, 0, loc)
		s := NewScheduler(e, time.Hour, config.DayTime{Hour: 8}, clockAt(now, loc))
		assert.Equal(t, time.Date(2025, 3, 8, 8, 0, 0, 0, loc), s.nextDaily())
	})

	t.Run("exactly now means tomorrow", func(t *testing.T) {
		now := time.Date(2025, 3, 7, 8, 0, 0, 0, loc)
		s := NewScheduler(e, time.Hour, config.DayTime{Hour: 8}, clockAt(now, loc))
		assert.Equal(t, time.Date(2025, 3, 8, 8, 0, 0, 0, loc), s.nextDaily())
	})
}

type panicRepo struct {
	*fakeRepo
}

func (r *panicRepo) OrdersForProcessing(ctx context.Context) (models.Orders, error) {
	panic("boom")
}

func TestSchedulerSurvivesPanic(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)

	e := New(&panicRepo{newFakeRepo()}, newFakeCalendar(), clockAt(now, loc), nil)
	s := NewScheduler(e, time.Hour, config.DayTime{Hour: 8}, clockAt(now, loc))

	assert.NotPanics(t, func() {
		_ = s.TriggerDaily(context.Background())
	})
	// флаг снят, следующий запуск возможен
	err := s.TriggerDaily(context.Background())
	assert.NotErrorIs(t, err, ErrPassRunning)
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)

	e := New(newFakeRepo(), newFakeCalendar(), clockAt(now, loc), nil)
	s := NewScheduler(e, time.Hour, config.DayTime{Hour: 8}, clockAt(now, loc))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
