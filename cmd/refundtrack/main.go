package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/serg2014/refundtrack/internal/app"
	"github.com/serg2014/refundtrack/internal/config"
	"github.com/serg2014/refundtrack/internal/logger"
	"go.uber.org/zap"
)

func main() {
	cnf, err := config.NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(cnf.LogLevel); err != nil {
		log.Fatal(err)
	}
	a, err := app.NewApp(cnf)
	if err != nil {
		logger.Log.Fatal("error NewApp", zap.Error(err))
	}

	runServer(a.Address(), a.GetRouter(), a.RunScheduler)
}

func runServer(address string, h http.Handler, scheduler func(ctx context.Context)) {
	srv := http.Server{
		Addr:    address,
		Handler: h,
	}

	var wg sync.WaitGroup
	stopChannel := make(chan struct{})

	// движок жизненного цикла заказов работает рядом с http сервером.
	// контекст отменяем при остановке сервера, текущий заказ дорабатывает
	schedCtx, schedCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler(schedCtx)
		logger.Log.Info("Stop scheduler goroutine")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		// создаем контекст, который будет отменен при получении сигнала
		ctxS, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		select {
		// 	ждем сигнала от ОС
		case <-ctxS.Done():
			logger.Log.Info("catch signal")
		// ждем закрытия канала
		case <-stopChannel:
			logger.Log.Info("stop")
		}

		// даем 5 секунд на завершение
		// TODO время в конфиг
		ctxT, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxT); err != nil {
			logger.Log.Info("Server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Log.Info(fmt.Sprintf("Start server on %s", address))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Panic("error in ListenAndServe", zap.Error(err))
	}

	close(stopChannel)
	schedCancel()
	wg.Wait()
	logger.Log.Info("Server is shutdown")
}
