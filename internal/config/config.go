package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Address        string        `env:"RUN_ADDRESS"`
	DatabaseDSN    string        `env:"DATABASE_URI"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	AlertInterval  time.Duration `env:"ALERT_INTERVAL" envDefault:"1h"`
	DailyPassTime  string        `env:"DAILY_PASS_TIME" envDefault:"08:00"`
	Timezone       string        `env:"TIMEZONE" envDefault:"Europe/Berlin"`
	CalendarAPIURL string        `env:"CALENDAR_API_URL" envDefault:"https://www.googleapis.com/calendar/v3"`
}

func NewConfig() (*Config, error) {
	var cfg Config

	flag.StringVar(&cfg.Address, "a", "", "server address")
	flag.StringVar(&cfg.DatabaseDSN, "d", "", "database dsn")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")
	flag.StringVar(&cfg.DailyPassTime, "t", "08:00", "daily pass time HH:MM")
	flag.StringVar(&cfg.Timezone, "z", "Europe/Berlin", "display timezone")
	flag.Parse()

	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	if cfg.Address == "" {
		return nil, errors.New("server address is required")
	}
	_, port, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("bad format, use host:port: %w", err)
	}
	_, err = strconv.ParseUint(port, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("port required only digest: %w", err)
	}

	if _, err := ParseDayTime(cfg.DailyPassTime); err != nil {
		return nil, err
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("bad timezone: %w", err)
	}
	if cfg.AlertInterval <= 0 {
		return nil, errors.New("alert interval must be positive")
	}
	return &cfg, nil
}

type DayTime struct {
	Hour   int
	Minute int
}

// ParseDayTime разбирает "HH:MM"
func ParseDayTime(s string) (DayTime, error) {
	var d DayTime
	_, err := fmt.Sscanf(s, "%d:%d", &d.Hour, &d.Minute)
	if err != nil {
		return d, fmt.Errorf("bad daily pass time, use HH:MM: %w", err)
	}
	if d.Hour < 0 || d.Hour > 23 || d.Minute < 0 || d.Minute > 59 {
		return d, errors.New("bad daily pass time, use HH:MM")
	}
	return d, nil
}
