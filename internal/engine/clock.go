package engine

import "time"

// Clock отдает "сейчас" в таймзоне приложения.
// интерфейс чтобы в тестах подменять время
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type realClock struct {
	loc *time.Location
}

func NewClock(loc *time.Location) Clock {
	return realClock{loc: loc}
}

func (c realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c realClock) Location() *time.Location {
	return c.loc
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	return startOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// daysUntil - целые дни между границами суток, отрицательное если date в прошлом
func daysUntil(now, date time.Time, loc *time.Location) int {
	from := startOfDay(now, loc)
	to := startOfDay(date, loc)
	return int(to.Sub(from) / (24 * time.Hour))
}

// sameDay - date попадает в [startOfDay(now), endOfDay(now)]
func sameDay(now, date time.Time, loc *time.Location) bool {
	d := date.In(loc)
	return !d.Before(startOfDay(now, loc)) && !d.After(endOfDay(now, loc))
}
