// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: источник текущего времени, сравнение счёта, склонения.
package common

import (
	"time"
)

// Clock — источник «текущего времени».
// Все плановые операции ветвятся по времени, поэтому сервисы получают Clock
// снаружи, а тесты подставляют FixedClock.
type Clock interface {
	Now() time.Time
}

// SystemClock возвращает настоящее время в UTC.
type SystemClock struct{}

// Now реализует Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock всегда возвращает одно и то же время. Используется в тестах.
type FixedClock struct {
	T time.Time
}

// Now реализует Clock.
func (c FixedClock) Now() time.Time {
	return c.T
}

// Outcome сравнивает два счёта.
//
// Возвращает:
//   - 1, если home > away (победа хозяев)
//   - -1, если home < away (победа гостей)
//   - 0 при ничьей
func Outcome(home, away int) int {
	switch {
	case home > away:
		return 1
	case home < away:
		return -1
	default:
		return 0
	}
}

// Days переводит количество дней в time.Duration.
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// LoadLocation загружает часовой пояс по имени.
// Если не удалось — возвращает UTC, чтобы планировщик всё равно запустился.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
