// Package common — errors.go определяет ошибки, общие для всех модулей сервиса.
// HTTP-слой по ним выбирает код ответа (см. httputil.WriteError),
// поэтому модули возвращают именно эти значения или оборачивают их через %w.
package common

import "errors"

// Ошибки бустеров (инвентарь, активация)
var (
	// ErrNoInventory — у пользователя нет свободных единиц бустера
	ErrNoInventory = errors.New("нет доступных бустеров этого типа")
	// ErrCatalogMissing — бустер не найден в каталоге
	ErrCatalogMissing = errors.New("бустер не найден в каталоге")
)

// Ошибки хранилища
var (
	// ErrPersistence — запись в БД не удалась
	ErrPersistence = errors.New("ошибка записи в хранилище")
	// ErrNotFound — запрошенная сущность не существует
	ErrNotFound = errors.New("не найдено")
)

// Ошибки запросов и авторизации
var (
	// ErrValidation — не хватает обязательного поля или значение некорректно
	ErrValidation = errors.New("некорректный запрос")
	// ErrUnauthorized — нет или неверный токен пользователя
	ErrUnauthorized = errors.New("требуется авторизация")
	// ErrInvalidSchedulerSecret — заголовок планировщика не совпал с настроенным секретом
	ErrInvalidSchedulerSecret = errors.New("неверный секрет планировщика")
	// ErrNotConfigured — не задана обязательная настройка окружения
	ErrNotConfigured = errors.New("сервис не настроен")
	// ErrRateLimited — слишком много запросов от пользователя
	ErrRateLimited = errors.New("слишком много запросов, подождите")
)
