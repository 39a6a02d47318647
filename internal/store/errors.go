package store

import "errors"

var (
	// ErrConflict транзакция проиграла конкурентной транзакции и была отменена.
	// Повтор безопасен: никаких частичных записей не осталось.
	ErrConflict = errors.New("transaction conflict")

	// ErrNotFound изменяемая строка не существует
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey нарушено ограничение уникальности
	ErrDuplicateKey = errors.New("duplicate key")
)
