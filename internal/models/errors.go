package models

import "errors"

var (
	// ErrTransport: сеть/соединение, лечится реконнектом.
	ErrTransport = errors.New("transport error")
	// ErrAuth: биржа отвергла логин, тоже лечится реконнектом с тем же бэкоффом.
	ErrAuth = errors.New("auth error")
	// ErrProtocol: битый или неожиданный payload, пишем в лог и выбрасываем.
	ErrProtocol = errors.New("protocol error")
	// ErrPersistence: ошибки записи/удаления снапшотов.
	ErrPersistence = errors.New("persistence error")

	ErrAccountNotFound = errors.New("account not found")
)
