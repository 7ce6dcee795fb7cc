// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go            — Handler с DI (репозитории, publisher, logger)
//   - routes.go             — регистрация маршрутов
//   - middleware.go         — middleware (logging, recovery)
//   - response.go           — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                — Data Transfer Objects (request/response)
//   - trigger_handler.go    — запуск workflow (ручной и webhook формы)
//   - execution_handler.go  — чтение executions
//   - credential_handler.go — управление credentials
//
// API принимает trigger-события и отдаёт историю executions; выполнение
// workflow живёт в engine-сервисе и общается с API только через очередь.
package api
