// Package domain содержит модели предметной области Conveyor.
//
// Основные сущности:
//   - Workflow, Node, Connection — граф рабочего процесса (создаётся внешним редактором)
//   - Execution — один запуск workflow по trigger-событию
//   - Credential — метаданные учётных данных (секрет хранится отдельно)
//   - TriggerEvent — событие, инициирующее запуск
//
// Движок читает граф как есть и никогда его не изменяет.
package domain
