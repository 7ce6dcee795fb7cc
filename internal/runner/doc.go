// Package runner выполняет workflow от trigger-события до терминального
// статуса.
//
// Runner — центральный компонент движка, который:
//   - Идемпотентно создаёт запись execution по паре (workflow, event)
//   - Загружает граф и строит детерминированный порядок узлов
//   - Последовательно выполняет узлы, передавая контекст по цепочке
//   - Чекпоинтит результат каждого узла для durable replay
//   - Финализирует execution (SUCCEEDED/FAILED)
//
// Service оборачивает Runner потреблением очереди trigger-событий и
// polling fallback для подхвата незавершённых executions после рестарта.
package runner
