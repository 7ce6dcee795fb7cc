package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus — статус выполнения execution.
//
// Жизненный цикл:
//
//	CREATED → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//
// Терминальные статусы финальны: из FAILED нет пути возобновления,
// новое trigger-событие создаёт новый execution.
type ExecutionStatus string

const (
	// ExecutionStatusCreated — запись создана, выполнение ещё не началось.
	ExecutionStatusCreated ExecutionStatus = "CREATED"

	// ExecutionStatusRunning — execution в процессе выполнения.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusSucceeded — все узлы выполнены успешно.
	ExecutionStatusSucceeded ExecutionStatus = "SUCCEEDED"

	// ExecutionStatusFailed — выполнение завершилось ошибкой.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSucceeded, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// Execution — один запуск workflow по trigger-событию.
//
// Создаётся один раз в начале запуска (идемпотентно по паре
// workflow_id + event_id) и мутируется ровно дважды: переход в RUNNING
// и терминальное обновление (SUCCEEDED с итоговым контекстом либо
// FAILED с деталями ошибки).
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// EventID — идемпотентный ключ trigger-события. Повторная доставка
	// того же события не создаёт второй записи.
	EventID string `json:"event_id"`

	// Status — текущий статус.
	Status ExecutionStatus `json:"status"`

	// Input — начальные данные trigger-события (например, payload формы).
	Input map[string]any `json:"input,omitempty"`

	// Output — итоговый контекст выполнения (только для SUCCEEDED).
	Output map[string]any `json:"output,omitempty"`

	// Error — текст ошибки (только для FAILED).
	Error string `json:"error,omitempty"`

	// ErrorStack — цепочка/стек ошибки для диагностики.
	ErrorStack string `json:"error_stack,omitempty"`

	// StartedAt — время создания записи.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время терминального обновления.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// IsFinished возвращает true, если execution завершён.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkRunning переводит execution в статус RUNNING.
func (e *Execution) MarkRunning() {
	e.Status = ExecutionStatusRunning
}

// MarkSucceeded переводит execution в SUCCEEDED с итоговым контекстом.
func (e *Execution) MarkSucceeded(output map[string]any) {
	now := time.Now()
	e.Status = ExecutionStatusSucceeded
	e.Output = output
	e.FinishedAt = &now
}

// MarkFailed переводит execution в FAILED с деталями ошибки.
func (e *Execution) MarkFailed(errMsg, errStack string) {
	now := time.Now()
	e.Status = ExecutionStatusFailed
	e.Error = errMsg
	e.ErrorStack = errStack
	e.FinishedAt = &now
}
