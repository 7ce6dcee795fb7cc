package domain

import "github.com/google/uuid"

// TriggerEvent — событие, инициирующее запуск workflow.
//
// Источники: ручной запуск из редактора, webhook формы, API.
// EventID служит идемпотентным ключом для Execution: повторная
// доставка одного события не порождает второй запуск.
type TriggerEvent struct {
	// WorkflowID — какой workflow запустить.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// EventID — идемпотентный ключ события.
	EventID string `json:"event_id"`

	// InitialData — начальные данные для контекста выполнения
	// (например, payload отправленной формы).
	InitialData map[string]any `json:"initial_data,omitempty"`
}
