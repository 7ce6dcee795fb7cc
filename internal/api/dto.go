package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/conveyor/internal/domain"
)

// Trigger DTOs

// TriggerRequest — запрос на ручной запуск workflow.
type TriggerRequest struct {
	// EventID — идемпотентный ключ запуска. Если не задан, генерируется
	// новый (каждый вызов порождает отдельный execution).
	EventID string `json:"event_id,omitempty"`

	// Data — начальные данные контекста выполнения.
	Data map[string]any `json:"data,omitempty"`
}

// TriggerResponse — ответ на принятое trigger-событие.
type TriggerResponse struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
	EventID    string    `json:"event_id"`
	Accepted   bool      `json:"accepted"`
}

// Execution DTOs

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ID         uuid.UUID      `json:"id"`
	WorkflowID uuid.UUID      `json:"workflow_id"`
	EventID    string         `json:"event_id"`
	Status     string         `json:"status"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:         e.ID,
		WorkflowID: e.WorkflowID,
		EventID:    e.EventID,
		Status:     string(e.Status),
		Input:      e.Input,
		Output:     e.Output,
		Error:      e.Error,
		StartedAt:  e.StartedAt,
		FinishedAt: e.FinishedAt,
	}
}

// Credential DTOs

// CreateCredentialRequest — запрос на создание credential.
// Secret принимается один раз при создании и никогда не возвращается.
type CreateCredentialRequest struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// CredentialResponse — ответ с credential (без значения секрета).
type CredentialResponse struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CredentialFromDomain конвертирует domain.Credential в CredentialResponse.
func CredentialFromDomain(c domain.Credential) CredentialResponse {
	return CredentialResponse{
		ID:        c.ID,
		Type:      string(c.Type),
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
	}
}
