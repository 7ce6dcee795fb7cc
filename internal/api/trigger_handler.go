package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/conveyor/internal/domain"
)

// TriggerWorkflow ставит ручной запуск workflow в очередь движка.
// POST /api/v1/workflows/{id}/trigger
//
// Ответ 202: событие принято, выполнение асинхронно. Повтор запроса с
// тем же event_id не создаёт второй execution.
func (h *Handler) TriggerWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	// Проверяем, что workflow существует, до публикации события.
	if _, err := h.workflowRepo.GetByID(r.Context(), workflowID); HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	eventID := req.EventID
	if eventID == "" {
		eventID = uuid.New().String()
	}

	event := domain.TriggerEvent{
		WorkflowID:  workflowID,
		EventID:     eventID,
		InitialData: req.Data,
	}

	if err := h.publisher.PublishTriggerEvent(r.Context(), event); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("workflow triggered",
		"workflow_id", workflowID,
		"event_id", eventID,
	)

	JSON(w, http.StatusAccepted, DataResponse{Data: TriggerResponse{
		WorkflowID: workflowID,
		EventID:    eventID,
		Accepted:   true,
	}})
}

// FormWebhook принимает отправку формы и запускает workflow.
// POST /api/v1/webhooks/forms/{workflowId}
//
// Payload формы целиком кладётся в контекст выполнения под ключом
// "form". Идемпотентный ключ берётся из заголовка X-Event-Id (повторная
// доставка webhook'а с тем же ключом — no-op); без заголовка каждая
// доставка порождает новый execution.
func (h *Handler) FormWebhook(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("workflowId"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid form payload")
		return
	}

	if _, err := h.workflowRepo.GetByID(r.Context(), workflowID); HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	eventID := r.Header.Get("X-Event-Id")
	if eventID == "" {
		eventID = uuid.New().String()
	}

	event := domain.TriggerEvent{
		WorkflowID:  workflowID,
		EventID:     eventID,
		InitialData: map[string]any{"form": payload},
	}

	if err := h.publisher.PublishTriggerEvent(r.Context(), event); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("form webhook accepted",
		"workflow_id", workflowID,
		"event_id", eventID,
	)

	JSON(w, http.StatusAccepted, DataResponse{Data: TriggerResponse{
		WorkflowID: workflowID,
		EventID:    eventID,
		Accepted:   true,
	}})
}
