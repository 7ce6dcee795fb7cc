package domain

import (
	"time"

	"github.com/google/uuid"
)

// NodeStatusUpdate — событие смены статуса узла для live-трансляции
// в UI. Публикуется в канал, маршрутизируемый по типу узла.
type NodeStatusUpdate struct {
	WorkflowID  uuid.UUID  `json:"workflow_id"`
	ExecutionID uuid.UUID  `json:"execution_id"`
	NodeID      uuid.UUID  `json:"node_id"`
	NodeType    NodeType   `json:"node_type"`
	Status      NodeStatus `json:"status"`
	At          time.Time  `json:"at"`
}
