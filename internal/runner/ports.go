package runner

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shaiso/conveyor/internal/domain"
)

// ErrWorkflowNotFound — workflow с таким id не существует.
// Фатально для execution: повтор ничего не изменит.
var ErrWorkflowNotFound = errors.New("workflow not found")

// GraphStore — загрузка графа workflow.
type GraphStore interface {
	// GetWorkflowGraph возвращает узлы, соединения и владельца workflow.
	// Отсутствующий workflow — ErrWorkflowNotFound.
	GetWorkflowGraph(ctx context.Context, workflowID uuid.UUID) (*domain.WorkflowGraph, error)
}

// ExecutionStore — персистентность executions.
type ExecutionStore interface {
	// CreateIdempotent создаёт запись execution, если записи с такой
	// парой (workflow_id, event_id) ещё нет. Возвращает актуальную
	// запись и признак того, была ли она создана этим вызовом.
	CreateIdempotent(ctx context.Context, execution *domain.Execution) (*domain.Execution, bool, error)

	// Update сохраняет изменённые поля execution.
	Update(ctx context.Context, execution *domain.Execution) error
}

// StatusPublisher — публикация статусов узлов.
//
// Канал fire-and-forget: ошибка публикации логируется и считается
// метрикой, но никогда не влияет на выполнение workflow.
type StatusPublisher interface {
	PublishNodeStatus(ctx context.Context, update domain.NodeStatusUpdate) error
}

// NopStatusPublisher — заглушка StatusPublisher.
type NopStatusPublisher struct{}

// PublishNodeStatus ничего не делает.
func (NopStatusPublisher) PublishNodeStatus(context.Context, domain.NodeStatusUpdate) error {
	return nil
}
