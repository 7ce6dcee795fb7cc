package executor

import (
	"context"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
)

// TriggerExecutor — executor trigger-узлов (INITIAL, MANUAL_TRIGGER,
// GOOGLE_FORM_TRIGGER).
//
// Начальные данные события уже лежат в контексте к моменту запуска,
// поэтому trigger-узел ничего не делает: публикует статусы и передаёт
// контекст дальше без изменений.
type TriggerExecutor struct{}

// Execute публикует loading/success и возвращает контекст как есть.
func (e *TriggerExecutor) Execute(ctx context.Context, in Input) (*engine.Context, error) {
	in.Publish(ctx, domain.NodeStatusLoading)
	in.Publish(ctx, domain.NodeStatusSuccess)
	return in.Context, nil
}
