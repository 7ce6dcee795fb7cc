package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Ошибки упорядочивания графа.
var (
	// ErrCyclicGraph — соединения образуют цикл.
	ErrCyclicGraph = errors.New("workflow graph contains a cycle")

	// ErrUnknownEndpoint — соединение ссылается на несуществующий узел.
	ErrUnknownEndpoint = errors.New("connection references unknown node")

	// ErrEmptyGraph — в графе нет узлов.
	ErrEmptyGraph = errors.New("workflow graph has no nodes")
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")
)

// CycleError — ошибка с деталями обнаруженного цикла.
//
// Remaining содержит узлы, которые не удалось упорядочить (каждый из
// них лежит на цикле либо достижим только через цикл).
type CycleError struct {
	Remaining []uuid.UUID
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	return fmt.Sprintf("workflow graph contains a cycle (%d unorderable nodes)", len(e.Remaining))
}

// Unwrap возвращает ErrCyclicGraph для errors.Is.
func (e *CycleError) Unwrap() error {
	return ErrCyclicGraph
}
