package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/runner"
)

// WorkflowRepo — репозиторий для работы с workflows, nodes и connections.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// GetByID возвращает workflow по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT id, user_id, name
		FROM workflows
		WHERE id = $1
	`
	var workflow domain.Workflow
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&workflow.ID,
		&workflow.UserID,
		&workflow.Name,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow by id: %w", err)
	}
	return &workflow, nil
}

// GetWorkflowGraph возвращает граф workflow: узлы в порядке создания,
// соединения и владельца. Реализует runner.GraphStore.
func (r *WorkflowRepo) GetWorkflowGraph(ctx context.Context, workflowID uuid.UUID) (*domain.WorkflowGraph, error) {
	workflow, err := r.GetByID(ctx, workflowID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", runner.ErrWorkflowNotFound, workflowID)
		}
		return nil, err
	}

	graph := &domain.WorkflowGraph{
		WorkflowID:  workflow.ID,
		OwnerUserID: workflow.UserID,
	}

	// Порядок создания узлов задаёт tie-break при топологической
	// сортировке, поэтому ORDER BY created_at обязателен.
	nodesQuery := `
		SELECT id, workflow_id, type, name, config
		FROM nodes
		WHERE workflow_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, nodesQuery, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var node domain.Node
		var name *string
		var configJSON []byte
		if err := rows.Scan(&node.ID, &node.WorkflowID, &node.Type, &name, &configJSON); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		if name != nil {
			node.Name = *name
		}
		if configJSON != nil {
			if err := json.Unmarshal(configJSON, &node.Config); err != nil {
				return nil, fmt.Errorf("unmarshal node config: %w", err)
			}
		}
		graph.Nodes = append(graph.Nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	connectionsQuery := `
		SELECT id, from_node_id, to_node_id, from_output, to_input
		FROM connections
		WHERE workflow_id = $1
		ORDER BY created_at ASC, id ASC
	`
	connRows, err := r.pool.Query(ctx, connectionsQuery, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer connRows.Close()

	for connRows.Next() {
		var connection domain.Connection
		if err := connRows.Scan(
			&connection.ID,
			&connection.FromNodeID,
			&connection.ToNodeID,
			&connection.FromOutput,
			&connection.ToInput,
		); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		graph.Connections = append(graph.Connections, connection)
	}
	if err := connRows.Err(); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	return graph, nil
}
