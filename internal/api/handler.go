package api

import (
	"log/slog"

	"github.com/shaiso/conveyor/internal/mq"
	"github.com/shaiso/conveyor/internal/repo"
	"github.com/shaiso/conveyor/internal/secrets"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflowRepo   *repo.WorkflowRepo
	executionRepo  *repo.ExecutionRepo
	credentialRepo *repo.CredentialRepo
	secrets        secrets.Store
	publisher      *mq.Publisher
	logger         *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	WorkflowRepo   *repo.WorkflowRepo
	ExecutionRepo  *repo.ExecutionRepo
	CredentialRepo *repo.CredentialRepo
	Secrets        secrets.Store
	Publisher      *mq.Publisher
	Logger         *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		workflowRepo:   cfg.WorkflowRepo,
		executionRepo:  cfg.ExecutionRepo,
		credentialRepo: cfg.CredentialRepo,
		secrets:        cfg.Secrets,
		publisher:      cfg.Publisher,
		logger:         cfg.Logger,
	}
}
