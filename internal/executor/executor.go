package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/secrets"
	"github.com/shaiso/conveyor/internal/stepengine"
)

// PublishFunc публикует статус узла (loading|success|error).
// Fire-and-forget: ошибки доставки не прерывают выполнение.
type PublishFunc func(ctx context.Context, status domain.NodeStatus)

// Input — вход executor'а для одного узла.
type Input struct {
	// NodeID — идентификатор выполняемого узла.
	NodeID uuid.UUID

	// UserID — владелец workflow (для скоупинга credentials).
	UserID string

	// Config — сырая конфигурация узла из графа.
	Config map[string]any

	// Context — текущий контекст выполнения.
	Context *engine.Context

	// Steps — durable step runner, скоупленный на этот execution.
	Steps stepengine.Runner

	// Publish — публикация статуса этого узла.
	Publish PublishFunc
}

// Executor — контракт выполнения одного типа узла.
//
// Возвращаемый контекст равен входному плюс не более чем ключи, за
// которые отвечает этот узел; существующие ключи никогда не удаляются.
type Executor interface {
	Execute(ctx context.Context, in Input) (*engine.Context, error)
}

// CredentialSource — выборка credential по id, скоупленная владельцем.
type CredentialSource interface {
	GetCredential(ctx context.Context, id uuid.UUID, userID string) (*domain.Credential, error)
}

// Deps — зависимости executor'ов.
type Deps struct {
	// Credentials — источник метаданных credentials.
	Credentials CredentialSource

	// Secrets — хранилище значений секретов.
	Secrets secrets.Store

	// HTTPClient — клиент для исходящих запросов (подменяется в тестах).
	HTTPClient *http.Client

	// AIBaseURL — переопределение базового URL AI-провайдеров
	// (self-hosted шлюз или тесты); пустая строка — реальные API.
	AIBaseURL string

	// Logger — структурированный логгер.
	Logger *slog.Logger
}

const defaultHTTPTimeout = 30 * time.Second

func (d *Deps) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Registry — реестр executor'ов по типу узла.
//
// Строится один раз на старте процесса из закрытого множества
// поддерживаемых типов. Resolve неизвестного типа фатален для запуска:
// это означает, что в БД лежит узел с типом, которого текущая сборка
// не поддерживает, — такой запуск нужно прервать, а не пропустить узел.
type Registry struct {
	executors map[domain.NodeType]Executor
}

// NewRegistry создаёт реестр со всеми поддерживаемыми типами узлов.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		executors: map[domain.NodeType]Executor{
			domain.NodeTypeInitial:           &TriggerExecutor{},
			domain.NodeTypeManualTrigger:     &TriggerExecutor{},
			domain.NodeTypeGoogleFormTrigger: &TriggerExecutor{},
			domain.NodeTypeHTTPRequest:       NewHTTPRequestExecutor(deps),
			domain.NodeTypeOpenAI:            NewOpenAIExecutor(deps),
			domain.NodeTypeAnthropic:         NewAnthropicExecutor(deps),
			domain.NodeTypeGemini:            NewGeminiExecutor(deps),
			domain.NodeTypeDiscord:           NewDiscordExecutor(deps),
		},
	}
}

// Register добавляет или заменяет executor для типа узла.
func (r *Registry) Register(nodeType domain.NodeType, e Executor) {
	r.executors[nodeType] = e
}

// Resolve возвращает executor для типа узла.
func (r *Registry) Resolve(nodeType domain.NodeType) (Executor, error) {
	e, ok := r.executors[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
	}
	return e, nil
}
