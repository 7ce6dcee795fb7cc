package domain

import (
	"github.com/google/uuid"
)

// NodeType — тип узла workflow.
//
// Закрытое множество: узел с типом вне этого списка не может быть
// выполнен текущей сборкой (это ошибка целостности данных).
type NodeType string

const (
	// NodeTypeInitial — узел-заглушка, создаётся вместе с workflow.
	NodeTypeInitial NodeType = "INITIAL"

	// NodeTypeManualTrigger — ручной запуск из редактора.
	NodeTypeManualTrigger NodeType = "MANUAL_TRIGGER"

	// NodeTypeGoogleFormTrigger — запуск по отправке формы (webhook).
	NodeTypeGoogleFormTrigger NodeType = "GOOGLE_FORM_TRIGGER"

	// NodeTypeHTTPRequest — произвольный HTTP-запрос.
	NodeTypeHTTPRequest NodeType = "HTTP_REQUEST"

	// NodeTypeOpenAI — вызов OpenAI chat completions.
	NodeTypeOpenAI NodeType = "OPENAI"

	// NodeTypeAnthropic — вызов Anthropic messages API.
	NodeTypeAnthropic NodeType = "ANTHROPIC"

	// NodeTypeGemini — вызов Google Gemini generateContent.
	NodeTypeGemini NodeType = "GEMINI"

	// NodeTypeDiscord — отправка сообщения в Discord webhook.
	NodeTypeDiscord NodeType = "DISCORD"
)

// NodeTypes — все поддерживаемые типы узлов.
var NodeTypes = []NodeType{
	NodeTypeInitial,
	NodeTypeManualTrigger,
	NodeTypeGoogleFormTrigger,
	NodeTypeHTTPRequest,
	NodeTypeOpenAI,
	NodeTypeAnthropic,
	NodeTypeGemini,
	NodeTypeDiscord,
}

// IsValid проверяет, что тип узла входит в закрытое множество.
func (t NodeType) IsValid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsTrigger возвращает true для узлов-триггеров (точек входа).
func (t NodeType) IsTrigger() bool {
	switch t {
	case NodeTypeInitial, NodeTypeManualTrigger, NodeTypeGoogleFormTrigger:
		return true
	default:
		return false
	}
}

// NodeStatus — статус выполнения узла для live-трансляции в UI.
type NodeStatus string

const (
	// NodeStatusLoading — executor начал работу над узлом.
	NodeStatusLoading NodeStatus = "loading"

	// NodeStatusSuccess — узел выполнен успешно.
	NodeStatusSuccess NodeStatus = "success"

	// NodeStatusError — узел завершился ошибкой.
	NodeStatusError NodeStatus = "error"
)

// Node — один типизированный шаг в графе workflow.
//
// Config специфичен для типа узла и валидируется его executor'ом,
// а не движком. Для движка узел read-only.
type Node struct {
	// ID — уникальный идентификатор узла.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на родительский workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Type — тип узла, выбирает executor.
	Type NodeType `json:"type"`

	// Name — человекочитаемое имя (из редактора).
	Name string `json:"name,omitempty"`

	// Config — конфигурация узла. Строковые значения могут содержать
	// шаблоны {{variable}}, которые рендерятся по текущему контексту.
	Config map[string]any `json:"config,omitempty"`
}

// Connection — направленное ребро между портами двух узлов.
//
// Движку важна только достижимость и порядок; семантика портов
// остаётся на стороне редактора.
type Connection struct {
	// ID — уникальный идентификатор соединения.
	ID uuid.UUID `json:"id"`

	// FromNodeID — узел-источник.
	FromNodeID uuid.UUID `json:"from_node_id"`

	// ToNodeID — узел-приёмник.
	ToNodeID uuid.UUID `json:"to_node_id"`

	// FromOutput — имя выходного порта (default: "main").
	FromOutput string `json:"from_output"`

	// ToInput — имя входного порта (default: "main").
	ToInput string `json:"to_input"`
}

// DefaultPort — имя порта по умолчанию.
const DefaultPort = "main"

// WorkflowGraph — граф одного workflow: узлы + соединения + владелец.
//
// Инвариант: соединения не образуют цикла. Нарушение обнаруживается
// при упорядочивании, до запуска какого-либо executor'а.
type WorkflowGraph struct {
	// WorkflowID — идентификатор workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// OwnerUserID — владелец workflow (для скоупинга credentials).
	OwnerUserID string `json:"owner_user_id"`

	// Nodes — узлы в порядке создания (важно для детерминизма порядка).
	Nodes []Node `json:"nodes"`

	// Connections — направленные рёбра.
	Connections []Connection `json:"connections"`
}

// Workflow — метаданные workflow (редактируется внешним редактором).
type Workflow struct {
	// ID — уникальный идентификатор.
	ID uuid.UUID `json:"id"`

	// UserID — владелец.
	UserID string `json:"user_id"`

	// Name — имя workflow.
	Name string `json:"name"`
}
