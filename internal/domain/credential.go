package domain

import (
	"time"

	"github.com/google/uuid"
)

// CredentialType — тип учётных данных.
type CredentialType string

const (
	CredentialTypeOpenAI    CredentialType = "OPENAI"
	CredentialTypeAnthropic CredentialType = "ANTHROPIC"
	CredentialTypeGemini    CredentialType = "GEMINI"
	CredentialTypeDiscord   CredentialType = "DISCORD"
)

// CredentialTypes — все поддерживаемые типы credentials.
var CredentialTypes = []CredentialType{
	CredentialTypeOpenAI,
	CredentialTypeAnthropic,
	CredentialTypeGemini,
	CredentialTypeDiscord,
}

// IsValid проверяет, что тип credential поддерживается.
func (t CredentialType) IsValid() bool {
	for _, known := range CredentialTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Credential — метаданные учётных данных пользователя.
//
// Само значение секрета в этой структуре не хранится: оно лежит в
// secret-хранилище под ключом SecretRef и запрашивается executor'ом
// непосредственно перед вызовом внешнего API.
type Credential struct {
	// ID — уникальный идентификатор credential.
	ID uuid.UUID `json:"id"`

	// UserID — владелец. Credential доступен только своему владельцу.
	UserID string `json:"user_id"`

	// Type — тип учётных данных.
	Type CredentialType `json:"type"`

	// Name — человекочитаемое имя.
	Name string `json:"name"`

	// SecretRef — непрозрачная ссылка на значение в secret-хранилище.
	SecretRef string `json:"secret_ref"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}
