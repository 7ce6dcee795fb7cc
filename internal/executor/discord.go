package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/secrets"
	"github.com/shaiso/conveyor/internal/stepengine"
)

// DiscordExecutor отправляет сообщение в Discord через webhook.
//
// Конфигурация:
//
//	variableName — обязательное, имя переменной контекста для результата
//	content      — обязательное, текст сообщения (поддерживает шаблоны)
//	credentialId — обязательное, uuid credential с webhook URL
//
// Webhook URL хранится как секрет credential'а и запрашивается прямо
// перед отправкой, минуя чекпоинты. Discord обрезает сообщения длиннее
// 2000 символов, поэтому контент усечётся до лимита.
type DiscordExecutor struct {
	credentials CredentialSource
	secrets     secrets.Store
	client      *http.Client
	logger      *slog.Logger
}

// NewDiscordExecutor создаёт executor узла DISCORD.
func NewDiscordExecutor(deps Deps) *DiscordExecutor {
	return &DiscordExecutor{
		credentials: deps.Credentials,
		secrets:     deps.Secrets,
		client:      deps.httpClient(),
		logger:      deps.logger(),
	}
}

const discordContentLimit = 2000

// Execute отправляет сообщение внутри durable step.
func (e *DiscordExecutor) Execute(ctx context.Context, in Input) (*engine.Context, error) {
	in.Publish(ctx, domain.NodeStatusLoading)

	variableName, err := requireString(in.Config, "variableName")
	if err != nil {
		return failConfig(ctx, in, err)
	}
	if _, err := requireString(in.Config, "content"); err != nil {
		return failConfig(ctx, in, err)
	}
	credentialID, err := requireUUID(in.Config, "credentialId")
	if err != nil {
		return failConfig(ctx, in, err)
	}

	config, err := engine.RenderConfig(in.Config, in.Context)
	if err != nil {
		return failConfig(ctx, in, err)
	}

	content, _ := config["content"].(string)
	// Лимит Discord — 2000 символов, не байт: режем по рунам, чтобы не
	// разорвать многобайтовый символ посередине.
	if utf8.RuneCountInString(content) > discordContentLimit {
		content = string([]rune(content)[:discordContentLimit])
	}

	credential, err := stepengine.Do(ctx, in.Steps, "get-credential", func(ctx context.Context) (*domain.Credential, error) {
		credential, err := e.credentials.GetCredential(ctx, credentialID, in.UserID)
		if err != nil {
			return nil, stepengine.NonRetriable(fmt.Errorf("%w: %v", ErrCredential, err))
		}
		if credential.Type != domain.CredentialTypeDiscord {
			return nil, stepengine.NonRetriable(fmt.Errorf(
				"%w: credential %s has type %s, node requires %s",
				ErrCredential, credentialID, credential.Type, domain.CredentialTypeDiscord))
		}
		return credential, nil
	})
	if err != nil {
		return fail(ctx, in, err)
	}

	delivered, err := stepengine.Do(ctx, in.Steps, "discord-send-message", func(ctx context.Context) (bool, error) {
		webhookURL, err := e.secrets.Get(ctx, credential.SecretRef)
		if err != nil {
			return false, stepengine.NonRetriable(fmt.Errorf("%w: %v", ErrCredential, err))
		}
		return e.send(ctx, webhookURL, content)
	})
	if err != nil {
		return fail(ctx, in, err)
	}

	e.logger.Info("discord node finished", "node_id", in.NodeID)

	out := in.Context.Clone()
	out.Set(variableName, map[string]any{"delivered": delivered})

	in.Publish(ctx, domain.NodeStatusSuccess)
	return out, nil
}

func (e *DiscordExecutor) send(ctx context.Context, webhookURL, content string) (bool, error) {
	if !strings.HasPrefix(webhookURL, "http") {
		return false, stepengine.NonRetriable(fmt.Errorf("%w: secret is not a webhook url", ErrCredential))
	}

	req, err := jsonRequest(ctx, http.MethodPost, webhookURL, map[string]string{"content": content})
	if err != nil {
		return false, stepengine.NonRetriable(fmt.Errorf("build discord request: %w", err))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("discord webhook: status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return false, stepengine.NonRetriable(err)
		}
		return false, err
	}
	return true, nil
}
