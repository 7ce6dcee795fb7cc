package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/secrets"
	"github.com/shaiso/conveyor/internal/stepengine"
)

const defaultSystemPrompt = "You are a helpful assistant"

// provider описывает один AI-провайдер: как собрать HTTP-запрос и как
// достать текст из ответа.
type provider struct {
	// name — имя провайдера, используется в имени durable step.
	name string

	// credentialType — ожидаемый тип credential.
	credentialType domain.CredentialType

	// defaultModel — модель по умолчанию, если не задана в конфигурации.
	defaultModel string

	// buildRequest собирает HTTP-запрос к API провайдера.
	buildRequest func(ctx context.Context, baseURL, apiKey, model, system, prompt string) (*http.Request, error)

	// extractText достаёт текст ответа из тела успешного ответа API.
	extractText func(body []byte) (string, error)
}

// aiExecutor — общий executor AI-узлов (OPENAI, ANTHROPIC, GEMINI).
//
// Конфигурация:
//
//	variableName — обязательное, имя переменной контекста для ответа
//	userPrompt   — обязательное, prompt (поддерживает шаблоны)
//	credentialId — обязательное, uuid credential владельца workflow
//	systemPrompt — опциональное
//	model        — опциональное, иначе модель провайдера по умолчанию
//
// Выборка credential — durable step "get-credential": чекпоинтятся
// только метаданные (id, тип, ссылка на секрет). Значение секрета
// запрашивается напрямую перед вызовом API и никогда не попадает в
// таблицу чекпоинтов.
//
// Результат: {variableName: {"aiResponse": "<text>"}}.
type aiExecutor struct {
	provider    provider
	credentials CredentialSource
	secrets     secrets.Store
	client      *http.Client
	logger      *slog.Logger

	// baseURL — из Deps.AIBaseURL; пустая строка — реальный API.
	baseURL string
}

func newAIExecutor(p provider, deps Deps) *aiExecutor {
	return &aiExecutor{
		provider:    p,
		credentials: deps.Credentials,
		secrets:     deps.Secrets,
		client:      deps.httpClient(),
		logger:      deps.logger(),
		baseURL:     deps.AIBaseURL,
	}
}

// Execute валидирует конфигурацию, рендерит prompts и вызывает API
// провайдера внутри durable step.
func (e *aiExecutor) Execute(ctx context.Context, in Input) (*engine.Context, error) {
	in.Publish(ctx, domain.NodeStatusLoading)

	variableName, err := requireString(in.Config, "variableName")
	if err != nil {
		return failConfig(ctx, in, err)
	}
	if _, err := requireString(in.Config, "userPrompt"); err != nil {
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

	userPrompt, _ := config["userPrompt"].(string)
	systemPrompt := optionalString(config, "systemPrompt", defaultSystemPrompt)
	model := optionalString(config, "model", e.provider.defaultModel)

	credential, err := e.fetchCredential(ctx, in, credentialID)
	if err != nil {
		return fail(ctx, in, err)
	}

	stepName := e.provider.name + "-generate-text"
	text, err := stepengine.Do(ctx, in.Steps, stepName, func(ctx context.Context) (string, error) {
		apiKey, err := e.secrets.Get(ctx, credential.SecretRef)
		if err != nil {
			return "", stepengine.NonRetriable(fmt.Errorf("%w: %v", ErrCredential, err))
		}
		return e.generateText(ctx, apiKey, model, systemPrompt, userPrompt)
	})
	if err != nil {
		return fail(ctx, in, err)
	}

	e.logger.Info("ai node finished",
		"node_id", in.NodeID,
		"provider", e.provider.name,
		"model", model)

	out := in.Context.Clone()
	out.Set(variableName, map[string]any{"aiResponse": text})

	in.Publish(ctx, domain.NodeStatusSuccess)
	return out, nil
}

// fetchCredential выбирает метаданные credential durable step'ом,
// скоупленным владельцем workflow.
func (e *aiExecutor) fetchCredential(ctx context.Context, in Input, id uuid.UUID) (*domain.Credential, error) {
	return stepengine.Do(ctx, in.Steps, "get-credential", func(ctx context.Context) (*domain.Credential, error) {
		credential, err := e.credentials.GetCredential(ctx, id, in.UserID)
		if err != nil {
			return nil, stepengine.NonRetriable(fmt.Errorf("%w: %v", ErrCredential, err))
		}
		if credential.Type != e.provider.credentialType {
			return nil, stepengine.NonRetriable(fmt.Errorf(
				"%w: credential %s has type %s, node requires %s",
				ErrCredential, id, credential.Type, e.provider.credentialType))
		}
		return credential, nil
	})
}

func (e *aiExecutor) generateText(ctx context.Context, apiKey, model, system, prompt string) (string, error) {
	req, err := e.provider.buildRequest(ctx, e.baseURL, apiKey, model, system, prompt)
	if err != nil {
		return "", stepengine.NonRetriable(fmt.Errorf("build %s request: %w", e.provider.name, err))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request: %w", e.provider.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read %s response: %w", e.provider.name, err)
	}

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("%s api: status %d: %s",
			e.provider.name, resp.StatusCode, truncate(string(body), 512))
		// Клиентские ошибки (кроме rate limit) повтором не лечатся.
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", stepengine.NonRetriable(err)
		}
		return "", err
	}

	text, err := e.provider.extractText(body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", e.provider.name, err)
	}
	return text, nil
}

func jsonRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// NewOpenAIExecutor создаёт executor узла OPENAI (Chat Completions API).
func NewOpenAIExecutor(deps Deps) Executor {
	return newAIExecutor(provider{
		name:           "openai",
		credentialType: domain.CredentialTypeOpenAI,
		defaultModel:   "gpt-4o-mini",
		buildRequest: func(ctx context.Context, baseURL, apiKey, model, system, prompt string) (*http.Request, error) {
			if baseURL == "" {
				baseURL = "https://api.openai.com/v1"
			}
			req, err := jsonRequest(ctx, http.MethodPost, baseURL+"/chat/completions", map[string]any{
				"model": model,
				"messages": []map[string]string{
					{"role": "system", "content": system},
					{"role": "user", "content": prompt},
				},
			})
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+apiKey)
			return req, nil
		},
		extractText: func(body []byte) (string, error) {
			var out struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return "", fmt.Errorf("%w: %v", ErrProviderResponse, err)
			}
			if len(out.Choices) == 0 {
				return "", fmt.Errorf("%w: no choices returned", ErrProviderResponse)
			}
			return out.Choices[0].Message.Content, nil
		},
	}, deps)
}

// NewAnthropicExecutor создаёт executor узла ANTHROPIC (Messages API).
func NewAnthropicExecutor(deps Deps) Executor {
	return newAIExecutor(provider{
		name:           "anthropic",
		credentialType: domain.CredentialTypeAnthropic,
		defaultModel:   "claude-haiku-4-5",
		buildRequest: func(ctx context.Context, baseURL, apiKey, model, system, prompt string) (*http.Request, error) {
			if baseURL == "" {
				baseURL = "https://api.anthropic.com/v1"
			}
			req, err := jsonRequest(ctx, http.MethodPost, baseURL+"/messages", map[string]any{
				"model":      model,
				"max_tokens": 1024,
				"system":     system,
				"messages": []map[string]string{
					{"role": "user", "content": prompt},
				},
			})
			if err != nil {
				return nil, err
			}
			req.Header.Set("x-api-key", apiKey)
			req.Header.Set("anthropic-version", "2023-06-01")
			return req, nil
		},
		extractText: func(body []byte) (string, error) {
			var out struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return "", fmt.Errorf("%w: %v", ErrProviderResponse, err)
			}
			if len(out.Content) == 0 {
				return "", fmt.Errorf("%w: empty content", ErrProviderResponse)
			}
			return out.Content[0].Text, nil
		},
	}, deps)
}

// NewGeminiExecutor создаёт executor узла GEMINI (generateContent API).
func NewGeminiExecutor(deps Deps) Executor {
	return newAIExecutor(provider{
		name:           "gemini",
		credentialType: domain.CredentialTypeGemini,
		defaultModel:   "gemini-2.5-flash",
		buildRequest: func(ctx context.Context, baseURL, apiKey, model, system, prompt string) (*http.Request, error) {
			if baseURL == "" {
				baseURL = "https://generativelanguage.googleapis.com/v1beta"
			}
			url := fmt.Sprintf("%s/models/%s:generateContent", baseURL, model)
			req, err := jsonRequest(ctx, http.MethodPost, url, map[string]any{
				"system_instruction": map[string]any{
					"parts": []map[string]string{{"text": system}},
				},
				"contents": []map[string]any{
					{"parts": []map[string]string{{"text": prompt}}},
				},
			})
			if err != nil {
				return nil, err
			}
			req.Header.Set("x-goog-api-key", apiKey)
			return req, nil
		},
		extractText: func(body []byte) (string, error) {
			var out struct {
				Candidates []struct {
					Content struct {
						Parts []struct {
							Text string `json:"text"`
						} `json:"parts"`
					} `json:"content"`
				} `json:"candidates"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return "", fmt.Errorf("%w: %v", ErrProviderResponse, err)
			}
			if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
				return "", fmt.Errorf("%w: no candidates returned", ErrProviderResponse)
			}
			return out.Candidates[0].Content.Parts[0].Text, nil
		},
	}, deps)
}
