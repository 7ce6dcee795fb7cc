package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/stepengine"
)

// HTTPRequestExecutor выполняет исходящий HTTP-запрос.
//
// Конфигурация:
//
//	variableName — обязательное, имя переменной контекста для результата
//	endpoint     — обязательное, URL (поддерживает шаблоны)
//	method       — опциональное, по умолчанию GET
//	body         — опциональное, тело запроса (поддерживает шаблоны)
//	headers      — опциональное, map заголовков (значения — шаблоны)
//
// Результат записывается в контекст под variableName:
//
//	{"status_code": 200, "headers": {...}, "body": <decoded-or-string>}
//
// Статусы ответа >= 400 считаются ошибкой узла, но retriable: upstream
// мог ответить 503 и подняться к следующей попытке.
type HTTPRequestExecutor struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPRequestExecutor создаёт executor HTTP-запросов.
func NewHTTPRequestExecutor(deps Deps) *HTTPRequestExecutor {
	return &HTTPRequestExecutor{
		client: deps.httpClient(),
		logger: deps.logger(),
	}
}

// httpResult — чекпоинтируемый результат шага "http-request".
type httpResult struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       any               `json:"body"`
}

// Execute выполняет запрос внутри durable step и расширяет контекст.
func (e *HTTPRequestExecutor) Execute(ctx context.Context, in Input) (*engine.Context, error) {
	in.Publish(ctx, domain.NodeStatusLoading)

	variableName, err := requireString(in.Config, "variableName")
	if err != nil {
		return failConfig(ctx, in, err)
	}
	if _, err := requireString(in.Config, "endpoint"); err != nil {
		return failConfig(ctx, in, err)
	}

	config, err := engine.RenderConfig(in.Config, in.Context)
	if err != nil {
		return failConfig(ctx, in, err)
	}

	endpoint, _ := config["endpoint"].(string)
	method := strings.ToUpper(optionalString(config, "method", http.MethodGet))
	body := optionalString(config, "body", "")
	headers := headerMap(config["headers"])

	result, err := stepengine.Do(ctx, in.Steps, "http-request", func(ctx context.Context) (*httpResult, error) {
		return e.doRequest(ctx, method, endpoint, body, headers)
	})
	if err != nil {
		return fail(ctx, in, err)
	}

	e.logger.Info("http request node finished",
		"node_id", in.NodeID,
		"method", method,
		"status_code", result.StatusCode)

	out := in.Context.Clone()
	out.Set(variableName, map[string]any{
		"status_code": result.StatusCode,
		"headers":     result.Headers,
		"body":        result.Body,
	})

	in.Publish(ctx, domain.NodeStatusSuccess)
	return out, nil
}

func (e *HTTPRequestExecutor) doRequest(ctx context.Context, method, endpoint, body string, headers map[string]string) (*httpResult, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, stepengine.NonRetriable(fmt.Errorf("%w: build request: %v", ErrConfig, err))
	}
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http request to %s: status %d: %s",
			endpoint, resp.StatusCode, truncate(string(raw), 512))
	}

	result := &httpResult{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
	}

	// Тело декодируется как JSON, если это JSON; иначе остаётся строкой.
	var decoded any
	if len(raw) > 0 && json.Unmarshal(raw, &decoded) == nil {
		result.Body = decoded
	} else {
		result.Body = string(raw)
	}
	return result, nil
}

// headerMap приводит значение конфигурации headers к map[string]string.
func headerMap(raw any) map[string]string {
	switch v := raw.(type) {
	case map[string]string:
		return v
	case map[string]any:
		headers := make(map[string]string, len(v))
		for name, value := range v {
			if s, ok := value.(string); ok {
				headers[name] = s
			}
		}
		return headers
	default:
		return nil
	}
}

func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for name := range h {
		headers[name] = h.Get(name)
	}
	return headers
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
