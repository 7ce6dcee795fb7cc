package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mailgun/raymond/v2"
)

func init() {
	// json — сериализует значение контекста в JSON-строку для
	// встраивания в тело запроса или prompt: {{json data}}.
	// SafeString, чтобы Handlebars не экранировал кавычки.
	raymond.RegisterHelper("json", func(value interface{}) raymond.SafeString {
		b, err := json.Marshal(value)
		if err != nil {
			return raymond.SafeString("")
		}
		return raymond.SafeString(b)
	})
}

// Render рендерит Handlebars-шаблон по контексту выполнения.
//
// Поддерживается доступ по точечным путям и helper json:
//
//	"Hi {{user.name}}"
//	"{{json http.body}}"
//
// Политика для неразрешимых плейсхолдеров — lenient: {{missing}}
// рендерится в пустую строку (поведение Handlebars по умолчанию),
// а не в ошибку. Политика явная и закреплена тестами.
func Render(tmpl string, ctx *Context) (string, error) {
	// Строки без шаблонных выражений возвращаем как есть.
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	result, err := raymond.Render(tmpl, ctx.Snapshot())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return result, nil
}

// RenderValue рендерит произвольное значение конфигурации.
// Строки рендерятся как шаблоны, map и slice обрабатываются рекурсивно,
// остальные типы возвращаются как есть.
func RenderValue(value any, ctx *Context) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case string:
		return Render(v, ctx)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			rendered, err := RenderValue(val, ctx)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			rendered, err := RenderValue(val, ctx)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			rendered, err := Render(val, ctx)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	default:
		return value, nil
	}
}

// RenderConfig рендерит конфигурацию узла по контексту.
// Обёртка над RenderValue для map[string]any.
func RenderConfig(config map[string]any, ctx *Context) (map[string]any, error) {
	if config == nil {
		return make(map[string]any), nil
	}

	rendered, err := RenderValue(config, ctx)
	if err != nil {
		return nil, err
	}

	result, ok := rendered.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected map, got %T", ErrTemplateRender, rendered)
	}
	return result, nil
}
