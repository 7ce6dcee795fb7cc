package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Context — накапливаемый контекст выполнения.
//
// Упорядоченная map переменная → значение (string/number/bool/object/array),
// заполняется начальными данными trigger-события и растёт по мере того,
// как executors записывают свои результаты.
//
// Инвариант: сам движок никогда не перезаписывает существующие ключи —
// он только передаёт контекст от узла к узлу. Заменить или дополнить
// значение может только executor через Set.
type Context struct {
	keys   []string
	values map[string]any
}

// NewContext создаёт контекст, заполненный начальными данными.
// Ключи seed добавляются в алфавитном порядке (map в Go не упорядочена,
// а порядок контекста должен быть воспроизводим).
func NewContext(seed map[string]any) *Context {
	c := &Context{values: make(map[string]any, len(seed))}

	names := make([]string, 0, len(seed))
	for name := range seed {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c.Set(name, seed[name])
	}
	return c
}

// Get возвращает значение переменной.
func (c *Context) Get(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Set записывает значение переменной. Новый ключ добавляется в конец,
// существующий сохраняет свою позицию (значение заменяется).
func (c *Context) Set(name string, value any) {
	if _, exists := c.values[name]; !exists {
		c.keys = append(c.keys, name)
	}
	c.values[name] = value
}

// Keys возвращает имена переменных в порядке добавления.
func (c *Context) Keys() []string {
	keys := make([]string, len(c.keys))
	copy(keys, c.keys)
	return keys
}

// Len возвращает количество переменных.
func (c *Context) Len() int {
	return len(c.keys)
}

// Snapshot возвращает содержимое контекста как обычную map
// (для рендеринга шаблонов и персистентности). Значения не копируются.
func (c *Context) Snapshot() map[string]any {
	snapshot := make(map[string]any, len(c.values))
	for name, value := range c.values {
		snapshot[name] = value
	}
	return snapshot
}

// Clone возвращает независимую копию контекста (значения shared).
func (c *Context) Clone() *Context {
	clone := &Context{
		keys:   make([]string, len(c.keys)),
		values: make(map[string]any, len(c.values)),
	}
	copy(clone.keys, c.keys)
	for name, value := range c.values {
		clone.values[name] = value
	}
	return clone
}

// MarshalJSON сериализует контекст как JSON-объект с сохранением
// порядка ключей.
func (c *Context) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		nameJSON, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(nameJSON)
		buf.WriteByte(':')

		valueJSON, err := json.Marshal(c.values[name])
		if err != nil {
			return nil, fmt.Errorf("marshal context value %q: %w", name, err)
		}
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON восстанавливает контекст из JSON-объекта, сохраняя
// порядок ключей документа (используется при replay чекпоинтов).
func (c *Context) UnmarshalJSON(data []byte) error {
	c.keys = nil
	c.values = make(map[string]any)

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode context: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode context: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode context key: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode context: non-string key %v", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode context value %q: %w", name, err)
		}
		c.Set(name, value)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode context: %w", err)
	}
	return nil
}
