package executor

import "errors"

// Ошибки executor'ов.
var (
	// ErrUnknownNodeType — нет executor'а для данного типа узла.
	ErrUnknownNodeType = errors.New("no executor registered for node type")

	// ErrConfig — отсутствует или некорректно обязательное поле
	// конфигурации узла. Non-retriable: повтор не починит конфигурацию.
	ErrConfig = errors.New("invalid node configuration")

	// ErrCredential — credential не найден или принадлежит другому
	// пользователю. Non-retriable.
	ErrCredential = errors.New("credential not available")

	// ErrProviderResponse — внешний API вернул неожиданный ответ.
	ErrProviderResponse = errors.New("unexpected provider response")
)
