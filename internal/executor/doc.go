// Package executor содержит реализации узлов workflow.
//
// Каждый тип узла (NodeType) имеет свой Executor; реестр строится на
// старте процесса из закрытого множества типов. Общий контракт:
//
//  1. Перед работой публикуется статус "loading".
//  2. Обязательные поля конфигурации валидируются; при нарушении
//     публикуется "error" и возвращается non-retriable ошибка.
//  3. Шаблонные строки конфигурации ({{variable}}) рендерятся по
//     текущему контексту до использования.
//  4. Durable внешняя работа (HTTP, AI-вызов, выборка credential)
//     выполняется через step runner и чекпоинтится независимо.
//  5. При успехе публикуется "success" и возвращается контекст,
//     расширенный результатом узла; существующие ключи не удаляются.
package executor
