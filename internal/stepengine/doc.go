// Package stepengine реализует durable steps — чекпоинтируемые единицы
// работы внутри одного execution.
//
// Шаг идентифицируется именем, уникальным в рамках execution. Успешно
// завершённый шаг сохраняется в хранилище чекпоинтов и при повторном
// вызове (после рестарта процесса или повторной доставки события)
// не выполняется заново — возвращается сохранённый результат.
//
// Ошибки делятся на два класса:
//   - non-retriable (NonRetriable) — сломана конфигурация или данные,
//     повтор не поможет; шаг падает сразу, не расходуя retry-бюджет;
//   - остальные считаются transient и повторяются с backoff согласно
//     RetryPolicy, после исчерпания попыток ошибка поднимается выше.
//
// Движок workflow не знает деталей retry/backoff — он видит только
// контракт Execute/Run и failure hook.
package stepengine
