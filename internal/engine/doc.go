// Package engine содержит вычислительное ядро движка workflow.
//
// Включает:
//   - order.go    — детерминированное топологическое упорядочивание графа
//   - context.go  — накапливаемый контекст выполнения (упорядоченная map)
//   - template.go — рендеринг Handlebars-шаблонов ({{variable}}) по контексту
//
// Пакет не имеет побочных эффектов: ни БД, ни сети. Всё остальное
// (executors, durable steps, персистентность) живёт уровнем выше.
package engine
