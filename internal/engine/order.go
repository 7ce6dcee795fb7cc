package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/conveyor/internal/domain"
)

// Order выполняет топологическую сортировку графа (алгоритм Кана).
//
// Возвращает все узлы в едином линейном порядке выполнения:
//   - для каждого соединения a→b узел a идёт строго раньше b;
//   - среди одинаково готовых узлов порядок стабилен по порядку
//     создания узлов (детерминированные, воспроизводимые запуски);
//   - узлы без входящих соединений — валидные точки входа, их может
//     быть несколько (в том числе несвязные подграфы).
//
// Если граф содержит цикл, возвращается *CycleError до каких-либо
// побочных эффектов: ни один executor при этом не вызывается.
func Order(nodes []domain.Node, connections []domain.Connection) ([]domain.Node, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyGraph
	}

	index := make(map[uuid.UUID]int, len(nodes))
	for i, node := range nodes {
		index[node.ID] = i
	}

	// Считаем in-degree по уникальным рёбрам: несколько соединений
	// между одной парой узлов (мульти-порты) учитываются один раз.
	inDegree := make([]int, len(nodes))
	successors := make([][]int, len(nodes))
	seen := make(map[[2]int]bool, len(connections))

	for _, conn := range connections {
		from, ok := index[conn.FromNodeID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, conn.FromNodeID)
		}
		to, ok := index[conn.ToNodeID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, conn.ToNodeID)
		}

		edge := [2]int{from, to}
		if seen[edge] {
			continue
		}
		seen[edge] = true

		successors[from] = append(successors[from], to)
		inDegree[to]++
	}

	// На каждой итерации берём первый (по порядку создания) узел с
	// in-degree 0. Линейный скан вместо очереди даёт строгий tie-break
	// по исходному порядку; графы собираются в UI и невелики.
	order := make([]domain.Node, 0, len(nodes))
	emitted := make([]bool, len(nodes))

	for len(order) < len(nodes) {
		picked := -1
		for i := range nodes {
			if !emitted[i] && inDegree[i] == 0 {
				picked = i
				break
			}
		}
		if picked < 0 {
			// Все оставшиеся узлы имеют входящие рёбра — цикл.
			var remaining []uuid.UUID
			for i := range nodes {
				if !emitted[i] {
					remaining = append(remaining, nodes[i].ID)
				}
			}
			return nil, &CycleError{Remaining: remaining}
		}

		emitted[picked] = true
		order = append(order, nodes[picked])
		for _, succ := range successors[picked] {
			inDegree[succ]--
		}
	}

	return order, nil
}
