package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/conveyor/internal/domain"
)

func node(name string) domain.Node {
	return domain.Node{ID: uuid.New(), Type: domain.NodeTypeHTTPRequest, Name: name}
}

func conn(from, to domain.Node) domain.Connection {
	return domain.Connection{
		ID:         uuid.New(),
		FromNodeID: from.ID,
		ToNodeID:   to.ID,
		FromOutput: domain.DefaultPort,
		ToInput:    domain.DefaultPort,
	}
}

// position возвращает индекс узла в порядке выполнения.
func position(t *testing.T, order []domain.Node, id uuid.UUID) int {
	t.Helper()
	for i, n := range order {
		if n.ID == id {
			return i
		}
	}
	t.Fatalf("node %s not found in order", id)
	return -1
}

func TestOrder_SimpleChain(t *testing.T) {
	a, b, c := node("A"), node("B"), node("C")
	nodes := []domain.Node{a, b, c}
	conns := []domain.Connection{conn(a, b), conn(b, c)}

	order, err := Order(nodes, conns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(order))
	}
	for i, want := range []uuid.UUID{a.ID, b.ID, c.ID} {
		if order[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, order[i].ID)
		}
	}
}

func TestOrder_Diamond_EdgePrecedence(t *testing.T) {
	a, b, c, d := node("A"), node("B"), node("C"), node("D")
	nodes := []domain.Node{a, b, c, d}
	conns := []domain.Connection{conn(a, b), conn(a, c), conn(b, d), conn(c, d)}

	order, err := Order(nodes, conns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Для каждого ребра a→b узел a должен идти строго раньше b.
	for _, edge := range conns {
		from := position(t, order, edge.FromNodeID)
		to := position(t, order, edge.ToNodeID)
		if from >= to {
			t.Errorf("edge %s→%s violated: %d >= %d", edge.FromNodeID, edge.ToNodeID, from, to)
		}
	}
}

func TestOrder_TieBreak_ByInsertionOrder(t *testing.T) {
	// B и C готовы одновременно после A — порядок должен совпадать
	// с порядком создания узлов при каждом запуске.
	a, b, c := node("A"), node("B"), node("C")
	nodes := []domain.Node{a, b, c}
	conns := []domain.Connection{conn(a, b), conn(a, c)}

	for i := 0; i < 10; i++ {
		order, err := Order(nodes, conns)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order[1].ID != b.ID || order[2].ID != c.ID {
			t.Fatalf("run %d: tie-break not stable: got [%s %s]", i, order[1].Name, order[2].Name)
		}
	}
}

func TestOrder_MultipleEntryPoints(t *testing.T) {
	// Два несвязных подграфа: trigger→http и одиночный узел.
	a, b, c := node("trigger"), node("http"), node("loner")
	nodes := []domain.Node{a, b, c}
	conns := []domain.Connection{conn(a, b)}

	order, err := Order(nodes, conns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("all nodes must be in the single linear order, got %d", len(order))
	}
	if position(t, order, a.ID) >= position(t, order, b.ID) {
		t.Error("trigger must precede http")
	}
}

func TestOrder_DuplicateConnections(t *testing.T) {
	// Несколько соединений между одной парой узлов (мульти-порты)
	// не должны ломать подсчёт in-degree.
	a, b := node("A"), node("B")
	nodes := []domain.Node{a, b}
	conns := []domain.Connection{conn(a, b), conn(a, b)}

	order, err := Order(nodes, conns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0].ID != a.ID {
		t.Errorf("unexpected order: %v", order)
	}
}

func TestOrder_Cycle(t *testing.T) {
	a, b, c := node("A"), node("B"), node("C")
	nodes := []domain.Node{a, b, c}
	conns := []domain.Connection{conn(a, b), conn(b, c), conn(c, a)}

	_, err := Order(nodes, conns)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !errors.Is(err, ErrCyclicGraph) {
		t.Errorf("expected ErrCyclicGraph, got %v", err)
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if len(cycleErr.Remaining) != 3 {
		t.Errorf("expected 3 unorderable nodes, got %d", len(cycleErr.Remaining))
	}
}

func TestOrder_SelfLoop(t *testing.T) {
	a := node("A")
	nodes := []domain.Node{a}
	conns := []domain.Connection{conn(a, a)}

	_, err := Order(nodes, conns)
	if !errors.Is(err, ErrCyclicGraph) {
		t.Errorf("expected ErrCyclicGraph, got %v", err)
	}
}

func TestOrder_UnknownEndpoint(t *testing.T) {
	a := node("A")
	ghost := domain.Connection{ID: uuid.New(), FromNodeID: a.ID, ToNodeID: uuid.New()}

	_, err := Order([]domain.Node{a}, []domain.Connection{ghost})
	if !errors.Is(err, ErrUnknownEndpoint) {
		t.Errorf("expected ErrUnknownEndpoint, got %v", err)
	}
}

func TestOrder_EmptyGraph(t *testing.T) {
	_, err := Order(nil, nil)
	if !errors.Is(err, ErrEmptyGraph) {
		t.Errorf("expected ErrEmptyGraph, got %v", err)
	}
}

func TestOrder_IsPermutation(t *testing.T) {
	a, b, c, d, e := node("A"), node("B"), node("C"), node("D"), node("E")
	nodes := []domain.Node{a, b, c, d, e}
	conns := []domain.Connection{conn(a, c), conn(b, c), conn(c, d), conn(c, e)}

	order, err := Order(nodes, conns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[uuid.UUID]bool, len(order))
	for _, n := range order {
		if seen[n.ID] {
			t.Errorf("node %s appears twice", n.ID)
		}
		seen[n.ID] = true
	}
	for _, n := range nodes {
		if !seen[n.ID] {
			t.Errorf("node %s missing from order", n.ID)
		}
	}
}
