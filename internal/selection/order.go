package selection

import (
	"sort"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/tp2"
)

// graph orders nodes so that every edge points forward. Nodes are positions
// in the current install order.
type graph struct {
	n     int
	edges [][]int
}

func newGraph(n int) *graph {
	return &graph{n: n, edges: make([][]int, n)}
}

// addEdge records that from must come before to.
func (g *graph) addEdge(from, to int) {
	if from != to {
		g.edges[from] = append(g.edges[from], to)
	}
}

// sort is Kahn's algorithm, always taking the earliest ready node so that
// unrelated components keep their relative order. It returns the positions
// left in a cycle when no full order exists.
func (g *graph) sort() (order, cycle []int) {
	inDegree := make([]int, g.n)
	for _, outs := range g.edges {
		for _, to := range outs {
			inDegree[to]++
		}
	}

	done := make([]bool, g.n)
	for len(order) < g.n {
		next := -1
		for i := 0; i < g.n; i++ {
			if !done[i] && inDegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		done[next] = true
		order = append(order, next)
		for _, to := range g.edges[next] {
			inDegree[to]--
		}
	}

	if len(order) == g.n {
		return order, nil
	}
	for i := 0; i < g.n; i++ {
		if !done[i] {
			cycle = append(cycle, i)
		}
	}
	return nil, cycle
}

// SortByDependencies restamps the checked components of t so each one comes
// after the checked components it depends on. Components without such
// dependencies keep their relative order. A *CycleError is returned, and
// nothing changes, when the dependencies are circular.
func (m *Model) SortByDependencies(t game.Target) (Snapshot, error) {
	sel := m.InstallOrder(t)
	pos := newCheckedSet()
	index := make(map[string]int, len(sel))
	for i, s := range sel {
		pos.add(s.Key)
		index[s.Key.String()] = i
		index["base:"+baseKey(s.Key).String()] = i
	}

	tab := m.Tab(t)
	g := newGraph(len(sel))
	for i, s := range sel {
		for _, r := range tab.items[s.Key].Dependencies {
			if r.Kind != tp2.RefComponent || !pos.has(r) {
				continue
			}
			k := r.Key()
			j, ok := index[k.String()]
			if !ok {
				j = index["base:"+k.String()]
			}
			g.addEdge(j, i)
		}
	}

	order, cycle := g.sort()
	if cycle != nil {
		names := make([]string, len(cycle))
		for i, c := range cycle {
			names[i] = sel[c].Key.String()
		}
		return m.snapshot, &CycleError{Cycle: names}
	}

	return m.batch(func() {
		for _, i := range order {
			m.seq++
			tab.entries[sel[i].Key].Seq = m.seq
		}
	}), nil
}

// SortByPath restamps the checked components of t by descriptor path, then by
// component number. Paths compare in their normalized, lower-case form.
func (m *Model) SortByPath(t game.Target) Snapshot {
	sel := m.InstallOrder(t)
	sort.SliceStable(sel, func(i, j int) bool {
		a, b := sel[i].Key, sel[j].Key
		if a.TP2 != b.TP2 {
			return a.TP2 < b.TP2
		}
		return a.ID < b.ID
	})

	tab := m.Tab(t)
	return m.batch(func() {
		for _, s := range sel {
			m.seq++
			tab.entries[s.Key].Seq = m.seq
		}
	})
}
