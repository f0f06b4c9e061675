package cluster

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Component is one connected cluster of the graph.
type Component struct {
	Nodes []Node
	Edges []Edge
}

// Stats describes the shape of a graph.
type Stats struct {
	Nodes    int
	Edges    int
	Clusters int
	Largest  int
	Groups   int
	// Dangling counts edges whose endpoints are not declared nodes.
	Dangling int
}

// Analyze counts clusters using an undirected view of the graph.
func Analyze(g Graph) Stats {
	comps, dangling := components(g)
	st := Stats{
		Nodes:    len(g.Nodes),
		Edges:    len(g.Edges),
		Clusters: len(comps),
		Dangling: dangling,
	}
	groups := make(map[Ident]struct{})
	for _, n := range g.Nodes {
		if n.Group != "" {
			groups[n.Group] = struct{}{}
		}
	}
	st.Groups = len(groups)
	for _, c := range comps {
		if len(c.Nodes) > st.Largest {
			st.Largest = len(c.Nodes)
		}
	}
	return st
}

// Components returns the connected clusters, largest first. Ties keep the
// order in which their first node appears in the document.
func Components(g Graph) []Component {
	comps, _ := components(g)
	return comps
}

func components(g Graph) ([]Component, int) {
	u := simple.NewUndirectedGraph()
	idToNode := make(map[Ident]int64, len(g.Nodes))
	order := make(map[int64]int, len(g.Nodes))
	byNode := make(map[int64]Node, len(g.Nodes))

	for i, n := range g.Nodes {
		if _, dup := idToNode[n.ID]; dup {
			continue
		}
		gn := u.NewNode()
		u.AddNode(gn)
		idToNode[n.ID] = gn.ID()
		order[gn.ID()] = i
		byNode[gn.ID()] = n
	}

	dangling := 0
	for _, e := range g.Edges {
		from, okFrom := idToNode[e.From]
		to, okTo := idToNode[e.To]
		if !okFrom || !okTo {
			dangling++
			continue
		}
		if from == to || u.HasEdgeBetween(from, to) {
			continue
		}
		u.SetEdge(u.NewEdge(u.Node(from), u.Node(to)))
	}

	sets := topo.ConnectedComponents(u)
	comps := make([]Component, 0, len(sets))
	member := make(map[int64]int, len(g.Nodes))
	firsts := make([]int, 0, len(sets))
	for _, set := range sets {
		ids := make([]int64, 0, len(set))
		for _, n := range set {
			ids = append(ids, n.ID())
		}
		sort.Slice(ids, func(i, j int) bool { return order[ids[i]] < order[ids[j]] })
		c := Component{Nodes: make([]Node, 0, len(ids))}
		for _, id := range ids {
			c.Nodes = append(c.Nodes, byNode[id])
		}
		firsts = append(firsts, order[ids[0]])
		comps = append(comps, c)
	}

	idx := make([]int, len(comps))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ca, cb := comps[idx[a]], comps[idx[b]]
		if len(ca.Nodes) != len(cb.Nodes) {
			return len(ca.Nodes) > len(cb.Nodes)
		}
		return firsts[idx[a]] < firsts[idx[b]]
	})
	sorted := make([]Component, len(comps))
	for pos, i := range idx {
		sorted[pos] = comps[i]
		for _, n := range comps[i].Nodes {
			member[idToNode[n.ID]] = pos
		}
	}

	for _, e := range g.Edges {
		from, okFrom := idToNode[e.From]
		if !okFrom {
			continue
		}
		if _, okTo := idToNode[e.To]; !okTo {
			continue
		}
		c := member[from]
		sorted[c].Edges = append(sorted[c].Edges, e)
	}
	return sorted, dangling
}
