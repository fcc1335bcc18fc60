package model

// BugGraph is the conflict graph of a bug as rendered by the bug view
type BugGraph struct {
	Name  string      `json:"name"`
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode is a transaction in the conflict graph
type GraphNode struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Ops      string   `json:"ops"`
	RelateTo []string `json:"relate_to"`
	InCycle  string   `json:"in_cycle"`
}

// GraphEdge is a dependency between two transactions
type GraphEdge struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Label    string   `json:"label"`
	RelateTo []string `json:"relate_to"`
	Style    string   `json:"style"`
	InCycle  string   `json:"in_cycle"`
}

// CycleEdges returns the edges marked as part of the anomaly cycle
func (g *BugGraph) CycleEdges() []GraphEdge {
	var edges []GraphEdge
	for _, e := range g.Edges {
		if e.InCycle == "true" {
			edges = append(edges, e)
		}
	}
	return edges
}
