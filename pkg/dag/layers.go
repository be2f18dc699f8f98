package dag

// AssignLayers assigns every node a release layer and returns the layers in
// order, each sorted by ID.
//
// Layering is a longest-path assignment via Kahn's algorithm run from the
// sinks: packages without workspace dependencies are in layer 0, and each
// other package is one layer below its deepest dependency. Publishing the
// layers in order therefore never publishes a package before something it
// depends on.
//
// AssignLayers assumes the graph is acyclic; nodes on a cycle never reach zero
// out-degree and are left out of the result. Check [DAG.Validate] first.
func AssignLayers(g *DAG) [][]string {
	nodes := g.Nodes()
	outDegree := make(map[string]int, len(nodes))
	rows := make(map[string]int, len(nodes))
	queue := make([]string, 0, len(nodes))

	for _, n := range nodes {
		degree := g.OutDegree(n.ID)
		outDegree[n.ID] = degree
		rows[n.ID] = 0
		if degree == 0 {
			queue = append(queue, n.ID)
		}
	}

	placed := make(map[string]bool, len(nodes))
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		placed[curr] = true

		for _, parent := range g.Parents(curr) {
			if row := rows[curr] + 1; row > rows[parent] {
				rows[parent] = row
			}
			outDegree[parent]--
			if outDegree[parent] == 0 {
				queue = append(queue, parent)
			}
		}
	}

	g.SetRows(rows)

	var layers [][]string
	for _, n := range nodes {
		if !placed[n.ID] {
			continue
		}
		for len(layers) <= n.Row {
			layers = append(layers, nil)
		}
		layers[n.Row] = append(layers[n.Row], n.ID)
	}
	return layers
}
