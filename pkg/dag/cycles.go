package dag

// FindCycle returns one directed cycle in g as a path of node IDs whose last
// element repeats the first (e.g. [a b c a]), or nil if g is acyclic.
//
// The search is a depth-first traversal with white/gray/black coloring that
// starts from nodes in sorted order, so the reported cycle is deterministic.
func FindCycle(g *DAG) []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, g.NodeCount())
	var path []string
	var cycle []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = gray
		path = append(path, node)
		for _, child := range g.Children(node) {
			switch color[child] {
			case white:
				if dfs(child) {
					return true
				}
			case gray:
				for i, id := range path {
					if id == child {
						cycle = append(append([]string{}, path[i:]...), child)
						return true
					}
				}
			}
		}
		path = path[:len(path)-1]
		color[node] = black
		return false
	}

	for _, n := range g.Nodes() {
		if color[n.ID] == white && dfs(n.ID) {
			return cycle
		}
	}
	return nil
}
