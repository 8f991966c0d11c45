package campaign

import "sort"

// Edge is a directed campaign-to-campaign transition: some recipient's
// path contained From immediately followed by To.
type Edge struct {
	From string
	To   string
}

// BuildEdges derives the campaign DAG edge set from recipient paths:
// one edge per consecutive pair within each recipient's ordered path.
func BuildEdges(paths []PathEntry) []Edge {
	byRecipient := groupByRecipient(paths)
	var edges []Edge
	for _, ordered := range byRecipient {
		for i := 0; i+1 < len(ordered); i++ {
			edges = append(edges, Edge{From: ordered[i].CampaignID, To: ordered[i+1].CampaignID})
		}
	}
	return edges
}

// PathEntry is the minimal shape CalculateDAGLevels and the transition
// analyses need from a recipient path row.
type PathEntry struct {
	Recipient     string
	CampaignID    string
	SequenceOrder int
	IsNewUser     bool
}

func groupByRecipient(paths []PathEntry) map[string][]PathEntry {
	byRecipient := make(map[string][]PathEntry)
	for _, p := range paths {
		byRecipient[p.Recipient] = append(byRecipient[p.Recipient], p)
	}
	for r := range byRecipient {
		list := byRecipient[r]
		sort.Slice(list, func(i, j int) bool { return list[i].SequenceOrder < list[j].SequenceOrder })
		byRecipient[r] = list
	}
	return byRecipient
}

// CalculateDAGLevels assigns a level to every campaign node mentioned
// in edges or allNodes, Kahn-style: zero-in-degree nodes start at
// level 1, and every neighbor's level becomes max(existing, current+1).
// Nodes untouched by the BFS (isolated nodes, or caught in a cycle)
// default to level 1.
func CalculateDAGLevels(allNodes []string, edges []Edge) map[string]int {
	return calculateLevels(allNodes, edges, nil)
}

// CalculateNewUserDAGLevels is CalculateDAGLevels restricted to edges
// drawn only from is_new_user recipient paths, seeded from confirmed
// root campaigns (falling back to zero-in-degree nodes when no root is
// confirmed in rootCampaigns).
func CalculateNewUserDAGLevels(allNodes []string, paths []PathEntry, rootCampaigns []string) map[string]int {
	var newUserPaths []PathEntry
	for _, p := range paths {
		if p.IsNewUser {
			newUserPaths = append(newUserPaths, p)
		}
	}
	edges := BuildEdges(newUserPaths)

	var seeds []string
	seedSet := make(map[string]bool)
	for _, r := range rootCampaigns {
		if !seedSet[r] {
			seeds = append(seeds, r)
			seedSet[r] = true
		}
	}
	return calculateLevels(allNodes, edges, seeds)
}

func calculateLevels(allNodes []string, edges []Edge, seeds []string) map[string]int {
	adjacency := make(map[string][]string)
	inDegree := make(map[string]int)
	nodeSet := make(map[string]bool)

	for _, n := range allNodes {
		nodeSet[n] = true
		if _, ok := inDegree[n]; !ok {
			inDegree[n] = 0
		}
	}
	for _, e := range edges {
		nodeSet[e.From] = true
		nodeSet[e.To] = true
		adjacency[e.From] = append(adjacency[e.From], e.To)
		inDegree[e.To]++
		if _, ok := inDegree[e.From]; !ok {
			inDegree[e.From] = 0
		}
	}

	levels := make(map[string]int)
	candidateLevel := make(map[string]int)
	remaining := make(map[string]int, len(inDegree))
	for n, d := range inDegree {
		remaining[n] = d
	}

	var queue []string
	if len(seeds) > 0 {
		queue = append(queue, seeds...)
		for _, s := range queue {
			levels[s] = 1
		}
	} else {
		for n := range nodeSet {
			if inDegree[n] == 0 {
				queue = append(queue, n)
				levels[n] = 1
			}
		}
	}
	sort.Strings(queue)

	// Real Kahn's algorithm: a node is only dequeued (and assigned a
	// final level) once every in-edge feeding it has been processed.
	// A node whose in-degree never reaches zero -- because it sits in
	// a cycle with no path in from a seed or zero-in-degree root --
	// is never dequeued and falls through to the level-1 default below.
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		next := append([]string(nil), adjacency[node]...)
		sort.Strings(next)
		for _, n := range next {
			candidate := levels[node] + 1
			if candidate > candidateLevel[n] {
				candidateLevel[n] = candidate
			}
			remaining[n]--
			if remaining[n] == 0 {
				levels[n] = candidateLevel[n]
				queue = append(queue, n)
			}
		}
	}

	for n := range nodeSet {
		if _, ok := levels[n]; !ok {
			levels[n] = 1
		}
	}
	return levels
}
