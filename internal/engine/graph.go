// internal/engine/graph.go
package engine

import (
	"sort"
	"strings"

	"github.com/municipal/procurement-backend/internal/models"
)

// dependencyGraph holds an edge prerequisite -> dependent for every
// requiredPhases and blockedBy declaration between known phases.
type dependencyGraph struct {
	nodes      []string
	dependents map[string][]string
}

func newDependencyGraph(phases []models.ContractPhase) *dependencyGraph {
	g := &dependencyGraph{
		dependents: make(map[string][]string, len(phases)),
	}
	known := make(map[string]bool, len(phases))
	for _, p := range phases {
		if !known[p.Code] {
			known[p.Code] = true
			g.nodes = append(g.nodes, p.Code)
		}
	}
	sort.Strings(g.nodes)

	for _, p := range phases {
		for _, ref := range p.Dependencies.References() {
			if !known[ref] {
				continue
			}
			g.dependents[ref] = append(g.dependents[ref], p.Code)
		}
	}
	for code := range g.dependents {
		sort.Strings(g.dependents[code])
	}
	return g
}

// cycles walks the graph depth-first and returns one path per back edge,
// each closed by repeating its first node.
func (g *dependencyGraph) cycles() [][]string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string
	var found [][]string
	seen := make(map[string]bool)

	var visit func(string)
	visit = func(node string) {
		color[node] = grey
		stack = append(stack, node)
		for _, next := range g.dependents[node] {
			switch color[next] {
			case white:
				visit(next)
			case grey:
				start := 0
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						start = i
						break
					}
				}
				path := append(append([]string{}, stack[start:]...), next)
				key := canonicalCycle(path)
				if !seen[key] {
					seen[key] = true
					found = append(found, path)
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
	}

	for _, node := range g.nodes {
		if color[node] == white {
			visit(node)
		}
	}
	return found
}

// canonicalCycle rotates a closed path so its smallest node comes first.
func canonicalCycle(path []string) string {
	open := path[:len(path)-1]
	first := 0
	for i := range open {
		if open[i] < open[first] {
			first = i
		}
	}
	rotated := append(append([]string{}, open[first:]...), open[:first]...)
	return strings.Join(rotated, ">")
}

func cycleIssue(path []string) Issue {
	return Issue{
		Code:    IssueCyclicDependency,
		Message: "cyclic phase dependency: " + strings.Join(path, " -> "),
		Refs:    path,
	}
}
