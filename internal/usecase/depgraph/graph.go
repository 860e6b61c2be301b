// Package depgraph maintains the directed "requires" graph between responder
// identities, their hierarchy levels and static priority weights, plus the
// domain -> supporting-domain coordination rules.
package depgraph

import (
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"consilium/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Graph holds responder dependencies and hierarchy metadata. Safe for
// concurrent use; in practice it is populated once at startup and read-only
// while serving requests.
type Graph struct {
	mu          sync.RWMutex
	deps        map[string]map[string]struct{} // dependent -> prerequisites
	levels      map[string]int
	priorities  map[string]int
	crossDomain map[string]map[string]struct{} // domain -> supporting domains
	logger      *slog.Logger
}

// New creates an empty Graph.
func New(logger *slog.Logger) *Graph {
	if logger == nil {
		logger = discardLogger()
	}
	return &Graph{
		deps:        make(map[string]map[string]struct{}),
		levels:      make(map[string]int),
		priorities:  make(map[string]int),
		crossDomain: make(map[string]map[string]struct{}),
		logger:      logger,
	}
}

// Register records an agent with its prerequisites, hierarchy level and
// static priority weight. Re-registering replaces the previous entry.
func (g *Graph) Register(agentID string, dependsOn []string, level, priority int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prereqs := make(map[string]struct{}, len(dependsOn))
	for _, d := range dependsOn {
		prereqs[d] = struct{}{}
	}
	g.deps[agentID] = prereqs
	g.levels[agentID] = level
	g.priorities[agentID] = priority

	g.logger.Debug("agent dependencies registered",
		"agent_id", agentID, "depends_on", dependsOn, "level", level, "priority", priority)
}

// AddCrossDomainRule records that the given domains support primaryDomain.
// Repeated calls for the same primary domain accumulate (union semantics).
func (g *Graph) AddCrossDomainRule(primaryDomain string, supporting ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.crossDomain[primaryDomain]
	if !ok {
		set = make(map[string]struct{})
		g.crossDomain[primaryDomain] = set
	}
	for _, s := range supporting {
		set[s] = struct{}{}
	}
}

// HierarchyLevel returns the agent's hierarchy level, or math.MaxInt for
// identities the graph does not know (they sort last).
func (g *Graph) HierarchyLevel(agentID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if level, ok := g.levels[agentID]; ok {
		return level
	}
	return math.MaxInt
}

// Priority returns the agent's static priority weight, zero when unknown.
func (g *Graph) Priority(agentID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.priorities[agentID]
}

// Known reports whether the identity is registered in the graph.
func (g *Graph) Known(agentID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.deps[agentID]
	return ok
}

// TopologicalOrder orders the given identities so that every prerequisite
// precedes its dependents, using Kahn's algorithm over the induced subgraph.
// Among simultaneously-ready identities the lowest hierarchy level goes
// first; remaining ties keep the input order. Identities unknown to the
// graph participate as isolated nodes.
//
// Returns domain.ErrCyclicDependency when the induced subgraph has a cycle.
// A cycle is a configuration fault, never a routable request outcome.
func (g *Graph) TopologicalOrder(agentIDs []string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	members := make(map[string]int, len(agentIDs)) // id -> input position
	for i, id := range agentIDs {
		if _, seen := members[id]; !seen {
			members[id] = i
		}
	}

	inDegree := make(map[string]int, len(members))
	dependents := make(map[string][]string, len(members)) // prerequisite -> dependents
	for id := range members {
		inDegree[id] = 0
	}
	for id := range members {
		for prereq := range g.deps[id] {
			if _, ok := members[prereq]; ok {
				dependents[prereq] = append(dependents[prereq], id)
				inDegree[id]++
			}
		}
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	ordered := make([]string, 0, len(members))
	for len(ready) > 0 {
		// Pick the ready identity with the lowest hierarchy level; keep
		// the input (priority-score) order for equal levels.
		best := 0
		for i := 1; i < len(ready); i++ {
			li, lb := g.levelLocked(ready[i]), g.levelLocked(ready[best])
			if li < lb || (li == lb && members[ready[i]] < members[ready[best]]) {
				best = i
			}
		}
		current := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		ordered = append(ordered, current)

		next := dependents[current]
		sort.SliceStable(next, func(i, j int) bool { return members[next[i]] < members[next[j]] })
		for _, dep := range next {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(ordered) != len(members) {
		return nil, domain.NewDomainError("Graph.TopologicalOrder", domain.ErrCyclicDependency,
			"candidate subset contains a dependency cycle")
	}
	return ordered, nil
}

func (g *Graph) levelLocked(agentID string) int {
	if level, ok := g.levels[agentID]; ok {
		return level
	}
	return math.MaxInt
}

// CrossDomainAgents returns the identities of registered agents that belong
// to domains supporting the given primary domain. Identity membership uses
// substring containment against the supporting domain tag.
func (g *Graph) CrossDomainAgents(primaryDomain string) map[string]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	agents := make(map[string]struct{})
	for supporting := range g.crossDomain[primaryDomain] {
		for agentID := range g.deps {
			if strings.Contains(agentID, supporting) {
				agents[agentID] = struct{}{}
			}
		}
	}
	return agents
}

// InsertionIndex returns the first position in ordered whose hierarchy level
// exceeds the inserted identity's level, so cross-domain identities merged
// after the initial sort preserve level-monotonic ordering.
func (g *Graph) InsertionIndex(ordered []string, agentID string) int {
	target := g.HierarchyLevel(agentID)
	for i, id := range ordered {
		if g.HierarchyLevel(id) > target {
			return i
		}
	}
	return len(ordered)
}

// OrderForRequest produces the final consultation order for a candidate set:
// topological order first, then any cross-domain supporting identities from
// the candidate set merged in by hierarchy level.
func (g *Graph) OrderForRequest(primaryDomain string, agentIDs []string) ([]string, error) {
	ordered, err := g.TopologicalOrder(agentIDs)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]struct{}, len(agentIDs))
	for _, id := range agentIDs {
		candidates[id] = struct{}{}
	}
	placed := make(map[string]struct{}, len(ordered))
	for _, id := range ordered {
		placed[id] = struct{}{}
	}

	crossDomain := g.CrossDomainAgents(primaryDomain)
	// Deterministic merge order.
	var pending []string
	for id := range crossDomain {
		if _, isCandidate := candidates[id]; !isCandidate {
			continue
		}
		if _, done := placed[id]; done {
			continue
		}
		pending = append(pending, id)
	}
	sort.Strings(pending)

	for _, id := range pending {
		idx := g.InsertionIndex(ordered, id)
		ordered = append(ordered, "")
		copy(ordered[idx+1:], ordered[idx:])
		ordered[idx] = id
	}
	return ordered, nil
}

// Validate checks the whole graph for cycles. Call at startup: a cyclic
// configuration must block serving traffic.
func (g *Graph) Validate() error {
	g.mu.RLock()
	all := make([]string, 0, len(g.deps))
	for id := range g.deps {
		all = append(all, id)
	}
	g.mu.RUnlock()

	sort.Strings(all)
	_, err := g.TopologicalOrder(all)
	if err != nil {
		g.logger.Error("dependency graph validation failed", "error", err)
	}
	return err
}
