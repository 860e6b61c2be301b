package depgraph

import (
	"errors"
	"testing"

	"consilium/internal/domain"
)

func position(t *testing.T, ordered []string, id string) int {
	t.Helper()
	for i, o := range ordered {
		if o == id {
			return i
		}
	}
	t.Fatalf("agent %q not in order %v", id, ordered)
	return -1
}

func TestTopologicalOrderPrerequisitesFirst(t *testing.T) {
	g := New(nil)
	g.Seed()

	ordered, err := g.TopologicalOrder([]string{
		"security-agent", "implementation-agent", "deployment-agent", "architecture-agent",
	})
	if err != nil {
		t.Fatalf("TopologicalOrder: %v", err)
	}
	if len(ordered) != 4 {
		t.Fatalf("got %d agents, want 4", len(ordered))
	}

	sec := position(t, ordered, "security-agent")
	if impl := position(t, ordered, "implementation-agent"); impl > sec {
		t.Errorf("implementation-agent at %d after dependent security-agent at %d", impl, sec)
	}
	if dep := position(t, ordered, "deployment-agent"); dep > sec {
		t.Errorf("deployment-agent at %d after dependent security-agent at %d", dep, sec)
	}
}

func TestTopologicalOrderLevelTieBreak(t *testing.T) {
	g := New(nil)
	g.Register("a", nil, 0, 100)
	g.Register("b", []string{"a"}, 1, 90)
	g.Register("c", []string{"a"}, 1, 80)

	// b and c become ready together once a is placed; both are level 1, so
	// the input order decides.
	ordered, err := g.TopologicalOrder([]string{"c", "b", "a"})
	if err != nil {
		t.Fatalf("TopologicalOrder: %v", err)
	}
	want := []string{"a", "c", "b"}
	for i := range want {
		if ordered[i] != want[i] {
			t.Fatalf("order = %v, want %v", ordered, want)
		}
	}
}

func TestTopologicalOrderLowerLevelFirstAmongReady(t *testing.T) {
	g := New(nil)
	g.Register("foundation", nil, 0, 50)
	g.Register("specialist", nil, 1, 100)

	// Both ready immediately; foundation's lower level wins despite the
	// specialist coming first in the input.
	ordered, err := g.TopologicalOrder([]string{"specialist", "foundation"})
	if err != nil {
		t.Fatalf("TopologicalOrder: %v", err)
	}
	if ordered[0] != "foundation" {
		t.Errorf("order = %v, want foundation first", ordered)
	}
}

func TestTopologicalOrderUnknownIdentitiesSortLast(t *testing.T) {
	g := New(nil)
	g.Register("known", nil, 0, 50)

	ordered, err := g.TopologicalOrder([]string{"stranger", "known"})
	if err != nil {
		t.Fatalf("TopologicalOrder: %v", err)
	}
	if len(ordered) != 2 {
		t.Fatalf("unknown identity dropped: %v", ordered)
	}
	if ordered[0] != "known" || ordered[1] != "stranger" {
		t.Errorf("order = %v, want [known stranger]", ordered)
	}
}

func TestTopologicalOrderCycle(t *testing.T) {
	g := New(nil)
	g.Register("x", []string{"y"}, 0, 50)
	g.Register("y", []string{"x"}, 0, 50)

	_, err := g.TopologicalOrder([]string{"x", "y"})
	if err == nil {
		t.Fatal("expected error for cyclic subset")
	}
	if !errors.Is(err, domain.ErrCyclicDependency) {
		t.Errorf("error = %v, want ErrCyclicDependency", err)
	}
	if code := domain.ErrorCodeOf(err); code != domain.CodeCyclicDependency {
		t.Errorf("error code = %s, want %s", code, domain.CodeCyclicDependency)
	}
}

func TestTopologicalOrderIgnoresOutsidePrerequisites(t *testing.T) {
	g := New(nil)
	g.Seed()

	// security-agent's prerequisites are not in the candidate set; the
	// induced subgraph treats it as a root.
	ordered, err := g.TopologicalOrder([]string{"security-agent"})
	if err != nil {
		t.Fatalf("TopologicalOrder: %v", err)
	}
	if len(ordered) != 1 || ordered[0] != "security-agent" {
		t.Errorf("order = %v, want [security-agent]", ordered)
	}
}

func TestCrossDomainRuleUnion(t *testing.T) {
	g := New(nil)
	g.AddCrossDomainRule("implementation", "security")
	g.AddCrossDomainRule("implementation", "observability", "security")

	g.Register("security-agent", nil, 1, 95)
	g.Register("observability-agent", nil, 1, 65)
	g.Register("testing-agent", nil, 0, 70)

	agents := g.CrossDomainAgents("implementation")
	if _, ok := agents["security-agent"]; !ok {
		t.Error("security-agent missing from cross-domain set")
	}
	if _, ok := agents["observability-agent"]; !ok {
		t.Error("observability-agent missing from cross-domain set")
	}
	if _, ok := agents["testing-agent"]; ok {
		t.Error("testing-agent should not be in cross-domain set")
	}
}

func TestOrderForRequestMergesCrossDomainByLevel(t *testing.T) {
	g := New(nil)
	g.Seed()

	ordered, err := g.OrderForRequest("implementation", []string{
		"implementation-agent", "security-agent", "observability-agent",
	})
	if err != nil {
		t.Fatalf("OrderForRequest: %v", err)
	}
	if len(ordered) != 3 {
		t.Fatalf("got %d agents, want 3", len(ordered))
	}
	impl := position(t, ordered, "implementation-agent")
	if sec := position(t, ordered, "security-agent"); sec < impl {
		t.Errorf("level-1 security-agent at %d before level-0 implementation-agent at %d", sec, impl)
	}
	if obs := position(t, ordered, "observability-agent"); obs < impl {
		t.Errorf("level-1 observability-agent at %d before level-0 implementation-agent at %d", obs, impl)
	}
}

func TestHierarchyLevelAndPriority(t *testing.T) {
	g := New(nil)
	g.Seed()

	if l := g.HierarchyLevel("architecture-agent"); l != 0 {
		t.Errorf("architecture-agent level = %d, want 0", l)
	}
	if l := g.HierarchyLevel("pair-navigator-agent"); l != 2 {
		t.Errorf("pair-navigator-agent level = %d, want 2", l)
	}
	if p := g.Priority("security-agent"); p != 95 {
		t.Errorf("security-agent priority = %d, want 95", p)
	}
	if p := g.Priority("nobody"); p != 0 {
		t.Errorf("unknown priority = %d, want 0", p)
	}
	if g.Known("nobody") {
		t.Error("Known(nobody) = true")
	}
}

func TestValidateSeededGraph(t *testing.T) {
	g := New(nil)
	g.Seed()
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateCyclicGraph(t *testing.T) {
	g := New(nil)
	g.Register("x", []string{"y"}, 0, 50)
	g.Register("y", []string{"x"}, 0, 50)
	if err := g.Validate(); !errors.Is(err, domain.ErrCyclicDependency) {
		t.Errorf("Validate = %v, want ErrCyclicDependency", err)
	}
}
