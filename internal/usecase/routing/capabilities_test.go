package routing

import (
	"reflect"
	"testing"
)

func TestCapabilitiesFromQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty", "", nil},
		{"no match", "hello world", nil},
		{"spring boot", "How do I structure a Spring Boot service?", []string{"spring-boot"}},
		{"security", "security review of the login flow", []string{"security"}},
		{
			"event driven",
			"Kafka event schema design",
			[]string{"event-driven", "event-schemas"},
		},
		{
			"cicd and deploy",
			"canary deployment in the CI/CD pipeline",
			[]string{"cicd", "deployment", "deployment-strategies"},
		},
		{
			"resilience",
			"circuit breaker and retry tuning",
			[]string{"resilience"},
		},
		{
			"secrets",
			"move credentials into vault",
			[]string{"secrets-management"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CapabilitiesFromQuery(tt.query)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CapabilitiesFromQuery(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestCapabilitiesFromQuerySorted(t *testing.T) {
	got := CapabilitiesFromQuery("test the deployment of the security config")
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("capabilities not sorted/deduped: %v", got)
		}
	}
}

func TestTriggeredTypes(t *testing.T) {
	types := triggeredTypes("kafka messaging with a ci/cd pipeline")
	names := make([]string, len(types))
	for i, st := range types {
		names[i] = st.name
	}
	if !reflect.DeepEqual(names, []string{"event-driven", "cicd"}) {
		t.Errorf("triggeredTypes = %v, want [event-driven cicd]", names)
	}

	if got := triggeredTypes("plain question"); len(got) != 0 {
		t.Errorf("triggeredTypes on plain query = %v, want none", got)
	}
}

func TestSpecializedTypeMatches(t *testing.T) {
	resilience := specializedTypes[3]
	if !resilience.matches([]string{"circuit-breakers"}) {
		t.Error("circuit-breakers should match the resilience type")
	}
	if resilience.matches([]string{"documentation"}) {
		t.Error("documentation should not match the resilience type")
	}
}
