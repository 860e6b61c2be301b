// Package consistency scores agreement across a set of guidance responses on
// five independent dimensions and reports conflicts and agreements.
package consistency

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"consilium/internal/domain"
)

// Per-dimension consistency thresholds. The recommendation threshold doubles
// as the overall cutoff.
const (
	RecommendationThreshold = 0.7
	ConfidenceThreshold     = 0.8
	SemanticThreshold       = 0.6
	ArchitecturalThreshold  = 0.9

	crossDomainConflictScore = 0.5
)

// minTokenLength excludes short words from semantic token sets.
const minTokenLength = 3

var architecturalKeywords = []string{
	"microservice", "domain", "boundary", "integration", "pattern", "architecture",
}

var securityKeywords = []string{
	"authentication", "authorization", "security", "jwt", "encryption", "owasp",
}

var performanceKeywords = []string{
	"performance", "optimization", "caching", "scaling", "latency", "throughput",
}

// architecturalPatterns maps guidance keywords to named architectural patterns.
var architecturalPatterns = map[string]string{
	"microservice":  "microservice-pattern",
	"domain-driven": "ddd-pattern",
	"api gateway":   "api-gateway-pattern",
	"event-driven":  "event-driven-pattern",
}

// contradictionPairs are known-antonymous recommendation phrases. Both
// present verbatim (case-folded) is reported as a specific conflict.
var contradictionPairs = []struct {
	a, b, description string
}{
	{"use synchronous", "use asynchronous", "synchronous vs asynchronous communication"},
	{"use sql", "use nosql", "SQL vs NoSQL database choice"},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Validator computes multi-dimensional consistency over response sets.
// It holds no per-request state; validation is idempotent.
type Validator struct {
	logger *slog.Logger
}

// New creates a Validator.
func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = discardLogger()
	}
	return &Validator{logger: logger}
}

// Validate scores the response set. Fewer than two responses are trivially
// consistent: a single source cannot conflict with itself.
func (v *Validator) Validate(responses []domain.GuidanceResponse) domain.ConsistencyResult {
	start := time.Now()

	if len(responses) < 2 {
		perfect := domain.ConsistencyDimension{Name: "single", Score: 1.0, Consistent: true}
		return domain.ConsistencyResult{
			Consistent:     true,
			Score:          1.0,
			Agreements:     []string{"single response - no conflicts possible"},
			Recommendation: perfect,
			Confidence:     perfect,
			Semantic:       perfect,
			Architectural:  perfect,
			CrossDomain:    perfect,
			ValidationTime: time.Since(start),
		}
	}

	rec := v.recommendationConsistency(responses)
	conf := v.confidenceConsistency(responses)
	sem := v.semanticConsistency(responses)
	arch := v.architecturalConsistency(responses)
	cross := v.crossDomainConsistency(responses)

	dims := []domain.ConsistencyDimension{rec, conf, sem, arch, cross}
	var sum float64
	for _, d := range dims {
		sum += d.Score
	}
	overall := sum / float64(len(dims))

	var conflicts, agreements []string
	for _, d := range dims {
		if d.Consistent {
			agreements = append(agreements, fmt.Sprintf("%s shows good consistency: %.2f", d.Name, d.Score))
		} else {
			conflicts = append(conflicts, fmt.Sprintf("%s consistency below threshold: %.2f", d.Name, d.Score))
		}
	}
	conflicts = append(conflicts, contradictions(responses)...)

	result := domain.ConsistencyResult{
		Consistent:     overall >= RecommendationThreshold,
		Score:          overall,
		Conflicts:      conflicts,
		Agreements:     agreements,
		Recommendation: rec,
		Confidence:     conf,
		Semantic:       sem,
		Architectural:  arch,
		CrossDomain:    cross,
		ValidationTime: time.Since(start),
	}
	v.logger.Debug("consistency validated",
		"responses", len(responses), "score", overall, "consistent", result.Consistent,
		"conflicts", len(conflicts))
	return result
}

// recommendationConsistency scores the fraction of distinct recommendations
// shared by more than one responder.
func (v *Validator) recommendationConsistency(responses []domain.GuidanceResponse) domain.ConsistencyDimension {
	responders := make(map[string]int) // case-folded recommendation -> responder count
	for _, resp := range responses {
		perAgent := make(map[string]struct{})
		for _, rec := range resp.Recommendations {
			perAgent[strings.ToLower(rec)] = struct{}{}
		}
		for rec := range perAgent {
			responders[rec]++
		}
	}

	shared := 0
	for _, count := range responders {
		if count > 1 {
			shared++
		}
	}

	score := 1.0
	if len(responders) > 0 {
		score = float64(shared) / float64(len(responders))
	}
	return domain.ConsistencyDimension{
		Name:       domain.DimensionRecommendation,
		Score:      score,
		Consistent: score >= RecommendationThreshold,
		Details: map[string]any{
			"distinct_recommendations": len(responders),
			"shared_recommendations":   shared,
		},
	}
}

// confidenceConsistency scores 1 minus the (capped) population variance of
// the confidence values; lower spread means higher consistency.
func (v *Validator) confidenceConsistency(responses []domain.GuidanceResponse) domain.ConsistencyDimension {
	var sum float64
	for _, resp := range responses {
		sum += resp.Confidence
	}
	mean := sum / float64(len(responses))

	var variance float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, resp := range responses {
		d := resp.Confidence - mean
		variance += d * d
		lo = math.Min(lo, resp.Confidence)
		hi = math.Max(hi, resp.Confidence)
	}
	variance /= float64(len(responses))

	score := 1.0 - math.Min(variance, 1.0)
	return domain.ConsistencyDimension{
		Name:       domain.DimensionConfidence,
		Score:      score,
		Consistent: score >= ConfidenceThreshold,
		Details: map[string]any{
			"average_confidence": mean,
			"variance":           variance,
			"confidence_range":   hi - lo,
		},
	}
}

// semanticConsistency scores keyword overlap: tokens common to every
// response over tokens appearing in any response.
func (v *Validator) semanticConsistency(responses []domain.GuidanceResponse) domain.ConsistencyDimension {
	sets := make([]map[string]struct{}, len(responses))
	for i, resp := range responses {
		sets[i] = tokenize(resp.Guidance)
	}

	union := make(map[string]struct{})
	for _, set := range sets {
		for tok := range set {
			union[tok] = struct{}{}
		}
	}

	common := 0
	for tok := range sets[0] {
		inAll := true
		for _, set := range sets[1:] {
			if _, ok := set[tok]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			common++
		}
	}

	score := 1.0
	if len(union) > 0 {
		score = float64(common) / float64(len(union))
	}
	return domain.ConsistencyDimension{
		Name:       domain.DimensionSemantic,
		Score:      score,
		Consistent: score >= SemanticThreshold,
		Details: map[string]any{
			"common_keywords": common,
			"total_keywords":  len(union),
		},
	}
}

// architecturalConsistency restricts to architecture-flavored responses and
// scores the fraction of extracted patterns shared by more than one of them.
func (v *Validator) architecturalConsistency(responses []domain.GuidanceResponse) domain.ConsistencyDimension {
	var architectural []string
	for _, resp := range responses {
		if containsAny(strings.ToLower(resp.Guidance), architecturalKeywords) {
			architectural = append(architectural, resp.Guidance)
		}
	}

	if len(architectural) < 2 {
		return domain.ConsistencyDimension{
			Name:       domain.DimensionArchitectural,
			Score:      1.0,
			Consistent: true,
			Details:    map[string]any{"architectural_responses": len(architectural)},
		}
	}

	patternCounts := make(map[string]int)
	for _, guidance := range architectural {
		for _, pattern := range extractPatterns(guidance) {
			patternCounts[pattern]++
		}
	}

	shared := 0
	for _, count := range patternCounts {
		if count > 1 {
			shared++
		}
	}

	score := 1.0
	if len(patternCounts) > 0 {
		score = float64(shared) / float64(len(patternCounts))
	}
	return domain.ConsistencyDimension{
		Name:       domain.DimensionArchitectural,
		Score:      score,
		Consistent: score >= ArchitecturalThreshold,
		Details: map[string]any{
			"patterns":        sortedKeys(patternCounts),
			"shared_patterns": shared,
		},
	}
}

// crossDomainConsistency detects security/performance trade-off conflicts.
// Binary score: 0.5 when conflicting, 1.0 otherwise.
func (v *Validator) crossDomainConsistency(responses []domain.GuidanceResponse) domain.ConsistencyDimension {
	var securityAgents, performanceAgents []string
	for _, resp := range responses {
		guidance := strings.ToLower(resp.Guidance)
		if containsAny(guidance, securityKeywords) {
			securityAgents = append(securityAgents, resp.AgentID)
		}
		if containsAny(guidance, performanceKeywords) {
			performanceAgents = append(performanceAgents, resp.AgentID)
		}
	}

	conflict := false
	if len(securityAgents) > 0 && len(performanceAgents) > 0 {
		for _, resp := range responses {
			guidance := strings.ToLower(resp.Guidance)
			if strings.Contains(guidance, "trade-off") || strings.Contains(guidance, "conflict") {
				conflict = true
				break
			}
		}
	}

	score := 1.0
	if conflict {
		score = crossDomainConflictScore
	}
	return domain.ConsistencyDimension{
		Name:       domain.DimensionCrossDomain,
		Score:      score,
		Consistent: !conflict,
		Details: map[string]any{
			"security_agents":    securityAgents,
			"performance_agents": performanceAgents,
			"conflicts_detected": conflict,
		},
	}
}

// contradictions reports known-antonymous recommendation phrase pairs that
// are both present verbatim across the response set.
func contradictions(responses []domain.GuidanceResponse) []string {
	all := make(map[string]struct{})
	for _, resp := range responses {
		for _, rec := range resp.Recommendations {
			all[strings.ToLower(rec)] = struct{}{}
		}
	}

	var found []string
	for _, pair := range contradictionPairs {
		_, hasA := all[pair.a]
		_, hasB := all[pair.b]
		if hasA && hasB {
			found = append(found, "contradictory recommendations: "+pair.description)
		}
	}
	return found
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(word) > minTokenLength {
			tokens[word] = struct{}{}
		}
	}
	return tokens
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func extractPatterns(guidance string) []string {
	lower := strings.ToLower(guidance)
	var patterns []string
	for keyword, pattern := range architecturalPatterns {
		if strings.Contains(lower, keyword) {
			patterns = append(patterns, pattern)
		}
	}
	sort.Strings(patterns)
	return patterns
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
