package domain

import "time"

// Dimension names used by the consistency validator.
const (
	DimensionRecommendation = "recommendation"
	DimensionConfidence     = "confidence"
	DimensionSemantic       = "semantic"
	DimensionArchitectural  = "architectural"
	DimensionCrossDomain    = "cross_domain"
)

// ConsistencyDimension is the agreement score for one independent metric.
type ConsistencyDimension struct {
	Name       string         `json:"name"`
	Score      float64        `json:"score"` // in [0,1]
	Consistent bool           `json:"consistent"`
	Details    map[string]any `json:"details,omitempty"`
}

// ConsistencyResult aggregates the five dimension scores over a response set.
type ConsistencyResult struct {
	Consistent     bool                 `json:"consistent"`
	Score          float64              `json:"score"` // unweighted mean of the five dimensions
	Conflicts      []string             `json:"conflicts,omitempty"`
	Agreements     []string             `json:"agreements,omitempty"`
	Recommendation ConsistencyDimension `json:"recommendation"`
	Confidence     ConsistencyDimension `json:"confidence"`
	Semantic       ConsistencyDimension `json:"semantic"`
	Architectural  ConsistencyDimension `json:"architectural"`
	CrossDomain    ConsistencyDimension `json:"cross_domain"`
	ValidationTime time.Duration        `json:"validation_time"`
}

// HasArchitecturalConflicts reports an architectural dimension under threshold.
func (r ConsistencyResult) HasArchitecturalConflicts() bool {
	return !r.Architectural.Consistent
}

// HasCrossDomainConflicts reports a cross-domain dimension under threshold.
func (r ConsistencyResult) HasCrossDomainConflicts() bool {
	return !r.CrossDomain.Consistent
}

// Dimensions returns the five dimensions in canonical order.
func (r ConsistencyResult) Dimensions() []ConsistencyDimension {
	return []ConsistencyDimension{
		r.Recommendation, r.Confidence, r.Semantic, r.Architectural, r.CrossDomain,
	}
}
