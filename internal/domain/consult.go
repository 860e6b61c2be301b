package domain

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ConsultationRequest is one immutable ask for specialist guidance.
type ConsultationRequest struct {
	RequestID string            `json:"request_id"`
	Domain    string            `json:"domain"`
	Query     string            `json:"query"`
	Context   map[string]string `json:"context,omitempty"`
}

// NewRequestID generates a ULID suitable for a ConsultationRequest.
func NewRequestID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// GuidanceResponse is one responder's answer. Consumed read-only after creation.
type GuidanceResponse struct {
	RequestID       string        `json:"request_id"`
	AgentID         string        `json:"agent_id"`
	Guidance        string        `json:"guidance"`
	Confidence      float64       `json:"confidence"` // in [0,1]
	Recommendations []string      `json:"recommendations"`
	ProcessingTime  time.Duration `json:"processing_time"`
	Successful      bool          `json:"successful"`
	FailureReason   string        `json:"failure_reason,omitempty"`
}

// SuccessResponse builds a successful GuidanceResponse.
func SuccessResponse(requestID, agentID, guidance string, confidence float64, recommendations []string, elapsed time.Duration) GuidanceResponse {
	return GuidanceResponse{
		RequestID:       requestID,
		AgentID:         agentID,
		Guidance:        guidance,
		Confidence:      confidence,
		Recommendations: recommendations,
		ProcessingTime:  elapsed,
		Successful:      true,
	}
}

// FailureResponse builds a failed GuidanceResponse carrying the reason.
func FailureResponse(requestID, agentID, reason string, elapsed time.Duration) GuidanceResponse {
	return GuidanceResponse{
		RequestID:      requestID,
		AgentID:        agentID,
		ProcessingTime: elapsed,
		Successful:     false,
		FailureReason:  reason,
	}
}
